package market

import (
	"fmt"
	"strings"
)

// Phase is the trend classification supplied by the external classifier
// once per cycle.
type Phase int

const (
	Range Phase = iota
	BeginningUp
	BeginningDown
	MiddleUp
	MiddleDown
	MiddleUpRetreat
	MiddleDownRetreat
)

var phaseNames = map[Phase]string{
	Range:             "Range",
	BeginningUp:       "BeginningUp",
	BeginningDown:     "BeginningDown",
	MiddleUp:          "MiddleUp",
	MiddleDown:        "MiddleDown",
	MiddleUpRetreat:   "MiddleUpRetreat",
	MiddleDownRetreat: "MiddleDownRetreat",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Direction returns the trend direction the phase trades in. Retreat phases
// keep the direction of the underlying trend.
func (p Phase) Direction() Direction {
	switch p {
	case BeginningUp, MiddleUp, MiddleUpRetreat:
		return Long
	case BeginningDown, MiddleDown, MiddleDownRetreat:
		return Short
	default:
		return None
	}
}

func (p Phase) IsBeginning() bool { return p == BeginningUp || p == BeginningDown }
func (p Phase) IsMiddle() bool    { return p == MiddleUp || p == MiddleDown }
func (p Phase) IsRetreat() bool   { return p == MiddleUpRetreat || p == MiddleDownRetreat }

func ParsePhase(s string) (Phase, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for p, name := range phaseNames {
		if strings.ToLower(name) == want {
			return p, nil
		}
	}
	return Range, fmt.Errorf("unknown trend phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
