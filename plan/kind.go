package plan

import (
	"fmt"
	"strings"
)

// Kind names a split strategy. The set is closed; each kind is a row in the
// split table, not a separate code path.
type Kind int

const (
	Single Kind = iota
	ShortTerm
	LongTermNoTp
	KeyK
	AtrTiered
	FibonacciLimit
	FourHourSwing
)

var kindNames = map[Kind]string{
	Single:         "single",
	ShortTerm:      "short_term",
	LongTermNoTp:   "long_term_no_tp",
	KeyK:           "keyk",
	AtrTiered:      "atr_tiered",
	FibonacciLimit: "fibonacci_limit",
	FourHourSwing:  "four_hour_swing",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	want := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return Single, fmt.Errorf("unknown split strategy %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
