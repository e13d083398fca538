package market

import (
	"fmt"
	"strings"
)

// Direction is the side of a position or signal.
type Direction int

const (
	None Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "none"
	}
}

// Sign returns +1 for Long, -1 for Short and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return None
	}
}

// Favorable reports whether price p is strictly beyond ref in the
// direction's profitable direction (above for longs, below for shorts).
func (d Direction) Favorable(p, ref float64) bool {
	return d.Sign()*(p-ref) > 0
}

// Offset moves price p by dist in the direction's favorable direction.
func (d Direction) Offset(p, dist float64) float64 {
	return p + d.Sign()*dist
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "up", "bull", "bullish":
		return Long, nil
	case "short", "sell", "down", "bear", "bearish":
		return Short, nil
	case "", "none", "flat":
		return None, nil
	default:
		return None, fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
