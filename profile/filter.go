package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/trendengine/market"
)

// FilterKind is the closed set of per-instrument entry filters.
type FilterKind int

const (
	FilterNone FilterKind = iota
	// FilterSpread rejects entries while the spread exceeds MaxSpread.
	FilterSpread
	// FilterVolatility rejects entries while the primary ATR is outside
	// [MinATR, MaxATR]; a zero bound is open.
	FilterVolatility
	// FilterMACD requires the MACD to agree with the phase direction.
	FilterMACD
	// FilterBBS requires the BBS on Timeframe to agree with the phase
	// direction.
	FilterBBS
)

var filterNames = map[FilterKind]string{
	FilterNone:       "none",
	FilterSpread:     "spread",
	FilterVolatility: "volatility",
	FilterMACD:       "macd",
	FilterBBS:        "bbs",
}

func (k FilterKind) String() string {
	if s, ok := filterNames[k]; ok {
		return s
	}
	return fmt.Sprintf("filter(%d)", int(k))
}

func ParseFilterKind(s string) (FilterKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	if want == "" {
		return FilterNone, nil
	}
	for k, name := range filterNames {
		if name == want {
			return k, nil
		}
	}
	return FilterNone, fmt.Errorf("unknown filter %q", s)
}

func (k *FilterKind) UnmarshalText(b []byte) error {
	v, err := ParseFilterKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k FilterKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Filter struct {
	Kind      FilterKind       `yaml:"kind"`
	MaxSpread float64          `yaml:"max_spread,omitempty"`
	MinATR    float64          `yaml:"min_atr,omitempty"`
	MaxATR    float64          `yaml:"max_atr,omitempty"`
	Timeframe market.Timeframe `yaml:"timeframe,omitempty"`
}

// Allow reports whether an entry may be taken. strict tightens every
// variant: half the spread cap, a 20% narrower ATR band and full MACD
// agreement.
func (f Filter) Allow(s market.Snapshot, r market.Readings, strict bool) bool {
	dir := r.Phase.Direction()

	switch f.Kind {
	case FilterSpread:
		limit := f.MaxSpread
		if strict {
			limit /= 2
		}
		return limit <= 0 || s.Spread() <= limit

	case FilterVolatility:
		lo, hi := f.MinATR, f.MaxATR
		if strict {
			lo *= 1.2
			hi *= 0.8
		}
		atr := r.ATR.Primary
		if lo > 0 && atr < lo {
			return false
		}
		if hi > 0 && atr > hi {
			return false
		}
		return true

	case FilterMACD:
		if dir == market.None {
			return true
		}
		return r.MACD.Direction(strict) == dir

	case FilterBBS:
		if dir == market.None {
			return true
		}
		tf := f.Timeframe
		if tf == "" {
			tf = market.H4
		}
		return r.BBSOn(tf).Direction == dir

	default:
		return true
	}
}

// MonthDay is a calendar date without a year.
type MonthDay struct {
	Month time.Month `yaml:"month"`
	Day   int        `yaml:"day"`
}

// Blackout is the holiday predicate: fixed dates plus, optionally, the
// year-end window from December 24 through January 2.
type Blackout struct {
	Dates   []MonthDay `yaml:"dates,omitempty"`
	YearEnd bool       `yaml:"year_end,omitempty"`
}

func (b Blackout) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	m, d := t.Month(), t.Day()
	if b.YearEnd {
		if (m == time.December && d >= 24) || (m == time.January && d <= 2) {
			return true
		}
	}
	for _, md := range b.Dates {
		if md.Month == m && md.Day == d {
			return true
		}
	}
	return false
}
