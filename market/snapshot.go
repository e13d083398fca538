package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput marks a cycle input the engine refuses to act on
// (non-finite prices or indicators, crossed quotes, missing fields).
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Snapshot is the read-only market view for one cycle.
type Snapshot struct {
	Instrument string               `json:"instrument" yaml:"instrument"`
	Bid        float64              `json:"bid" yaml:"bid"`
	Ask        float64              `json:"ask" yaml:"ask"`
	Time       time.Time            `json:"time" yaml:"time"`
	Series     map[Timeframe]Series `json:"series,omitempty" yaml:"series,omitempty"`
	Primary    Timeframe            `json:"primary,omitempty" yaml:"primary,omitempty"`
}

func (s Snapshot) Mid() float64 {
	return (s.Bid + s.Ask) / 2
}

func (s Snapshot) Spread() float64 {
	return s.Ask - s.Bid
}

// EntryPrice is the price a market order in direction d would fill at.
func (s Snapshot) EntryPrice(d Direction) float64 {
	if d == Short {
		return s.Bid
	}
	return s.Ask
}

// ExitPrice is the price an open position in direction d is valued at.
func (s Snapshot) ExitPrice(d Direction) float64 {
	if d == Short {
		return s.Ask
	}
	return s.Bid
}

// Bars returns the series for tf, if present.
func (s Snapshot) Bars(tf Timeframe) (Series, bool) {
	ser, ok := s.Series[tf]
	return ser, ok
}

func (s Snapshot) Validate() error {
	if s.Instrument == "" {
		return invalid("snapshot instrument is empty")
	}
	if !finite(s.Bid) || !finite(s.Ask) {
		return invalid("%s quote is not finite (bid=%v ask=%v)", s.Instrument, s.Bid, s.Ask)
	}
	if s.Bid <= 0 || s.Ask <= 0 {
		return invalid("%s quote must be positive (bid=%v ask=%v)", s.Instrument, s.Bid, s.Ask)
	}
	if s.Ask < s.Bid {
		return invalid("%s ask %v below bid %v", s.Instrument, s.Ask, s.Bid)
	}
	if s.Time.IsZero() {
		return invalid("%s snapshot time is zero", s.Instrument)
	}
	for tf, ser := range s.Series {
		for i, b := range ser.Bars {
			if !finite(b.Open) || !finite(b.High) || !finite(b.Low) || !finite(b.Close) {
				return invalid("%s %s bar %d is not finite", s.Instrument, tf, i)
			}
		}
	}
	return nil
}
