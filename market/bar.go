package market

import "time"

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// Range is the bar's high-low movement.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Series is a bar history ordered oldest first. Current is the index of the
// bar the cycle is evaluated on; bars after it are ignored.
type Series struct {
	Bars    []Bar `json:"bars" yaml:"bars"`
	Current int   `json:"current" yaml:"current"`
}

// NewSeries returns a series whose current bar is the last one.
func NewSeries(bars ...Bar) Series {
	return Series{Bars: bars, Current: len(bars) - 1}
}

// At returns the bar shift bars before the current bar.
func (s Series) At(shift int) (Bar, bool) {
	i := s.Current - shift
	if shift < 0 || i < 0 || i >= len(s.Bars) {
		return Bar{}, false
	}
	return s.Bars[i], true
}

// Window returns up to n bars ending at the current bar, oldest first.
func (s Series) Window(n int) []Bar {
	if s.Current < 0 || s.Current >= len(s.Bars) || n <= 0 {
		return nil
	}
	start := s.Current - n + 1
	if start < 0 {
		start = 0
	}
	return s.Bars[start : s.Current+1]
}
