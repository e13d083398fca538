package profile

import (
	"time"

	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
)

// Profile is the per-instrument tuning the strategies read. Profiles are
// immutable once resolved.
type Profile struct {
	ID          string
	Digits      int
	PipLocation int

	// StopLossMultiplier scales the ATR buffer placed behind the reference
	// level. Zero means baseline (1.0).
	StopLossMultiplier float64
	// ATRRangeDivisor divides ATR into the duplicate-suppression tolerance
	// and the retreat band. Zero means 3.
	ATRRangeDivisor float64
	// ATRRangeMultiplier sets the AtrRange take-profit distance in ATRs.
	// Zero means 1.
	ATRRangeMultiplier     float64
	TakeProfitFromStopLoss bool
	// MinTakeProfit is the smallest take-profit distance, in price.
	MinTakeProfit float64

	// Trading window in broker hours, [start, stop). start == stop or a
	// stop of 24 with start 0 means all day; start > stop wraps midnight.
	TradingStartHour int
	TradingStopHour  int

	// SwingHours enables the swing grid: entries are only evaluated every
	// SwingHours hours, shifted by SwingOffset.
	SwingHours  int
	SwingOffset int

	// Weekday and Month hold risk multipliers indexed by time.Weekday and
	// time.Month. Zero entries read as 1.
	Weekday [7]float64
	Month   [13]float64

	Blackout Blackout
	Filter   Filter
	Split    plan.Kind
}

// Default is the conservative profile used when no table entry matches.
func Default() Profile {
	return Profile{
		ID:               "DEFAULT",
		Digits:           5,
		PipLocation:      -4,
		TradingStartHour: 0,
		TradingStopHour:  24,
		Split:            plan.Single,
	}
}

func (p Profile) StopMultiplier() float64 {
	if p.StopLossMultiplier <= 0 {
		return 1
	}
	return p.StopLossMultiplier
}

func (p Profile) RangeDivisor() float64 {
	if p.ATRRangeDivisor <= 0 {
		return 3
	}
	return p.ATRRangeDivisor
}

func (p Profile) RangeMultiplier() float64 {
	if p.ATRRangeMultiplier <= 0 {
		return 1
	}
	return p.ATRRangeMultiplier
}

// RiskMultiplier is the seasonal multiplier for t: weekday table times
// month table.
func (p Profile) RiskMultiplier(t time.Time) float64 {
	w := p.Weekday[t.Weekday()]
	if w == 0 {
		w = 1
	}
	m := p.Month[t.Month()]
	if m == 0 {
		m = 1
	}
	return w * m
}

// InTradingWindow reports whether t's hour falls inside the trading window.
func (p Profile) InTradingWindow(t time.Time) bool {
	start, stop := p.TradingStartHour, p.TradingStopHour
	if start == stop || (start <= 0 && stop >= 24) {
		return true
	}
	h := t.Hour()
	if start < stop {
		return h >= start && h < stop
	}
	return h >= start || h < stop
}

// Swing reports whether the profile trades on the swing time grid.
func (p Profile) Swing() bool {
	return p.SwingHours > 0
}

// OnSwingGrid reports whether t lies on a swing grid boundary, allowing
// grace after the boundary for late bar delivery.
func (p Profile) OnSwingGrid(t time.Time, grace time.Duration) bool {
	if !p.Swing() {
		return true
	}
	h := ((t.Hour()-p.SwingOffset)%p.SwingHours + p.SwingHours) % p.SwingHours
	if h != 0 {
		return false
	}
	since := time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	if grace <= 0 {
		return since == 0
	}
	return since < grace
}

// AllowTrade applies the blackout predicate and the profile's filter.
func (p Profile) AllowTrade(s market.Snapshot, r market.Readings, strict bool) bool {
	if p.Blackout.Contains(s.Time) {
		return false
	}
	return p.Filter.Allow(s, r, strict)
}
