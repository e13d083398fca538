package risk

import "time"

type Policy struct {
	// RiskPerTradePct is the equity fraction a risk fraction of 1.0 stands
	// for, e.g. 0.01.
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct" validate:"gt=0,lte=0.1"`

	// Account limits
	MaxOpenRiskPct float64 `json:"max_open_risk_pct" yaml:"max_open_risk_pct" validate:"gt=0,lte=1"` // 0.03
	MaxDrawdownPct float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct" validate:"gt=0,lte=1"`   // 0.20

	// Soft drawdown limit: above it entries are shrunk by CautionFactor.
	CautionDrawdownPct float64 `json:"caution_drawdown_pct" yaml:"caution_drawdown_pct" validate:"gte=0,lte=1"` // 0.10
	CautionFactor      float64 `json:"caution_factor" yaml:"caution_factor" validate:"gte=0,lte=1"`             // 0.5

	// Circuit breaker: this many losing closes in one day blocks entries.
	LossStreak int `json:"loss_streak" yaml:"loss_streak" validate:"gte=0"` // 2

	// Bounds on the final risk fraction.
	MinFraction float64 `json:"min_fraction" yaml:"min_fraction" validate:"gte=0"` // 0.1
	MaxFraction float64 `json:"max_fraction" yaml:"max_fraction" validate:"gt=0"`  // 2.0
}

func DefaultPolicy() Policy {
	return Policy{
		RiskPerTradePct:    0.01,
		MaxOpenRiskPct:     0.03,
		MaxDrawdownPct:     0.20,
		CautionDrawdownPct: 0.10,
		CautionFactor:      0.5,
		LossStreak:         2,
		MinFraction:        0.1,
		MaxFraction:        2.0,
	}
}

// AccountState is the caller-supplied account view for one cycle.
type AccountState struct {
	Balance    float64 `json:"balance" yaml:"balance"`
	Equity     float64 `json:"equity" yaml:"equity"`
	PeakEquity float64 `json:"peak_equity" yaml:"peak_equity"`
	FloatingPL float64 `json:"floating_pl" yaml:"floating_pl"`

	// OpenRiskPct is the equity fraction currently at risk across open
	// positions.
	OpenRiskPct float64 `json:"open_risk_pct" yaml:"open_risk_pct"`
}

// Drawdown is the equity fraction lost from the peak.
func (a AccountState) Drawdown() float64 {
	peak := a.PeakEquity
	if peak < a.Equity {
		peak = a.Equity
	}
	if peak <= 0 {
		return 0
	}
	return (peak - a.Equity) / peak
}

// DayState holds the per-instrument, per-day counters the governor reads.
type DayState struct {
	Date       time.Time `json:"date" yaml:"date"`
	Wins       int       `json:"wins" yaml:"wins"`
	Losses     int       `json:"losses" yaml:"losses"`
	RealizedPL float64   `json:"realized_pl" yaml:"realized_pl"`
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Roll resets the counters when t falls on a different day.
func (d *DayState) Roll(t time.Time) {
	if d.Date.IsZero() || !sameDay(d.Date, t) {
		*d = DayState{Date: t}
	}
}

// RecordClose counts a closed position.
func (d *DayState) RecordClose(t time.Time, profit float64) {
	d.Roll(t)
	d.RealizedPL += profit
	switch {
	case profit > 0:
		d.Wins++
	case profit < 0:
		d.Losses++
	}
}
