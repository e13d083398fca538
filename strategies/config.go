package strategies

import (
	"time"

	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
)

type SwingConfig struct {
	// Timeframe is the series the KeyK bar is read from.
	Timeframe market.Timeframe `json:"timeframe" yaml:"timeframe"`
	// KeyKATR is the bar range, in ATRs, a KeyK bar must exceed.
	KeyKATR float64 `json:"keyk_atr" yaml:"keyk_atr" validate:"gte=0"`
	// Grace is how long after a grid boundary a cycle still counts as on
	// the grid.
	Grace time.Duration `json:"grace" yaml:"grace" validate:"gte=0"`
}

// Config holds the Evaluator's thresholds. Prices are absolute, ATR
// multiples are in units of the primary ATR.
type Config struct {
	ExitInRange bool `json:"exit_in_range" yaml:"exit_in_range"`

	BeginningMinStrength int `json:"beginning_min_strength" yaml:"beginning_min_strength" validate:"gte=0"`
	MiddleMinStrength    int `json:"middle_min_strength" yaml:"middle_min_strength" validate:"gte=0"`
	StrongStrength       int `json:"strong_strength" yaml:"strong_strength" validate:"gte=0"`

	// AdjustMargin is the distance price must clear the reference level
	// by. Zero means AdjustATR x ATR.
	AdjustMargin float64 `json:"adjust_margin" yaml:"adjust_margin" validate:"gte=0"`
	AdjustATR    float64 `json:"adjust_atr" yaml:"adjust_atr" validate:"gte=0"`
	// MaxChaseATR caps how far beyond the level an entry may be. Zero
	// disables the cap.
	MaxChaseATR float64 `json:"max_chase_atr" yaml:"max_chase_atr" validate:"gte=0"`

	ExecutionTimeframe market.Timeframe `json:"execution_timeframe" yaml:"execution_timeframe"`
	MiddleTakeProfit   plan.TPMode      `json:"middle_take_profit" yaml:"middle_take_profit"`

	RetreatBandATR float64 `json:"retreat_band_atr" yaml:"retreat_band_atr" validate:"gte=0"`
	TrailATR       float64 `json:"trail_atr" yaml:"trail_atr" validate:"gte=0"`

	BaseRisk float64 `json:"base_risk" yaml:"base_risk" validate:"gt=0,lte=2"`

	Swing SwingConfig `json:"swing" yaml:"swing"`
}

func DefaultConfig() Config {
	return Config{
		BeginningMinStrength: 3,
		MiddleMinStrength:    2,
		StrongStrength:       5,
		AdjustATR:            0.1,
		MaxChaseATR:          2,
		ExecutionTimeframe:   market.H1,
		MiddleTakeProfit:     plan.TPNone,
		RetreatBandATR:       1,
		TrailATR:             0.5,
		BaseRisk:             1,
		Swing: SwingConfig{
			Timeframe: market.H4,
			KeyKATR:   1,
			Grace:     time.Minute,
		},
	}
}

func (c Config) adjust(atr float64) float64 {
	if c.AdjustMargin > 0 {
		return c.AdjustMargin
	}
	return c.AdjustATR * atr
}
