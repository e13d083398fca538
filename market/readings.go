package market

// ATR holds Average True Range values at the horizons the strategies read.
// Predicted values come from the indicator library's forecast of the
// current period's range.
type ATR struct {
	Primary         float64 `json:"primary" yaml:"primary"`
	Daily           float64 `json:"daily,omitempty" yaml:"daily,omitempty"`
	Weekly          float64 `json:"weekly,omitempty" yaml:"weekly,omitempty"`
	PredictedDaily  float64 `json:"predicted_daily,omitempty" yaml:"predicted_daily,omitempty"`
	PredictedWeekly float64 `json:"predicted_weekly,omitempty" yaml:"predicted_weekly,omitempty"`
}

// BBS is one Bollinger-Band-Stop reading: trend direction, trailing stop
// price and the bar index the direction last flipped on.
type BBS struct {
	Direction Direction `json:"direction" yaml:"direction"`
	Stop      float64   `json:"stop" yaml:"stop"`
	Bar       int       `json:"bar" yaml:"bar"`
}

type MACD struct {
	Fast      float64 `json:"fast" yaml:"fast"`
	Slow      float64 `json:"slow" yaml:"slow"`
	Histogram float64 `json:"histogram" yaml:"histogram"`
}

// Direction is the side the MACD currently favours. strict requires the
// histogram and the line order to agree.
func (m MACD) Direction(strict bool) Direction {
	hist := None
	switch {
	case m.Histogram > 0:
		hist = Long
	case m.Histogram < 0:
		hist = Short
	}
	if !strict {
		return hist
	}
	lines := None
	switch {
	case m.Fast > m.Slow:
		lines = Long
	case m.Fast < m.Slow:
		lines = Short
	}
	if hist != lines {
		return None
	}
	return hist
}

// Levels are the support/resistance references published by the trend
// classifier, plus the high/low envelope of the bar that started the trend.
type Levels struct {
	Support      float64 `json:"support" yaml:"support"`
	Resistance   float64 `json:"resistance" yaml:"resistance"`
	BreakoutHigh float64 `json:"breakout_high,omitempty" yaml:"breakout_high,omitempty"`
	BreakoutLow  float64 `json:"breakout_low,omitempty" yaml:"breakout_low,omitempty"`
}

// Level returns the reference level an entry in direction d is measured
// from: support for longs, resistance for shorts.
func (l Levels) Level(d Direction) float64 {
	if d == Short {
		return l.Resistance
	}
	return l.Support
}

// Readings is the indicator snapshot for one cycle.
type Readings struct {
	Phase    Phase             `json:"phase" yaml:"phase"`
	Strength int               `json:"strength" yaml:"strength"`
	ATR      ATR               `json:"atr" yaml:"atr"`
	BBS      map[Timeframe]BBS `json:"bbs,omitempty" yaml:"bbs,omitempty"`
	MACD     MACD              `json:"macd" yaml:"macd"`
	Levels   Levels            `json:"levels" yaml:"levels"`
}

// BBSOn returns the BBS reading for tf; the zero reading has no direction.
func (r Readings) BBSOn(tf Timeframe) BBS {
	return r.BBS[tf]
}

// Validate rejects non-finite or negative values. It does not require any
// field to be set; phase handlers check what they consume.
func (r Readings) Validate() error {
	atrs := map[string]float64{
		"atr.primary":          r.ATR.Primary,
		"atr.daily":            r.ATR.Daily,
		"atr.weekly":           r.ATR.Weekly,
		"atr.predicted_daily":  r.ATR.PredictedDaily,
		"atr.predicted_weekly": r.ATR.PredictedWeekly,
	}
	for name, v := range atrs {
		if !finite(v) {
			return invalid("%s is not finite", name)
		}
		if v < 0 {
			return invalid("%s is negative (%v)", name, v)
		}
	}
	for name, v := range map[string]float64{
		"macd.fast":            r.MACD.Fast,
		"macd.slow":            r.MACD.Slow,
		"macd.histogram":       r.MACD.Histogram,
		"levels.support":       r.Levels.Support,
		"levels.resistance":    r.Levels.Resistance,
		"levels.breakout_high": r.Levels.BreakoutHigh,
		"levels.breakout_low":  r.Levels.BreakoutLow,
	} {
		if !finite(v) {
			return invalid("%s is not finite", name)
		}
	}
	for tf, b := range r.BBS {
		if !finite(b.Stop) {
			return invalid("bbs %s stop is not finite", tf)
		}
	}
	return nil
}
