// Package indicators computes the readings a recorded cycle may leave out.
// Live readings come from the classifier; this is for replay input.
package indicators

import (
	"fmt"
	"maps"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/trendengine/market"
)

const (
	ATRPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
	BBPeriod   = 20
	BBDev      = 2.0
)

func closes(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// bars returns the series up to and including its current bar.
func bars(s market.Series) []market.Bar {
	return s.Window(len(s.Bars))
}

// ATR returns the Wilder ATR of the series at its current bar.
func ATR(s market.Series, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	bs := bars(s)
	if len(bs) < period+1 {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period+1, len(bs))
	}

	highs := make([]float64, len(bs))
	lows := make([]float64, len(bs))
	for i, b := range bs {
		highs[i], lows[i] = b.High, b.Low
	}
	out := talib.Atr(highs, lows, closes(bs), period)
	return out[len(out)-1], nil
}

// MACD returns the MACD line (Fast), its signal line (Slow) and the
// histogram at the series' current bar.
func MACD(s market.Series, fast, slow, signal int) (market.MACD, error) {
	bs := bars(s)
	need := slow + signal - 1
	if len(bs) < need {
		return market.MACD{}, fmt.Errorf("not enough bars: need %d, got %d", need, len(bs))
	}
	line, sig, hist := talib.Macd(closes(bs), fast, slow, signal)
	n := len(bs) - 1
	return market.MACD{Fast: line[n], Slow: sig[n], Histogram: hist[n]}, nil
}

// BBS runs a Bollinger-band stop over the series. A close above the upper
// band turns the trend long with the stop on the lower band; a close below
// the lower band turns it short. The stop only ratchets with the trend.
func BBS(s market.Series, period int, dev float64) (market.BBS, error) {
	bs := bars(s)
	if len(bs) < period {
		return market.BBS{}, fmt.Errorf("not enough bars: need %d, got %d", period, len(bs))
	}
	cs := closes(bs)
	upper, _, lower := talib.BBands(cs, period, dev, dev, talib.SMA)

	var out market.BBS
	for i := period - 1; i < len(cs); i++ {
		switch {
		case cs[i] > upper[i] && out.Direction != market.Long:
			out = market.BBS{Direction: market.Long, Stop: lower[i], Bar: i}
		case cs[i] < lower[i] && out.Direction != market.Short:
			out = market.BBS{Direction: market.Short, Stop: upper[i], Bar: i}
		case out.Direction == market.Long:
			out.Stop = math.Max(out.Stop, lower[i])
		case out.Direction == market.Short:
			out.Stop = math.Min(out.Stop, upper[i])
		}
	}
	return out, nil
}

// Fill returns r with empty readings computed from the snapshot's series:
// the primary ATR and MACD from the primary timeframe, daily and weekly ATR
// from D1/W1, and a BBS reading for every timeframe that has none. Series
// too short for an indicator leave its reading empty.
func Fill(r market.Readings, s market.Snapshot) market.Readings {
	primary, ok := s.Bars(s.Primary)
	if ok {
		if r.ATR.Primary == 0 {
			if v, err := ATR(primary, ATRPeriod); err == nil {
				r.ATR.Primary = v
			}
		}
		if r.MACD == (market.MACD{}) {
			if v, err := MACD(primary, MACDFast, MACDSlow, MACDSignal); err == nil {
				r.MACD = v
			}
		}
	}

	for tf, dst := range map[market.Timeframe]*float64{market.D1: &r.ATR.Daily, market.W1: &r.ATR.Weekly} {
		ser, ok := s.Bars(tf)
		if !ok || *dst != 0 {
			continue
		}
		if v, err := ATR(ser, ATRPeriod); err == nil {
			*dst = v
		}
	}

	r.BBS = maps.Clone(r.BBS)
	for tf, ser := range s.Series {
		if _, ok := r.BBS[tf]; ok {
			continue
		}
		v, err := BBS(ser, BBPeriod, BBDev)
		if err != nil || v.Direction == market.None {
			continue
		}
		if r.BBS == nil {
			r.BBS = make(map[market.Timeframe]market.BBS)
		}
		r.BBS[tf] = v
	}
	return r
}
