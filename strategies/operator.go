package strategies

import (
	"github.com/rustyeddy/trendengine/market"
)

// trendOperator holds the direction-dependent comparisons so one handler
// serves both sides of the market.
type trendOperator struct {
	dir market.Direction

	// beyond is how far price sits past ref in the trade's favour;
	// negative when it is on the losing side.
	beyond func(price, ref float64) float64
	// extreme is the bar price on the trade's losing side.
	extreme func(b market.Bar) float64
	// keyK reports whether b closes in the trade's third of its range.
	keyK func(b market.Bar) bool
}

func bullishOperator() trendOperator {
	return trendOperator{
		dir:     market.Long,
		beyond:  func(price, ref float64) float64 { return price - ref },
		extreme: func(b market.Bar) float64 { return b.Low },
		keyK:    func(b market.Bar) bool { return b.High-b.Close <= b.Range()/3 },
	}
}

func bearishOperator() trendOperator {
	return trendOperator{
		dir:     market.Short,
		beyond:  func(price, ref float64) float64 { return ref - price },
		extreme: func(b market.Bar) float64 { return b.High },
		keyK:    func(b market.Bar) bool { return b.Close-b.Low <= b.Range()/3 },
	}
}

func operatorFor(d market.Direction) (trendOperator, bool) {
	switch d {
	case market.Long:
		return bullishOperator(), true
	case market.Short:
		return bearishOperator(), true
	default:
		return trendOperator{}, false
	}
}

// KeyK classifies bar b: a bar whose range exceeds minRange and whose close
// sits within a third of the range from its high is bullish, from its low
// bearish. Anything else is None.
func KeyK(b market.Bar, minRange float64) market.Direction {
	r := b.Range()
	if r <= 0 || r <= minRange {
		return market.None
	}
	switch {
	case bullishOperator().keyK(b):
		return market.Long
	case bearishOperator().keyK(b):
		return market.Short
	default:
		return market.None
	}
}

// inEnvelope reports whether price has pulled back inside the high/low
// envelope of the bar that started the trend.
func inEnvelope(price float64, l market.Levels) bool {
	return l.BreakoutLow > 0 && l.BreakoutHigh >= l.BreakoutLow &&
		price >= l.BreakoutLow && price <= l.BreakoutHigh
}
