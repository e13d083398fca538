package strategies

import (
	"time"

	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/turning"
)

// DuplicateKey builds the same-day suppression key for an entry in d at
// price. The tolerance is ATR over the profile's range divisor, halved
// while the turning record confirms a trend in d.
func DuplicateKey(price, atr float64, p profile.Profile, rec turning.Record, d market.Direction, t time.Time) plan.DedupeKey {
	tol := atr / p.RangeDivisor()
	if rec.Confirmed(d) {
		tol /= 2
	}
	return plan.DedupeKey{
		Price:     plan.Round(price, p.Digits),
		Tolerance: tol,
		Day:       plan.DayKey(t),
	}
}

// duplicate returns the first same-direction order, open or closed, that
// key covers.
func duplicate(key plan.DedupeKey, d market.Direction, orders []market.Order) (market.Order, bool) {
	for _, o := range orders {
		if o.Direction != d || o.OpenTime.IsZero() {
			continue
		}
		if key.Covers(o.OpenPrice, o.OpenTime) {
			return o, true
		}
	}
	return market.Order{}, false
}
