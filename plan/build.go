package plan

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendengine/market"
	"github.com/shopspring/decimal"
)

const fractionEpsilon = 1e-9

// Leg is one order of a plan.
type Leg struct {
	Direction market.Direction
	// Price is the limit price; 0 means a market order.
	Price    float64
	StopLoss float64
	// TakeProfit of 0 means none; the leg is closed by trailing rules.
	TakeProfit float64

	// Fraction is the leg's share of the plan; fractions sum to <= 1.
	Fraction float64
	// Risk is Fraction times the plan's total risk.
	Risk float64
	// Lots is filled in by the caller once the plan is sized.
	Lots float64

	Tag string
}

// Market reports whether the leg is a market order.
func (l Leg) Market() bool { return l.Price == 0 }

// Build expands e into legs under the split strategy kind. Legs whose
// take-profit is not strictly favorable versus their entry price or not a
// positive price, or whose limit price sits beyond the stop, are dropped. An invalid entry or a
// non-positive total risk yields no legs.
func Build(e CandidateEntry, totalRisk float64, kind Kind) []Leg {
	s, ok := Lookup(kind)
	if !ok || !e.Valid() {
		return nil
	}
	if math.IsNaN(totalRisk) || totalRisk <= 0 {
		return nil
	}
	totalRisk = math.Min(totalRisk, MaxRisk)

	dir := e.Direction
	unit := e.StopDistance()
	stop := Round(e.StopLoss, e.Digits)

	var (
		legs []Leg
		sum  float64
	)
	for i, tier := range s.Tiers {
		var price, tp float64
		ref := e.Price
		// a computed take-profit must come out positive; 0 only means
		// "none" for BasisEntry and BasisNone
		computed := true

		switch s.Basis {
		case BasisEntry:
			tp = e.TakeProfit
			computed = false
		case BasisStop:
			tp = dir.Offset(e.Price, unit*tier.Multiple)
		case BasisATR:
			if e.ATR <= 0 {
				continue
			}
			tp = dir.Offset(e.Price, e.ATR*tier.Multiple)
		case BasisRetrace:
			price = dir.Offset(e.Price, -unit*tier.Retrace)
			tp = dir.Offset(e.Price, unit*tier.Multiple)
		case BasisNone:
			computed = false
			if s.PullbackATR > 0 && e.ATR > 0 {
				price = dir.Offset(e.Price, -e.ATR*s.PullbackATR)
			}
		}

		price = Round(price, e.Digits)
		tp = Round(tp, e.Digits)
		if price != 0 {
			ref = price
		}

		if computed && tp <= 0 {
			continue
		}
		if tp < 0 || tp != 0 && !dir.Favorable(tp, ref) {
			continue
		}
		if price != 0 && !dir.Favorable(price, stop) {
			continue
		}
		if sum+tier.Fraction > 1+fractionEpsilon {
			continue
		}
		sum += tier.Fraction

		legs = append(legs, Leg{
			Direction:  dir,
			Price:      price,
			StopLoss:   stop,
			TakeProfit: tp,
			Fraction:   tier.Fraction,
			Risk:       tier.Fraction * totalRisk,
			Tag:        tag(s.Code, e, i+1),
		})
	}
	return legs
}

// Round rounds x to digits decimals. digits <= 0 leaves x unchanged.
func Round(x float64, digits int) float64 {
	if x == 0 || digits <= 0 {
		return x
	}
	return decimal.NewFromFloat(x).Round(int32(digits)).InexactFloat64()
}

// tag builds the deterministic leg identifier: split code, side, leg number,
// entry price and calendar day. The same entry always yields the same tags,
// so a leg that is already working is never submitted twice.
func tag(code string, e CandidateEntry, n int) string {
	side := "L"
	if e.Direction == market.Short {
		side = "S"
	}
	day := "0"
	if !e.Time.IsZero() {
		day = e.Time.Format("20060102")
	}
	price := decimal.NewFromFloat(e.Price)
	if e.Digits > 0 {
		price = price.Round(int32(e.Digits))
	}
	return fmt.Sprintf("%s-%s-%d-%s-%s", code, side, n, price.String(), day)
}

// TotalFraction sums the lot fractions of legs.
func TotalFraction(legs []Leg) float64 {
	var sum float64
	for _, l := range legs {
		sum += l.Fraction
	}
	return sum
}
