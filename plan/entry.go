package plan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/trendengine/market"
)

// TPMode says how an entry's take-profit is chosen.
type TPMode int

const (
	// TPNone leaves the take-profit empty; the position is closed by a
	// Bollinger-Band-Stop reversal or by the stop ladder.
	TPNone TPMode = iota
	TPRatio1to1
	TPAtrRange
	TPPriceTarget
	TPLadderBreakEven
)

func (m TPMode) String() string {
	switch m {
	case TPRatio1to1:
		return "ratio_1to1"
	case TPAtrRange:
		return "atr_range"
	case TPPriceTarget:
		return "price_target"
	case TPLadderBreakEven:
		return "ladder_break_even"
	default:
		return "none"
	}
}

func ParseTPMode(s string) (TPMode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "", "none":
		return TPNone, nil
	case "ratio_1to1", "ratio":
		return TPRatio1to1, nil
	case "atr_range", "atr":
		return TPAtrRange, nil
	case "price_target", "target":
		return TPPriceTarget, nil
	case "ladder_break_even", "ladder":
		return TPLadderBreakEven, nil
	default:
		return TPNone, fmt.Errorf("unknown take-profit mode %q", s)
	}
}

func (m TPMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TPMode) UnmarshalText(b []byte) error {
	v, err := ParseTPMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MaxRisk is the upper bound of a risk fraction. Rules may double the base
// risk of 1.0 but never more.
const MaxRisk = 2.0

// DedupeKey identifies an entry for same-day duplicate suppression: any
// same-direction order opened on Day within Tolerance of Price is the same
// entry.
type DedupeKey struct {
	Price     float64
	Tolerance float64
	Day       string
}

// DayKey formats t as the calendar day used in duplicate keys.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Covers reports whether an order opened at price on t collides with k.
func (k DedupeKey) Covers(price float64, t time.Time) bool {
	if k.Day == "" || DayKey(t) != k.Day {
		return false
	}
	return math.Abs(price-k.Price) <= k.Tolerance
}

// CandidateEntry is the Evaluator's proposal for one cycle.
type CandidateEntry struct {
	Direction  market.Direction
	Price      float64
	StopLoss   float64
	TakeProfit float64
	TPMode     TPMode

	// Risk is the fraction of the configured per-trade risk, in [0, MaxRisk].
	Risk float64

	// ATR is the volatility unit ATR-based split strategies expand from.
	ATR    float64
	Digits int

	Key    DedupeKey
	Phase  market.Phase
	Time   time.Time
	Reason string
}

// StopDistance is the price distance from entry to stop.
func (e CandidateEntry) StopDistance() float64 {
	return math.Abs(e.Price - e.StopLoss)
}

// Valid reports whether the entry can be expanded into legs: a direction,
// finite positive prices, a stop on the losing side and a risk in range.
func (e CandidateEntry) Valid() bool {
	if e.Direction == market.None {
		return false
	}
	for _, v := range []float64{e.Price, e.StopLoss, e.TakeProfit, e.Risk, e.ATR} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if e.Price <= 0 || e.StopLoss <= 0 {
		return false
	}
	if !e.Direction.Favorable(e.Price, e.StopLoss) {
		return false
	}
	return e.Risk > 0 && e.Risk <= MaxRisk
}
