package plan

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/trendengine/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKinds = []Kind{Single, ShortTerm, LongTermNoTp, KeyK, AtrTiered, FibonacciLimit, FourHourSwing}

func longEntry() CandidateEntry {
	return CandidateEntry{
		Direction: market.Long,
		Price:     1.2050,
		StopLoss:  1.1950,
		Risk:      1.0,
		ATR:       0.0050,
		Digits:    5,
		Phase:     market.MiddleUp,
		Time:      time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildShortTermScenario(t *testing.T) {
	t.Parallel()

	legs := Build(longEntry(), 1.0, ShortTerm)
	require.Len(t, legs, 3)

	wantFraction := []float64{0.3, 0.4, 0.3}
	wantTP := []float64{1.2150, 1.2175, 1.2250}
	for i, l := range legs {
		assert.Equal(t, market.Long, l.Direction)
		assert.True(t, l.Market(), "leg %d should be a market order", i)
		assert.InDelta(t, wantFraction[i], l.Fraction, 1e-12)
		assert.InDelta(t, wantFraction[i], l.Risk, 1e-12)
		assert.InDelta(t, wantTP[i], l.TakeProfit, 1e-9)
		assert.InDelta(t, 1.1950, l.StopLoss, 1e-9)
	}
	assert.InDelta(t, 1.0, TotalFraction(legs), 1e-9)
}

func TestBuildTagsAreDeterministic(t *testing.T) {
	t.Parallel()

	a := Build(longEntry(), 1.0, ShortTerm)
	b := Build(longEntry(), 1.0, ShortTerm)
	require.Len(t, a, 3)
	for i := range a {
		assert.Equal(t, a[i].Tag, b[i].Tag)
	}
	assert.Equal(t, "ST-L-1-1.205-20240305", a[0].Tag)
	assert.NotEqual(t, a[0].Tag, a[1].Tag)
}

func TestBuildScalesRiskNotFractions(t *testing.T) {
	t.Parallel()

	legs := Build(longEntry(), 0.5, KeyK)
	require.Len(t, legs, 2)
	assert.InDelta(t, 0.5, legs[0].Fraction, 1e-12)
	assert.InDelta(t, 0.25, legs[0].Risk, 1e-12)

	legs = Build(longEntry(), 5, Single)
	require.Len(t, legs, 1)
	assert.InDelta(t, MaxRisk, legs[0].Risk, 1e-12, "total risk is capped")
}

func TestBuildSingleUsesEntryTakeProfit(t *testing.T) {
	t.Parallel()

	e := longEntry()
	e.TakeProfit = 1.2150
	legs := Build(e, 1.0, Single)
	require.Len(t, legs, 1)
	assert.InDelta(t, 1.2150, legs[0].TakeProfit, 1e-9)

	// A take-profit on the losing side drops the leg.
	e.TakeProfit = 1.2000
	assert.Empty(t, Build(e, 1.0, Single))

	// No take-profit at all is a valid trailing leg.
	e.TakeProfit = 0
	legs = Build(e, 1.0, Single)
	require.Len(t, legs, 1)
	assert.Equal(t, 0.0, legs[0].TakeProfit)
}

func TestBuildShortDirection(t *testing.T) {
	t.Parallel()

	e := CandidateEntry{
		Direction: market.Short,
		Price:     1.2000,
		StopLoss:  1.2100,
		Risk:      1,
		ATR:       0.0040,
		Digits:    5,
	}
	legs := Build(e, 1, AtrTiered)
	require.Len(t, legs, 2)
	assert.InDelta(t, 1.1960, legs[0].TakeProfit, 1e-9)
	assert.InDelta(t, 1.1920, legs[1].TakeProfit, 1e-9)
	assert.Contains(t, legs[0].Tag, "AT-S-1-")
}

func TestBuildFibonacciLimits(t *testing.T) {
	t.Parallel()

	legs := Build(longEntry(), 1, FibonacciLimit)
	require.Len(t, legs, 2)
	assert.InDelta(t, 1.20118, legs[0].Price, 1e-9)
	assert.InDelta(t, 1.2000, legs[1].Price, 1e-9)
	for _, l := range legs {
		assert.False(t, l.Market())
		assert.InDelta(t, 1.2150, l.TakeProfit, 1e-9)
	}
}

func TestBuildLongTermPullback(t *testing.T) {
	t.Parallel()

	legs := Build(longEntry(), 1, LongTermNoTp)
	require.Len(t, legs, 1)
	assert.InDelta(t, 1.2025, legs[0].Price, 1e-9)
	assert.Equal(t, 0.0, legs[0].TakeProfit)

	e := longEntry()
	e.ATR = 0
	legs = Build(e, 1, LongTermNoTp)
	require.Len(t, legs, 1)
	assert.True(t, legs[0].Market())
}

func TestBuildATRBasisNeedsATR(t *testing.T) {
	t.Parallel()

	e := longEntry()
	e.ATR = 0
	assert.Empty(t, Build(e, 1, FourHourSwing))
}

func TestBuildDropsNonPositiveTakeProfit(t *testing.T) {
	t.Parallel()

	// a cheap short: the ATR multiples run through zero
	e := CandidateEntry{
		Direction: market.Short,
		Price:     0.0100,
		StopLoss:  0.0150,
		Risk:      1,
		ATR:       0.0050,
		Digits:    4,
		Phase:     market.MiddleDown,
		Time:      time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}

	legs := Build(e, 1, FourHourSwing)
	require.Len(t, legs, 1, "TP 0.0 and -0.005 legs are dropped")
	assert.InDelta(t, 0.0050, legs[0].TakeProfit, 1e-12)
	assert.InDelta(t, 0.4, legs[0].Fraction, 1e-12)

	// no take-profit is still a valid leg for the trailing strategies
	legs = Build(e, 1, LongTermNoTp)
	require.Len(t, legs, 1)
	assert.Zero(t, legs[0].TakeProfit)

	e.TakeProfit = -0.002
	assert.Empty(t, Build(e, 1, Single))
}

func TestBuildRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mut  func(*CandidateEntry)
		risk float64
	}{
		{"no direction", func(e *CandidateEntry) { e.Direction = market.None }, 1},
		{"stop above long entry", func(e *CandidateEntry) { e.StopLoss = 1.2100 }, 1},
		{"zero risk", func(e *CandidateEntry) {}, 0},
		{"entry risk out of range", func(e *CandidateEntry) { e.Risk = 3 }, 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := longEntry()
			tt.mut(&e)
			assert.Empty(t, Build(e, tt.risk, ShortTerm))
		})
	}
}

// Randomised entries never produce a take-profit on the losing side, and
// plan fractions never exceed one.
func TestBuildProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		dir := market.Long
		if rng.Intn(2) == 0 {
			dir = market.Short
		}
		price := 0.5 + rng.Float64()*2
		dist := 0.0001 + rng.Float64()*0.02
		e := CandidateEntry{
			Direction:  dir,
			Price:      price,
			StopLoss:   dir.Offset(price, -dist),
			TakeProfit: dir.Offset(price, (rng.Float64()-0.3)*0.02),
			Risk:       0.1 + rng.Float64()*1.9,
			ATR:        rng.Float64() * 0.01,
			Digits:     rng.Intn(6),
		}
		kind := allKinds[rng.Intn(len(allKinds))]
		total := rng.Float64() * 2

		legs := Build(e, total, kind)
		assert.LessOrEqual(t, TotalFraction(legs), 1.0+1e-9)

		var risk float64
		for _, l := range legs {
			risk += l.Risk
			if l.TakeProfit == 0 {
				continue
			}
			entry := l.Price
			if entry == 0 {
				entry = Round(e.Price, e.Digits)
				if e.Digits <= 0 {
					entry = e.Price
				}
			}
			assert.True(t, dir.Favorable(l.TakeProfit, entry) || dir.Favorable(l.TakeProfit, e.Price),
				"kind %s leg %+v entry %+v", kind, l, e)
		}
		assert.LessOrEqual(t, risk, total+1e-9)
	}
}

func TestDedupeKeyCovers(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	k := DedupeKey{Price: 1.2050, Tolerance: 0.0010, Day: DayKey(day)}

	assert.True(t, k.Covers(1.2055, day.Add(3*time.Hour)))
	assert.False(t, k.Covers(1.2070, day))
	assert.False(t, k.Covers(1.2050, day.Add(24*time.Hour)))
	assert.False(t, DedupeKey{}.Covers(1.2050, day))
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range allKinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind("Short-Term")
	require.NoError(t, err)
	assert.Equal(t, ShortTerm, got)

	_, err = ParseKind("martingale")
	assert.Error(t, err)
}
