package engine

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendengine/broker"
	"github.com/rustyeddy/trendengine/broker/paper"
	"github.com/rustyeddy/trendengine/journal"
	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/orders"
	"github.com/rustyeddy/trendengine/plan"
	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/risk"
	"github.com/rustyeddy/trendengine/strategies"
	"github.com/rustyeddy/trendengine/turning"
)

var barTime = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func resolver() *profile.Resolver {
	p := profile.Default()
	p.ID = "EURUSD"
	p.Split = plan.ShortTerm
	return profile.NewResolver(p)
}

func options() Options {
	cfg := strategies.DefaultConfig()
	cfg.AdjustMargin = 0.0005
	return Options{
		Resolver: resolver(),
		Policy:   risk.DefaultPolicy(),
		Strategy: cfg,
		Orders:   orders.DefaultConfig(),
		Sizing:   DefaultSizing(),
	}
}

// middleUp is the MiddleUp scenario on a 10k account.
func middleUp() Cycle {
	return Cycle{
		Snapshot: market.Snapshot{Instrument: "EURUSD", Bid: 1.2048, Ask: 1.2050, Time: barTime},
		Readings: market.Readings{
			Phase:    market.MiddleUp,
			Strength: 4,
			ATR:      market.ATR{Primary: 0.0050},
			BBS:      map[market.Timeframe]market.BBS{market.H1: {Direction: market.Long, Stop: 1.1990}},
			Levels:   market.Levels{Support: 1.2000, Resistance: 1.2100},
		},
		Account: risk.AccountState{Balance: 10_000, Equity: 10_000, PeakEquity: 10_000},
	}
}

func paperBroker() *paper.Broker {
	b := paper.New("USD", 10_000, nil)
	b.UpdatePrice("EURUSD", paper.Quote{Bid: 1.2048, Ask: 1.2050, Time: barTime})
	return b
}

func TestRunMiddleUpScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := paperBroker()
	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	opts := options()
	opts.Transport = b
	opts.Journal = j
	e := New(opts)

	res, err := e.Run(ctx, middleUp())
	require.NoError(t, err)
	require.Equal(t, strategies.ActEnter, res.Signal.Action, "reason: %s", res.Signal.Reason)
	assert.Equal(t, "EURUSD", res.Profile)
	assert.NoError(t, res.DispatchErr)

	require.Len(t, res.Actions, 3)
	wantTP := []float64{1.2150, 1.2175, 1.2250}
	wantLots := []float64{0.03, 0.04, 0.03}
	for i, a := range res.Actions {
		assert.Equal(t, orders.Open, a.Kind)
		assert.InDelta(t, 1.1950, a.Leg.StopLoss, 1e-9)
		assert.InDelta(t, wantTP[i], a.Leg.TakeProfit, 1e-9)
		assert.InDelta(t, wantLots[i], a.Leg.Lots, 1e-9)
		assert.Equal(t, int64(i+1), res.Outcomes[i].Ticket)
	}

	working, err := b.Orders(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Len(t, working, 3)

	rec, err := e.Store().Load(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, market.Long, rec.LastDirection)
	assert.True(t, rec.Turning)

	cycles, err := j.ListCycles("EURUSD", barTime, barTime.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, res.ID, cycles[0].ID)
	assert.Equal(t, "enter", cycles[0].Signal)
	assert.Equal(t, 3, cycles[0].Actions)

	acts, err := j.ListActions(res.ID)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, int64(2), acts[1].Ticket)
	assert.Equal(t, "open", acts[1].Kind)
	for i, want := range []float64{1, 1.25, 2} {
		assert.InDelta(t, want, acts[i].RR, 1e-6)
	}
}

func TestRunIsIdempotentAgainstPlacedOrders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := paperBroker()
	opts := options()
	opts.Transport = b
	e := New(opts)

	_, err := e.Run(ctx, middleUp())
	require.NoError(t, err)

	c := middleUp()
	c.Orders, err = b.Orders(ctx, "EURUSD")
	require.NoError(t, err)
	res, err := e.Run(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "duplicate", res.Signal.Reason)
	assert.Empty(t, res.Actions)
}

func TestRunRangeScenario(t *testing.T) {
	t.Parallel()

	c := middleUp()
	c.Readings.Phase = market.Range
	c.Readings.Strength = 0

	res, err := New(options()).Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, strategies.ActNone, res.Signal.Action)
	assert.Empty(t, res.Actions)
	assert.True(t, res.Plan.Empty())
}

func TestRunInvalidSnapshot(t *testing.T) {
	t.Parallel()

	c := middleUp()
	c.Snapshot.Bid = math.NaN()

	res, err := New(options()).Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "invalid_input", res.Signal.Reason)
	assert.Empty(t, res.Actions)
}

func TestRunRiskBlocked(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(mtxRiskBlocks.WithLabelValues("LOSS_STREAK"))

	c := middleUp()
	c.Day = risk.DayState{Date: barTime, Losses: 2}
	res, err := New(options()).Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "risk_blocked", res.Signal.Reason)
	assert.True(t, res.Plan.ClosePending)
	assert.Empty(t, res.Actions)

	assert.Greater(t, testutil.ToFloat64(mtxRiskBlocks.WithLabelValues("LOSS_STREAK")), before)
}

func TestRunLossStreakFlattensPendingWithoutEntry(t *testing.T) {
	t.Parallel()

	pending := market.Order{
		Ticket: 7, Instrument: "EURUSD", Direction: market.Long,
		OpenPrice: 1.2000, InitialStop: 1.1950, StopLoss: 1.1950, TakeProfit: 1.2100,
		Lots: 0.05, OpenTime: barTime.Add(-time.Hour), Open: true, Pending: true,
	}
	filled := pending
	filled.Ticket, filled.Pending, filled.OpenPrice = 8, false, 1.2030

	tests := []struct {
		name     string
		phase    market.Phase
		strength int
		day      risk.DayState
		want     []orders.Action
	}{
		{
			name:  "range after two losses",
			phase: market.Range,
			day:   risk.DayState{Date: barTime, Losses: 2},
			want:  []orders.Action{{Kind: orders.Close, Ticket: 7, Reason: "flatten_pending"}},
		},
		{
			name:     "weak trend after two losses",
			phase:    market.MiddleUp,
			strength: 1,
			day:      risk.DayState{Date: barTime, Losses: 2},
			want:     []orders.Action{{Kind: orders.Close, Ticket: 7, Reason: "flatten_pending"}},
		},
		{
			name:  "losses from yesterday",
			phase: market.Range,
			day:   risk.DayState{Date: barTime.Add(-24 * time.Hour), Losses: 2},
		},
		{
			name:  "one loss",
			phase: market.Range,
			day:   risk.DayState{Date: barTime, Losses: 1},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := middleUp()
			c.Readings.Phase = tt.phase
			if tt.strength != 0 {
				c.Readings.Strength = tt.strength
			}
			c.Day = tt.day
			c.Orders = []market.Order{pending, filled}

			res, err := New(options()).Run(context.Background(), c)
			require.NoError(t, err)
			assert.NotEqual(t, strategies.ActEnter, res.Signal.Action)

			var closes []orders.Action
			for _, a := range res.Actions {
				if a.Kind == orders.Close {
					closes = append(closes, a)
				}
			}
			assert.Equal(t, tt.want, closes)
			assert.Equal(t, tt.want != nil, res.Plan.ClosePending)
		})
	}
}

func TestRunConfirmedTrendDoublesRisk(t *testing.T) {
	t.Parallel()

	c := middleUp()
	c.Readings.Strength = 5
	c.Orders = []market.Order{{
		Ticket: 4, Instrument: "EURUSD", Direction: market.Long,
		OpenPrice: 1.1800, InitialStop: 1.1750, StopLoss: 1.1850,
		OpenTime: barTime.Add(-30 * time.Hour), CloseTime: barTime.Add(-2 * time.Hour),
		ClosePrice: 1.1950, Lots: 0.1,
	}}

	e := New(options())
	res, err := e.Run(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, strategies.ActEnter, res.Signal.Action, "reason: %s", res.Signal.Reason)
	assert.Equal(t, 2.0, res.Signal.Entry.Risk)
	require.Len(t, res.Actions, 3)
	assert.InDelta(t, 0.08, res.Actions[1].Leg.Lots, 1e-9)

	rec, err := e.Store().Load(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.True(t, rec.Confirmed(market.Long))
}

type failingTransport struct{}

func (failingTransport) Open(context.Context, broker.OpenRequest) (int64, error) {
	return 0, errors.New("market closed")
}
func (failingTransport) Modify(context.Context, int64, float64, float64) error { return nil }
func (failingTransport) Close(context.Context, int64) error                     { return nil }

func TestRunTransportFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	opts := options()
	opts.Transport = failingTransport{}
	opts.Journal = j
	e := New(opts)

	res, err := e.Run(context.Background(), middleUp())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)
	assert.Error(t, res.DispatchErr)
	for _, o := range res.Outcomes {
		assert.Error(t, o.Err)
	}

	rec, err := e.Store().Load(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, turning.Initial(), rec, "failed opens leave the record alone")

	acts, err := j.ListActions(res.ID)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, "market closed", acts[0].Err)
}

type panicStore struct{ turning.MemoryStore }

func (*panicStore) Load(context.Context, string) (turning.Record, error) {
	panic("store exploded")
}

type brokenStore struct{ turning.MemoryStore }

func (*brokenStore) Load(context.Context, string) (turning.Record, error) {
	return turning.Record{}, errors.New("connection refused")
}

func TestRunRecoversPanic(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.Store = &panicStore{}
	_, err := New(opts).Run(context.Background(), middleUp())
	require.ErrorIs(t, err, ErrCyclePanic)
	assert.Contains(t, err.Error(), "store exploded")
}

func TestRunStoreError(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.Store = &brokenStore{}
	_, err := New(opts).Run(context.Background(), middleUp())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCyclePanic)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(options()).Run(ctx, middleUp())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFillsIndicators(t *testing.T) {
	t.Parallel()

	bars := make([]market.Bar, 40)
	for i := range bars {
		bars[i] = market.Bar{Time: barTime.Add(time.Duration(i-40) * time.Hour), Open: 1.2040, High: 1.2065, Low: 1.2015, Close: 1.2040}
	}
	c := middleUp()
	c.Readings.ATR = market.ATR{}
	c.Snapshot.Primary = market.H1
	c.Snapshot.Series = map[market.Timeframe]market.Series{market.H1: market.NewSeries(bars...)}

	opts := options()
	res, err := New(opts).Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "no_atr", res.Signal.Reason)

	opts.FillIndicators = true
	res, err = New(opts).Run(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, strategies.ActEnter, res.Signal.Action, "reason: %s", res.Signal.Reason)
	assert.InDelta(t, 0.0050, res.Signal.Entry.ATR, 1e-6)
}
