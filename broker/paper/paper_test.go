package paper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendengine/broker"
	"github.com/rustyeddy/trendengine/market"
)

var t0 = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func newBroker(t *testing.T) *Broker {
	t.Helper()
	b := New("USD", 10_000, nil)
	b.UpdatePrice("EURUSD", Quote{Bid: 1.2048, Ask: 1.2050, Time: t0})
	return b
}

func TestOpenFillsAtBidAsk(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	long, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Long, StopLoss: 1.1950, Lots: 0.1})
	require.NoError(t, err)
	short, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Short, StopLoss: 1.2150, Lots: 0.1})
	require.NoError(t, err)

	orders, err := b.Orders(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, long, orders[0].Ticket)
	assert.Equal(t, 1.2050, orders[0].OpenPrice)
	assert.Equal(t, 1.1950, orders[0].InitialStop)
	assert.Equal(t, short, orders[1].Ticket)
	assert.Equal(t, 1.2048, orders[1].OpenPrice)
}

func TestOpenRejects(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	_, err := b.Open(ctx, broker.OpenRequest{Instrument: "GBPUSD", Direction: market.Long, Lots: 0.1})
	assert.Error(t, err)
	_, err = b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.None, Lots: 0.1})
	assert.Error(t, err)
	_, err = b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Long})
	assert.Error(t, err)
}

func TestStopAndTakeProfitTriggers(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	tp, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Long, StopLoss: 1.1950, TakeProfit: 1.2150, Lots: 0.1})
	require.NoError(t, err)
	sl, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Short, StopLoss: 1.2100, Lots: 0.1})
	require.NoError(t, err)

	closed := b.UpdatePrice("EURUSD", Quote{Bid: 1.2100, Ask: 1.2102, Time: t0.Add(time.Hour)})
	require.Len(t, closed, 1)
	assert.Equal(t, sl, closed[0].Ticket)
	assert.Equal(t, 1.2102, closed[0].ClosePrice)
	assert.InDelta(t, -54.0, closed[0].Profit, 1e-6)

	closed = b.UpdatePrice("EURUSD", Quote{Bid: 1.2150, Ask: 1.2152, Time: t0.Add(2 * time.Hour)})
	require.Len(t, closed, 1)
	assert.Equal(t, tp, closed[0].Ticket)
	assert.InDelta(t, 100.0, closed[0].Profit, 1e-6)
	assert.True(t, closed[0].Closed())

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10_046.0, acct.Balance, 1e-6)
	assert.Equal(t, acct.Balance, acct.Equity)
}

func TestLimitOrderFills(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	ticket, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Long, Price: 1.2020, StopLoss: 1.1950, Lots: 0.1})
	require.NoError(t, err)

	orders, _ := b.Orders(ctx, "EURUSD")
	require.True(t, orders[0].Pending)

	b.UpdatePrice("EURUSD", Quote{Bid: 1.2030, Ask: 1.2032, Time: t0.Add(time.Hour)})
	orders, _ = b.Orders(ctx, "EURUSD")
	assert.True(t, orders[0].Pending)

	b.UpdatePrice("EURUSD", Quote{Bid: 1.2018, Ask: 1.2020, Time: t0.Add(2 * time.Hour)})
	orders, _ = b.Orders(ctx, "EURUSD")
	assert.False(t, orders[0].Pending)
	assert.Equal(t, 1.2020, orders[0].OpenPrice)
	assert.Equal(t, t0.Add(2*time.Hour), orders[0].OpenTime)

	require.NoError(t, b.Close(ctx, ticket))
	orders, _ = b.Orders(ctx, "EURUSD")
	assert.InDelta(t, -2.0, orders[0].Profit, 1e-6)
}

func TestCancelPending(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	ticket, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Short, Price: 1.2100, Lots: 0.1})
	require.NoError(t, err)
	require.NoError(t, b.Close(ctx, ticket))

	orders, _ := b.Orders(ctx, "EURUSD")
	assert.False(t, orders[0].Open)
	assert.Equal(t, 0.0, orders[0].Profit)

	acct, _ := b.Account(ctx)
	assert.Equal(t, 10_000.0, acct.Balance)
}

func TestModifyAndUnknownTicket(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	ticket, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Long, StopLoss: 1.1950, TakeProfit: 1.2200, Lots: 0.1})
	require.NoError(t, err)

	require.NoError(t, b.Modify(ctx, ticket, 1.2000, 0))
	orders, _ := b.Orders(ctx, "EURUSD")
	assert.Equal(t, 1.2000, orders[0].StopLoss)
	assert.Equal(t, 1.2200, orders[0].TakeProfit)
	assert.Equal(t, 1.1950, orders[0].InitialStop)

	assert.ErrorIs(t, b.Modify(ctx, 99, 1.2, 0), broker.ErrUnknownTicket)
	require.NoError(t, b.Close(ctx, ticket))
	assert.ErrorIs(t, b.Close(ctx, ticket), broker.ErrUnknownTicket)
}

func TestAccountFloating(t *testing.T) {
	t.Parallel()

	b := newBroker(t)
	ctx := context.Background()

	_, err := b.Open(ctx, broker.OpenRequest{Instrument: "EURUSD", Direction: market.Long, Lots: 1})
	require.NoError(t, err)
	b.UpdatePrice("EURUSD", Quote{Bid: 1.2100, Ask: 1.2102, Time: t0.Add(time.Hour)})

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, acct.FloatingPL, 1e-6)
	assert.InDelta(t, 10_500.0, acct.Equity, 1e-6)
	assert.Equal(t, "USD", acct.Currency)
}
