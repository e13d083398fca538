// Package broker is the order transport contract the engine dispatches
// actions through. Transports retry on their own; callers never do.
package broker

import (
	"context"
	"errors"

	"github.com/rustyeddy/trendengine/market"
)

// ErrUnknownTicket is returned for a ticket the transport has no record
// of, or one that is already closed.
var ErrUnknownTicket = errors.New("unknown ticket")

type OpenRequest struct {
	Instrument string
	Direction  market.Direction
	// Price is the limit price; 0 opens at market.
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Lots       float64
	Tag        string
}

// Transport places, modifies and closes orders.
type Transport interface {
	Open(ctx context.Context, req OpenRequest) (int64, error)
	// Modify sets the stop and take-profit of ticket. A zero level is
	// left unchanged.
	Modify(ctx context.Context, ticket int64, stop, takeProfit float64) error
	Close(ctx context.Context, ticket int64) error
}

// Account is the session and balance view the risk governor reads.
type Account struct {
	Currency   string
	Balance    float64
	Equity     float64
	FloatingPL float64
}

// Broker is a transport that can also report account and order state.
type Broker interface {
	Transport
	Account(ctx context.Context) (Account, error)
	// Orders returns the instrument's orders, open and closed, by ticket.
	Orders(ctx context.Context, instrument string) ([]market.Order, error)
}
