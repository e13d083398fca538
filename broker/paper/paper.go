// Package paper is an in-memory broker. It fills market orders at the
// current bid/ask, works limit orders, and triggers stops and take-profits
// as prices arrive.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/broker"
	"github.com/rustyeddy/trendengine/market"
)

// DefaultContractSize is the units per lot.
const DefaultContractSize = 100_000

type Quote struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

type Broker struct {
	mu sync.Mutex

	currency     string
	balance      float64
	contractSize float64

	quotes map[string]Quote
	orders map[int64]*market.Order
	nextID int64

	log *zap.Logger
}

var _ broker.Broker = (*Broker)(nil)

func New(currency string, balance float64, log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{
		currency:     currency,
		balance:      balance,
		contractSize: DefaultContractSize,
		quotes:       make(map[string]Quote),
		orders:       make(map[int64]*market.Order),
		log:          log,
	}
}

// SetContractSize overrides the units per lot, e.g. 100 for gold.
func (b *Broker) SetContractSize(units float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if units > 0 {
		b.contractSize = units
	}
}

func (b *Broker) quote(instrument string) (Quote, error) {
	q, ok := b.quotes[instrument]
	if !ok {
		return Quote{}, fmt.Errorf("no price for %q", instrument)
	}
	return q, nil
}

func mark(d market.Direction, q Quote) float64 {
	if d == market.Short {
		return q.Ask
	}
	return q.Bid
}

func (b *Broker) Open(ctx context.Context, req broker.OpenRequest) (int64, error) {
	if req.Direction == market.None {
		return 0, fmt.Errorf("open %s: no direction", req.Instrument)
	}
	if req.Lots <= 0 {
		return 0, fmt.Errorf("open %s: lots must be positive (%v)", req.Instrument, req.Lots)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q, err := b.quote(req.Instrument)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}

	b.nextID++
	o := &market.Order{
		Ticket:      b.nextID,
		Instrument:  req.Instrument,
		Direction:   req.Direction,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
		InitialStop: req.StopLoss,
		Lots:        req.Lots,
		Tag:         req.Tag,
		OpenTime:    q.Time,
		Open:        true,
	}

	fill := q.Ask
	if req.Direction == market.Short {
		fill = q.Bid
	}
	switch {
	case req.Price == 0:
		o.OpenPrice = fill
	case req.Direction.Favorable(fill, req.Price):
		// limit not reached yet
		o.OpenPrice = req.Price
		o.Pending = true
	default:
		o.OpenPrice = fill
	}
	b.orders[o.Ticket] = o

	b.log.Debug("paper open",
		zap.Int64("ticket", o.Ticket),
		zap.String("instrument", o.Instrument),
		zap.Stringer("direction", o.Direction),
		zap.Float64("price", o.OpenPrice),
		zap.Bool("pending", o.Pending),
	)
	return o.Ticket, nil
}

func (b *Broker) live(ticket int64) (*market.Order, error) {
	o, ok := b.orders[ticket]
	if !ok || !o.Open {
		return nil, fmt.Errorf("ticket %d: %w", ticket, broker.ErrUnknownTicket)
	}
	return o, nil
}

func (b *Broker) Modify(ctx context.Context, ticket int64, stop, takeProfit float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.live(ticket)
	if err != nil {
		return fmt.Errorf("modify: %w", err)
	}
	if stop != 0 {
		o.StopLoss = stop
	}
	if takeProfit != 0 {
		o.TakeProfit = takeProfit
	}
	return nil
}

func (b *Broker) Close(ctx context.Context, ticket int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.live(ticket)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	q, err := b.quote(o.Instrument)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	b.closeLocked(o, mark(o.Direction, q), q.Time, "manual")
	return nil
}

// closeLocked settles o. A pending order is cancelled without profit.
func (b *Broker) closeLocked(o *market.Order, price float64, at time.Time, reason string) {
	o.Open = false
	o.CloseTime = at
	if o.Pending {
		o.ClosePrice = 0
		o.Profit = 0
	} else {
		o.ClosePrice = price
		o.Profit = b.pl(o, price)
		b.balance += o.Profit
	}
	b.log.Debug("paper close",
		zap.Int64("ticket", o.Ticket),
		zap.String("reason", reason),
		zap.Float64("price", price),
		zap.Float64("profit", o.Profit),
	)
}

func (b *Broker) pl(o *market.Order, price float64) float64 {
	return o.Direction.Sign() * (price - o.OpenPrice) * o.Lots * b.contractSize
}

// UpdatePrice records a quote, fills limit orders it reaches and closes
// orders whose stop or take-profit it crosses. It returns the orders
// closed by this quote.
func (b *Broker) UpdatePrice(instrument string, q Quote) []market.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.quotes[instrument] = q

	var closed []market.Order
	for _, o := range b.sortedLocked() {
		if !o.Open || o.Instrument != instrument {
			continue
		}
		if o.Pending {
			fill := q.Ask
			if o.Direction == market.Short {
				fill = q.Bid
			}
			if o.Direction.Favorable(fill, o.OpenPrice) {
				continue
			}
			o.Pending = false
			o.OpenTime = q.Time
		}

		m := mark(o.Direction, q)
		reason := ""
		switch {
		case hitStopLoss(o, m):
			reason = "stop_loss"
		case hitTakeProfit(o, m):
			reason = "take_profit"
		}
		if reason != "" {
			b.closeLocked(o, m, q.Time, reason)
			closed = append(closed, *o)
		}
	}
	return closed
}

func hitStopLoss(o *market.Order, price float64) bool {
	if o.StopLoss == 0 {
		return false
	}
	return !o.Direction.Favorable(price, o.StopLoss)
}

func hitTakeProfit(o *market.Order, price float64) bool {
	if o.TakeProfit == 0 {
		return false
	}
	return !o.Direction.Favorable(o.TakeProfit, price)
}

func (b *Broker) sortedLocked() []*market.Order {
	out := make([]*market.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

func (b *Broker) Orders(ctx context.Context, instrument string) ([]market.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []market.Order
	for _, o := range b.sortedLocked() {
		if instrument == "" || o.Instrument == instrument {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (b *Broker) Account(ctx context.Context) (broker.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var floating float64
	for _, o := range b.orders {
		if !o.Open || o.Pending {
			continue
		}
		q, err := b.quote(o.Instrument)
		if err != nil {
			return broker.Account{}, err
		}
		floating += b.pl(o, mark(o.Direction, q))
	}
	return broker.Account{
		Currency:   b.currency,
		Balance:    b.balance,
		Equity:     b.balance + floating,
		FloatingPL: floating,
	}, nil
}
