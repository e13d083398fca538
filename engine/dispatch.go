package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/trendengine/broker"
	"github.com/rustyeddy/trendengine/orders"
)

// ErrOpenSkipped marks an Open held back because the close of an
// opposite order in the same batch failed.
var ErrOpenSkipped = errors.New("open skipped")

// Outcome is the transport's answer to one action. Ticket is the new
// ticket for an Open.
type Outcome struct {
	Action orders.Action
	Ticket int64
	Err    error
}

// Dispatcher forwards actions to a transport in order, pacing calls
// through a rate limiter. Failed actions are not retried: the coordinator
// derives them again next cycle if the order state still disagrees.
type Dispatcher struct {
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewDispatcher paces calls at perSecond with the given burst. A
// non-positive rate disables pacing.
func NewDispatcher(perSecond float64, burst int, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{limiter: rate.NewLimiter(limit, burst), log: log}
}

// Dispatch sends actions for instrument to t. Every action gets an
// outcome; the returned error combines all failures. When closing an
// opposite order fails, the batch's Opens are not sent, so both sides are
// never held at once.
func (d *Dispatcher) Dispatch(ctx context.Context, t broker.Transport, instrument string, actions []orders.Action) ([]Outcome, error) {
	out := make([]Outcome, 0, len(actions))
	var (
		errs    error
		blocked int64
	)

	for i, a := range actions {
		if blocked != 0 && a.Kind == orders.Open {
			err := fmt.Errorf("%w: close of opposite ticket %d failed", ErrOpenSkipped, blocked)
			d.log.Warn("open skipped",
				zap.String("instrument", instrument),
				zap.String("tag", a.Leg.Tag),
				zap.Int64("opposite", blocked),
			)
			out = append(out, Outcome{Action: a, Err: err})
			errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", instrument, a, err))
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			// out of time: the rest of the batch is not sent
			for _, rest := range actions[i:] {
				out = append(out, Outcome{Action: rest, Err: err})
			}
			return out, multierr.Append(errs, fmt.Errorf("dispatch %s: %w", instrument, err))
		}

		o := Outcome{Action: a}
		o.Ticket, o.Err = d.send(ctx, t, instrument, a)
		if o.Err != nil {
			mtxTransportFailures.WithLabelValues(a.Kind.String()).Inc()
			d.log.Error("transport failure",
				zap.String("instrument", instrument),
				zap.Stringer("kind", a.Kind),
				zap.Int64("ticket", a.Ticket),
				zap.String("tag", a.Leg.Tag),
				zap.Error(o.Err),
			)
			errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", instrument, a, o.Err))
			if a.Kind == orders.Close && a.Reason == orders.ReasonOpposite {
				blocked = a.Ticket
			}
		}
		out = append(out, o)
	}
	return out, errs
}

func (d *Dispatcher) send(ctx context.Context, t broker.Transport, instrument string, a orders.Action) (int64, error) {
	switch a.Kind {
	case orders.Open:
		l := a.Leg
		return t.Open(ctx, broker.OpenRequest{
			Instrument: instrument,
			Direction:  l.Direction,
			Price:      l.Price,
			StopLoss:   l.StopLoss,
			TakeProfit: l.TakeProfit,
			Lots:       l.Lots,
			Tag:        l.Tag,
		})
	case orders.ModifyStop:
		return a.Ticket, t.Modify(ctx, a.Ticket, a.Price, 0)
	case orders.ModifyTakeProfit:
		return a.Ticket, t.Modify(ctx, a.Ticket, 0, a.Price)
	case orders.Close:
		return a.Ticket, t.Close(ctx, a.Ticket)
	default:
		return 0, fmt.Errorf("unknown action kind %v", a.Kind)
	}
}
