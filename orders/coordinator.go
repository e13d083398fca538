// Package orders reconciles a plan against the broker's open orders and
// emits the deltas: close opposite exposure, open missing legs, then
// adjust stops and take-profits of what is already working.
package orders

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
)

const eps = 1e-9

type Config struct {
	// BreakEvenR is the profit, in risk units, at which the stop moves to
	// the open price plus BreakEvenOffset. Zero disables it.
	BreakEvenR      float64 `json:"break_even_r" yaml:"break_even_r" validate:"gte=0"`
	BreakEvenOffset float64 `json:"break_even_offset" yaml:"break_even_offset" validate:"gte=0"`

	// Ladder thresholds in risk units. With k thresholds reached the stop
	// moves to the open price plus k-1 units.
	Ladder []float64 `json:"ladder" yaml:"ladder" validate:"dive,gt=0"`

	// SessionEndHour is the broker hour positions are flattened at; -1
	// disables it.
	SessionEndHour int           `json:"session_end_hour" yaml:"session_end_hour" validate:"gte=-1,lte=23"`
	NearSessionEnd time.Duration `json:"near_session_end" yaml:"near_session_end" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		BreakEvenR:     1,
		Ladder:         []float64{1, 2, 3},
		SessionEndHour: -1,
		NearSessionEnd: 5 * time.Minute,
	}
}

// Quote is the market the plan is reconciled against. Digits rounds
// computed stop levels; zero leaves them unrounded.
type Quote struct {
	Bid    float64
	Ask    float64
	Time   time.Time
	Digits int
}

// Coordinator holds no state between cycles; the same plan and the same
// orders always produce the same actions.
type Coordinator struct {
	cfg Config
	log *zap.Logger
}

func NewCoordinator(cfg Config, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{cfg: cfg, log: log}
}

// Reconcile returns the actions that move orders toward p, ordered
// closes first, then opens, then adjustments. Orders are visited by
// ascending ticket.
func (c *Coordinator) Reconcile(p plan.Plan, orders []market.Order, q Quote) []Action {
	live, history := c.split(orders)
	if len(live) == 0 && p.Empty() {
		return nil
	}

	var (
		actions []Action
		closing = make(map[int64]bool)
	)
	closeOrder := func(o market.Order, reason string) {
		if closing[o.Ticket] {
			return
		}
		closing[o.Ticket] = true
		actions = append(actions, Action{Kind: Close, Ticket: o.Ticket, Reason: reason})
	}

	dir := p.Direction()
	for _, o := range live {
		switch {
		case c.sessionClose(o, q):
			closeOrder(o, "session_end")
		case p.CloseAll:
			closeOrder(o, "close_all")
		case p.Close != market.None && o.Direction == p.Close:
			closeOrder(o, "exit_signal")
		case dir != market.None && o.Direction == dir.Opposite():
			closeOrder(o, ReasonOpposite)
		case p.ClosePending && o.Pending:
			closeOrder(o, "flatten_pending")
		}
	}

	if dir != market.None && !c.sessionBlocked(q) {
		actions = append(actions, c.opens(p.Legs, dir, live, history, closing)...)
	}

	for _, o := range live {
		if closing[o.Ticket] || o.Pending {
			continue
		}
		if a, ok := c.adjustStop(o, p.Trail, q); ok {
			actions = append(actions, a)
		}
		if a, ok := c.adjustTakeProfit(o, p.Legs); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// split separates working orders from closed history, dropping orders in
// an inconsistent state.
func (c *Coordinator) split(orders []market.Order) (live, history []market.Order) {
	for _, o := range orders {
		if !o.Open {
			history = append(history, o)
			continue
		}
		if o.Ticket <= 0 || o.Direction == market.None || !o.CloseTime.IsZero() || o.OpenPrice <= 0 {
			c.log.Warn("ignoring stale order",
				zap.Int64("ticket", o.Ticket),
				zap.String("instrument", o.Instrument),
				zap.Stringer("direction", o.Direction),
				zap.Time("close_time", o.CloseTime),
			)
			continue
		}
		live = append(live, o)
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Ticket < live[j].Ticket })
	return live, history
}

// opens emits an Open per leg when nothing is working in dir. Legs whose
// tag already names an order, open or closed, are skipped.
func (c *Coordinator) opens(legs []plan.Leg, dir market.Direction, live, history []market.Order, closing map[int64]bool) []Action {
	for _, o := range live {
		if o.Direction == dir && !closing[o.Ticket] {
			return nil
		}
	}
	seen := make(map[string]bool)
	for _, group := range [][]market.Order{live, history} {
		for _, o := range group {
			if o.Tag != "" {
				seen[o.Tag] = true
			}
		}
	}

	var out []Action
	for _, l := range legs {
		if l.Direction != dir {
			continue
		}
		if l.Tag != "" && seen[l.Tag] {
			c.log.Debug("leg already placed", zap.String("tag", l.Tag))
			continue
		}
		if l.Tag != "" {
			seen[l.Tag] = true
		}
		out = append(out, Action{Kind: Open, Leg: l, Reason: "plan"})
	}
	return out
}

// boundary is the session end on q's day.
func (c *Coordinator) boundary(t time.Time) (time.Time, bool) {
	if c.cfg.SessionEndHour < 0 || t.IsZero() {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, c.cfg.SessionEndHour, 0, 0, 0, t.Location()), true
}

// sessionClose reports whether o must be flattened for the session end:
// at or after the boundary anything opened before it goes, and an order
// opened within NearSessionEnd of the boundary goes immediately.
func (c *Coordinator) sessionClose(o market.Order, q Quote) bool {
	b, ok := c.boundary(q.Time)
	if !ok {
		return false
	}
	if !q.Time.Before(b) && o.OpenTime.Before(b) {
		return true
	}
	if o.OpenTime.IsZero() {
		return false
	}
	gap := o.OpenTime.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	return gap < c.cfg.NearSessionEnd
}

// sessionBlocked stops new entries from NearSessionEnd before the
// boundary until the end of the day.
func (c *Coordinator) sessionBlocked(q Quote) bool {
	b, ok := c.boundary(q.Time)
	if !ok {
		return false
	}
	return !q.Time.Before(b.Add(-c.cfg.NearSessionEnd))
}

func exitPrice(d market.Direction, q Quote) float64 {
	if d == market.Short {
		return q.Ask
	}
	return q.Bid
}

// adjustStop picks the most favourable of the ladder, break-even and
// trail candidates and emits at most one ModifyStop, only when it tightens
// the current stop and still sits on the losing side of the market.
func (c *Coordinator) adjustStop(o market.Order, trail plan.Trail, q Quote) (Action, bool) {
	d := o.Direction
	price := exitPrice(d, q)
	if price <= 0 {
		return Action{}, false
	}

	var (
		best   float64
		reason string
	)
	consider := func(level float64, why string) {
		if level <= 0 {
			return
		}
		if best == 0 || d.Favorable(level, best) {
			best, reason = level, why
		}
	}

	if unit := o.RiskUnit(); unit > 0 {
		moved := d.Sign() * (price - o.OpenPrice) / unit
		k := 0
		for _, th := range c.cfg.Ladder {
			if moved+eps >= th {
				k++
			}
		}
		if k > 0 {
			consider(d.Offset(o.OpenPrice, float64(k-1)*unit), "ladder")
		}
		if c.cfg.BreakEvenR > 0 && moved+eps >= c.cfg.BreakEvenR {
			consider(d.Offset(o.OpenPrice, c.cfg.BreakEvenOffset), "break_even")
		}
	}
	consider(trail.Level(d), "trail")

	if best == 0 {
		return Action{}, false
	}
	best = plan.Round(best, q.Digits)
	if !d.Favorable(price, best) {
		return Action{}, false
	}
	if o.StopLoss > 0 && !d.Favorable(best, o.StopLoss+d.Sign()*eps) {
		return Action{}, false
	}
	return Action{Kind: ModifyStop, Ticket: o.Ticket, Price: best, Reason: reason}, true
}

// adjustTakeProfit follows a plan leg that carries o's tag to a new
// take-profit.
func (c *Coordinator) adjustTakeProfit(o market.Order, legs []plan.Leg) (Action, bool) {
	if o.Tag == "" {
		return Action{}, false
	}
	for _, l := range legs {
		if l.Tag != o.Tag || l.TakeProfit == 0 {
			continue
		}
		if math.Abs(l.TakeProfit-o.TakeProfit) < eps || !o.Direction.Favorable(l.TakeProfit, o.OpenPrice) {
			return Action{}, false
		}
		return Action{Kind: ModifyTakeProfit, Ticket: o.Ticket, Price: l.TakeProfit, Reason: "plan"}, true
	}
	return Action{}, false
}
