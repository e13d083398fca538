// Package engine runs one decision cycle per closed bar per instrument:
// resolve the profile, evaluate the trend phase, build and size a plan,
// reconcile it against working orders and dispatch the resulting actions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/broker"
	"github.com/rustyeddy/trendengine/indicators"
	"github.com/rustyeddy/trendengine/journal"
	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/orders"
	"github.com/rustyeddy/trendengine/pkg/id"
	"github.com/rustyeddy/trendengine/plan"
	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/risk"
	"github.com/rustyeddy/trendengine/strategies"
	"github.com/rustyeddy/trendengine/turning"
)

var (
	ErrCycleSkipped = errors.New("cycle skipped")
	ErrCyclePanic   = errors.New("cycle panicked")
)

// Cycle is the input for one instrument at one closed bar.
type Cycle struct {
	Snapshot market.Snapshot
	Readings market.Readings
	Account  risk.AccountState
	Day      risk.DayState

	// Orders are the instrument's working orders plus the day's closed
	// history.
	Orders []market.Order

	// QuoteToAccount converts quote currency to account currency; zero
	// reads as 1.
	QuoteToAccount float64
}

// Result is what a cycle decided and did.
type Result struct {
	ID         string
	Instrument string
	BarTime    time.Time
	Profile    string

	Signal   strategies.Signal
	Plan     plan.Plan
	Actions  []orders.Action
	Outcomes []Outcome
	Turning  turning.Record

	// DispatchErr combines transport failures. They do not fail the cycle.
	DispatchErr error
}

// Sizing converts leg risk into lots.
type Sizing struct {
	ContractSize float64 `json:"contract_size" yaml:"contract_size" validate:"gt=0"`
	LotStep      float64 `json:"lot_step" yaml:"lot_step" validate:"gte=0"`
}

func DefaultSizing() Sizing {
	return Sizing{ContractSize: 100_000, LotStep: 0.01}
}

type Options struct {
	Resolver *profile.Resolver
	Policy   risk.Policy
	Strategy strategies.Config
	Orders   orders.Config
	Sizing   Sizing

	Store   turning.Store
	Journal journal.Journal

	// Transport receives the actions; nil leaves dispatching to the caller.
	Transport  broker.Transport
	Dispatcher *Dispatcher

	// FillIndicators computes readings the cycle leaves empty from its bars.
	FillIndicators bool

	Log *zap.Logger
}

type Engine struct {
	resolver    *profile.Resolver
	policy      risk.Policy
	evaluator   *strategies.Evaluator
	coordinator *orders.Coordinator
	sizing      Sizing

	store      turning.Store
	journal    journal.Journal
	transport  broker.Transport
	dispatcher *Dispatcher
	fill       bool

	log *zap.Logger
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		resolver:    opts.Resolver,
		policy:      opts.Policy,
		evaluator:   strategies.NewEvaluator(opts.Strategy, log),
		coordinator: orders.NewCoordinator(opts.Orders, log),
		sizing:      opts.Sizing,
		store:       opts.Store,
		journal:     opts.Journal,
		transport:   opts.Transport,
		dispatcher:  opts.Dispatcher,
		fill:        opts.FillIndicators,
		log:         log,
	}
	if e.resolver == nil {
		e.resolver = profile.Builtin()
	}
	if e.store == nil {
		e.store = turning.NewMemoryStore()
	}
	if e.journal == nil {
		e.journal = journal.Nop{}
	}
	if e.dispatcher == nil {
		e.dispatcher = NewDispatcher(0, 1, log)
	}
	if e.sizing.ContractSize <= 0 {
		e.sizing.ContractSize = DefaultSizing().ContractSize
	}
	return e
}

// Store is the turning-point store the engine reads and writes.
func (e *Engine) Store() turning.Store { return e.store }

// Run executes one cycle. Invalid input, risk blocks and transport
// failures are not errors; an error means the cycle did not complete
// (store failure, cancelled context, panic) and may be skipped.
func (e *Engine) Run(ctx context.Context, c Cycle) (res Result, err error) {
	start := time.Now()
	s := c.Snapshot
	log := e.log.With(
		zap.String("instrument", s.Instrument),
		zap.Time("bar_time", s.Time),
		zap.Stringer("phase", c.Readings.Phase),
	)

	stage := "start"
	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle panic",
				zap.String("last_good", stage),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w: %s at %s: %v", ErrCyclePanic, s.Instrument, stage, r)
		}
		mtxCycleSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("cycle %s: %w", s.Instrument, err)
	}

	p := e.resolver.Resolve(s.Instrument)
	res = Result{
		ID:         id.NewAt(s.Time),
		Instrument: s.Instrument,
		BarTime:    s.Time,
		Profile:    p.ID,
	}
	key := profile.Canonical(s.Instrument)
	mtxCycles.WithLabelValues(key, c.Readings.Phase.String()).Inc()
	stage = "resolve"

	if err := s.Validate(); err != nil {
		log.Warn("invalid snapshot", zap.Error(err))
		res.Signal = strategies.Signal{Reason: "invalid_input"}
		e.record(log, res, c)
		return res, nil
	}

	prev, err := e.store.Load(ctx, key)
	if err != nil {
		return res, fmt.Errorf("load turning %s: %w", key, err)
	}
	rec := turning.AfterCloses(prev, c.Orders)
	stage = "turning"

	readings := c.Readings
	if e.fill {
		readings = indicators.Fill(readings, s)
	}

	day := c.Day
	day.Roll(s.Time)
	seasonal := p.RiskMultiplier(s.Time)
	sig := e.evaluator.Evaluate(strategies.Input{
		Snapshot: s,
		Readings: readings,
		Profile:  p,
		Orders:   c.Orders,
		Turning:  rec,
		Gate: func(proposed float64) risk.Decision {
			return e.policy.Check(c.Account, proposed, day, seasonal)
		},
	})
	if brk, tripped := e.policy.Breaker(day); tripped && sig.Reason != "invalid_input" && !sig.ClosePending {
		log.Info("loss streak breaker", zap.String("code", brk.Reason()), zap.Int("losses", day.Losses))
		sig.ClosePending = true
		if sig.Risk.Verdict != risk.Block {
			sig.Risk = brk
		}
	}
	res.Signal = sig
	mtxSignals.WithLabelValues(sig.Action.String()).Inc()
	if sig.Risk.Verdict == risk.Block {
		mtxRiskBlocks.WithLabelValues(sig.Risk.Reason()).Inc()
	}
	stage = "evaluate"

	var legs []plan.Leg
	if sig.Action == strategies.ActEnter {
		legs = e.size(log, sig.Entry, plan.Build(sig.Entry, sig.Entry.Risk, p.Split), c, p)
	}
	res.Plan = sig.Plan(legs)
	stage = "plan"

	res.Actions = e.coordinator.Reconcile(res.Plan, c.Orders, orders.Quote{
		Bid:    s.Bid,
		Ask:    s.Ask,
		Time:   s.Time,
		Digits: p.Digits,
	})
	for _, a := range res.Actions {
		mtxActions.WithLabelValues(a.Kind.String()).Inc()
	}
	stage = "reconcile"

	if e.transport != nil && len(res.Actions) > 0 {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("cycle %s: %w", s.Instrument, err)
		}
		res.Outcomes, res.DispatchErr = e.dispatcher.Dispatch(ctx, e.transport, s.Instrument, res.Actions)
		stage = "dispatch"
	}

	for _, o := range e.opened(res) {
		rec = turning.AfterOpen(rec, o.Leg.Direction, s.Time)
	}
	res.Turning = rec
	if !rec.Same(prev) {
		if err := e.save(ctx, key, prev, rec); err != nil {
			return res, err
		}
	}
	stage = "save"

	e.record(log, res, c)
	log.Info("cycle",
		zap.String("id", res.ID),
		zap.Stringer("signal", sig.Action),
		zap.String("reason", sig.Reason),
		zap.Float64("risk", sig.Entry.Risk),
		zap.Int("actions", len(res.Actions)),
	)
	return res, nil
}

// opened lists the Open actions that took effect: all of them when the
// caller dispatches, else those the transport accepted.
func (e *Engine) opened(res Result) []orders.Action {
	var out []orders.Action
	if e.transport == nil {
		for _, a := range res.Actions {
			if a.Kind == orders.Open {
				out = append(out, a)
			}
		}
		return out
	}
	for _, o := range res.Outcomes {
		if o.Action.Kind == orders.Open && o.Err == nil {
			out = append(out, o.Action)
		}
	}
	return out
}

// save writes rec if the stored record is still prev. On a conflict the
// record is written anyway; last writer wins.
func (e *Engine) save(ctx context.Context, key string, prev, rec turning.Record) error {
	ok, err := e.store.CompareAndSwap(ctx, key, prev, rec)
	if err != nil {
		return fmt.Errorf("save turning %s: %w", key, err)
	}
	if ok {
		return nil
	}
	e.log.Warn("turning record changed during cycle", zap.String("key", key))
	if err := e.store.Save(ctx, key, rec); err != nil {
		return fmt.Errorf("save turning %s: %w", key, err)
	}
	return nil
}

// size fills in leg lots. Legs too small for one lot step are dropped.
func (e *Engine) size(log *zap.Logger, entry plan.CandidateEntry, legs []plan.Leg, c Cycle, p profile.Profile) []plan.Leg {
	out := legs[:0]
	for _, l := range legs {
		price := l.Price
		if l.Market() {
			price = entry.Price
		}
		r := risk.Calculate(risk.Inputs{
			Equity:         c.Account.Equity,
			RiskPct:        e.policy.RiskPerTradePct,
			Fraction:       l.Risk,
			EntryPrice:     price,
			StopPrice:      l.StopLoss,
			PipLocation:    p.PipLocation,
			QuoteToAccount: quoteToAccount(c.QuoteToAccount),
			ContractSize:   e.sizing.ContractSize,
			LotStep:        e.sizing.LotStep,
		})
		if r.Lots <= 0 {
			log.Info("leg below minimum size", zap.String("tag", l.Tag), zap.Float64("risk", l.Risk))
			continue
		}
		l.Lots = r.Lots
		out = append(out, l)
	}
	return out
}

func quoteToAccount(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// record journals the cycle and its actions. Journal failures are logged
// and do not fail the cycle.
func (e *Engine) record(log *zap.Logger, res Result, c Cycle) {
	// a zero Decision means the governor was not consulted
	verdict := ""
	if res.Signal.Risk.Factor != 0 || res.Signal.Risk.Verdict != risk.Allow {
		verdict = res.Signal.Risk.Verdict.String()
	}
	errText := ""
	if res.DispatchErr != nil {
		errText = res.DispatchErr.Error()
	}
	if err := e.journal.RecordCycle(journal.CycleRecord{
		ID:         res.ID,
		Instrument: res.Instrument,
		BarTime:    res.BarTime,
		Phase:      c.Readings.Phase,
		Signal:     res.Signal.Action.String(),
		Reason:     res.Signal.Reason,
		Risk:       res.Signal.Entry.Risk,
		Verdict:    verdict,
		Actions:    len(res.Actions),
		Err:        errText,
	}); err != nil {
		log.Error("journal cycle", zap.Error(err))
		return
	}

	for i, a := range res.Actions {
		ar := journal.ActionRecord{
			CycleID:    res.ID,
			Seq:        i,
			Instrument: res.Instrument,
			Kind:       a.Kind.String(),
			Ticket:     a.Ticket,
			Price:      a.Price,
			Reason:     a.Reason,
		}
		if a.Kind == orders.Open {
			ar.Direction = a.Leg.Direction
			ar.Price = a.Leg.Price
			ar.StopLoss = a.Leg.StopLoss
			ar.TakeProfit = a.Leg.TakeProfit
			ar.Lots = a.Leg.Lots
			ar.Tag = a.Leg.Tag
			if a.Leg.TakeProfit > 0 {
				entry := a.Leg.Price
				if a.Leg.Market() {
					entry = res.Signal.Entry.Price
				}
				ar.RR = risk.RR(entry, a.Leg.StopLoss, a.Leg.TakeProfit)
			}
		}
		if i < len(res.Outcomes) {
			o := res.Outcomes[i]
			if a.Kind == orders.Open {
				ar.Ticket = o.Ticket
			}
			if o.Err != nil {
				ar.Err = o.Err.Error()
			}
		}
		if err := e.journal.RecordAction(ar); err != nil {
			log.Error("journal action", zap.Int("seq", i), zap.Error(err))
		}
	}
}
