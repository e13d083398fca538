// Package strategies is the entry signal evaluator: it reacts to the trend
// phase the classifier publishes each cycle and proposes at most one entry,
// an exit, or a stop trail. Evaluation is a pure function of its input;
// the turning record is read here but persisted by the caller.
package strategies

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/risk"
	"github.com/rustyeddy/trendengine/turning"
)

const eps = 1e-9

// Input is everything one evaluation reads.
type Input struct {
	Snapshot market.Snapshot
	Readings market.Readings
	Profile  profile.Profile

	// Orders are the instrument's open orders plus the day's closed
	// history; closed orders still count for duplicate suppression.
	Orders  []market.Order
	Turning turning.Record

	// Gate checks a proposed risk fraction with the risk governor. Nil
	// allows every entry unchanged.
	Gate func(proposed float64) risk.Decision
}

type Evaluator struct {
	cfg Config
	log *zap.Logger
}

func NewEvaluator(cfg Config, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{cfg: cfg, log: log}
}

// candidate is the working state of an entry while phase rules apply.
type candidate struct {
	price float64
	level float64
	stop  float64
	atr   float64
	risk  float64
	mode  plan.TPMode
}

// Evaluate runs one cycle. Invalid input never produces an entry; it is
// logged and reported as a no-signal.
func (e *Evaluator) Evaluate(in Input) Signal {
	s, r := in.Snapshot, in.Readings
	log := e.log.With(
		zap.String("instrument", s.Instrument),
		zap.Time("bar_time", s.Time),
		zap.Stringer("phase", r.Phase),
	)

	if err := validate(in); err != nil {
		log.Warn("invalid cycle input", zap.Error(err))
		return Signal{Reason: "invalid_input"}
	}
	open := openOrders(in.Orders)

	if r.Phase == market.Range {
		return e.onRange(in, open)
	}
	op, ok := operatorFor(r.Phase.Direction())
	if !ok {
		log.Warn("unknown trend phase")
		return Signal{Reason: "unknown_phase"}
	}

	entry, reason := e.entry(in, op)
	if reason != "" {
		log.Debug("no entry", zap.String("reason", reason))
		return e.noEntry(in, open, Signal{Reason: reason})
	}

	sig := Signal{Action: ActEnter, Reason: entry.Reason}
	if in.Gate != nil {
		dec := in.Gate(entry.Risk)
		sig.Risk = dec
		sig.ClosePending = dec.FlattenPending
		if dec.Verdict == risk.Block {
			log.Info("entry blocked", zap.String("code", dec.Reason()), zap.Float64("risk", entry.Risk))
			return e.noEntry(in, open, Signal{Risk: dec, ClosePending: dec.FlattenPending, Reason: "risk_blocked"})
		}
		entry.Risk = math.Min(dec.Fraction(entry.Risk), plan.MaxRisk)
		if entry.Risk <= 0 {
			return e.noEntry(in, open, Signal{Risk: dec, Reason: "risk_blocked"})
		}
	}
	sig.Entry = entry
	return sig
}

func validate(in Input) error {
	if err := in.Snapshot.Validate(); err != nil {
		return err
	}
	if err := in.Readings.Validate(); err != nil {
		return err
	}
	if in.Profile.Digits < 0 || in.Profile.Digits > 10 {
		return fmt.Errorf("%w: profile %s digits %d out of range", market.ErrInvalidInput, in.Profile.ID, in.Profile.Digits)
	}
	return nil
}

// openOrders drops closed and placeholder orders.
func openOrders(orders []market.Order) []market.Order {
	var out []market.Order
	for _, o := range orders {
		if !o.Open || o.Closed() || o.Ticket <= 0 || o.Direction == market.None {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (e *Evaluator) onRange(in Input, open []market.Order) Signal {
	if len(open) == 0 {
		return Signal{Reason: "range"}
	}
	if e.cfg.ExitInRange {
		return Signal{Action: ActExitAll, Reason: "exit_in_range"}
	}

	lv := in.Readings.Levels
	buf := e.cfg.TrailATR * in.Readings.ATR.Primary
	digits := in.Profile.Digits

	var tr plan.Trail
	if lv.Support > buf {
		tr.Long = plan.Round(lv.Support-buf, digits)
	}
	if lv.Resistance > 0 {
		tr.Short = plan.Round(lv.Resistance+buf, digits)
	}
	if tr == (plan.Trail{}) {
		return Signal{Reason: "range"}
	}
	return Signal{Action: ActTrail, Trail: tr, Reason: "range_trail"}
}

// noEntry upgrades a no-entry signal to an exit when the execution
// timeframe's BBS has turned against an open order that has no
// take-profit of its own.
func (e *Evaluator) noEntry(in Input, open []market.Order, sig Signal) Signal {
	bbs := in.Readings.BBSOn(e.cfg.ExecutionTimeframe).Direction
	if bbs == market.None {
		return sig
	}
	for _, o := range open {
		if o.Pending || o.TakeProfit != 0 {
			continue
		}
		if o.Direction == bbs.Opposite() {
			sig.Action = ActExit
			sig.Exit = o.Direction
			sig.Reason = "bbs_reversal"
			return sig
		}
	}
	return sig
}

func (e *Evaluator) minStrength(p market.Phase) int {
	if p.IsBeginning() {
		return e.cfg.BeginningMinStrength
	}
	return e.cfg.MiddleMinStrength
}

func (e *Evaluator) strong(strength int) bool {
	if strength < 0 {
		strength = -strength
	}
	return strength >= e.cfg.StrongStrength
}

// entry applies the gates shared by all trend phases, then the phase's own
// rule. A non-empty reason means no entry.
func (e *Evaluator) entry(in Input, op trendOperator) (plan.CandidateEntry, string) {
	s, r, p := in.Snapshot, in.Readings, in.Profile
	d := op.dir

	if !p.InTradingWindow(s.Time) {
		return plan.CandidateEntry{}, "outside_trading_window"
	}
	if !p.AllowTrade(s, r, r.Phase.IsBeginning()) {
		return plan.CandidateEntry{}, "filtered"
	}
	atr := r.ATR.Primary
	if atr <= 0 {
		return plan.CandidateEntry{}, "no_atr"
	}
	if r.Strength*int(d.Sign()) < e.minStrength(r.Phase) {
		return plan.CandidateEntry{}, "weak_trend"
	}

	var (
		keyBar market.Bar
		swing  bool
	)
	if p.Swing() {
		if !p.OnSwingGrid(s.Time, e.cfg.Swing.Grace) {
			return plan.CandidateEntry{}, "off_swing_grid"
		}
		ser, ok := s.Bars(e.cfg.Swing.Timeframe)
		if !ok {
			return plan.CandidateEntry{}, "no_swing_series"
		}
		b, ok := ser.At(0)
		if !ok {
			return plan.CandidateEntry{}, "no_swing_series"
		}
		if KeyK(b, atr*e.cfg.Swing.KeyKATR) != d {
			return plan.CandidateEntry{}, "keyk_disagrees"
		}
		keyBar, swing = b, true
	}

	level := r.Levels.Level(d)
	if level <= 0 {
		return plan.CandidateEntry{}, "no_level"
	}
	c := candidate{
		price: s.EntryPrice(d),
		level: level,
		stop:  d.Offset(level, -atr*p.StopMultiplier()),
		atr:   atr,
	}

	var reason string
	switch {
	case r.Phase.IsBeginning():
		reason = e.beginning(in, op, &c)
	case r.Phase.IsMiddle():
		reason = e.middle(in, op, &c)
	case r.Phase.IsRetreat():
		reason = e.retreat(in, op, &c)
	default:
		reason = "unknown_phase"
	}
	if reason != "" {
		return plan.CandidateEntry{}, reason
	}

	if swing {
		if ext := op.extreme(keyBar); ext > 0 && d.Favorable(c.price, ext) {
			c.stop = ext
		}
	}
	if !d.Favorable(c.price, c.stop) {
		return plan.CandidateEntry{}, "overshot_stop"
	}
	c.risk = math.Max(0, math.Min(c.risk, plan.MaxRisk))
	if c.risk == 0 {
		return plan.CandidateEntry{}, "zero_risk"
	}

	key := DuplicateKey(c.price, atr, p, in.Turning, d, s.Time)
	if o, dup := duplicate(key, d, in.Orders); dup {
		e.log.Debug("duplicate entry suppressed",
			zap.String("instrument", s.Instrument),
			zap.Int64("ticket", o.Ticket),
			zap.Float64("price", key.Price),
		)
		return plan.CandidateEntry{}, "duplicate"
	}

	entry := plan.CandidateEntry{
		Direction:  d,
		Price:      c.price,
		StopLoss:   c.stop,
		TakeProfit: e.takeProfit(in, d, c),
		TPMode:     c.mode,
		Risk:       c.risk,
		ATR:        atr,
		Digits:     p.Digits,
		Key:        key,
		Phase:      r.Phase,
		Time:       s.Time,
		Reason:     r.Phase.String(),
	}
	if !entry.Valid() {
		return plan.CandidateEntry{}, "invalid_entry"
	}
	return entry, ""
}

// gateLevel requires price to clear the reference level by the adjustment
// margin without running further than MaxChaseATR past it.
func (e *Evaluator) gateLevel(op trendOperator, c *candidate) string {
	past := op.beyond(c.price, c.level)
	if past+eps < e.cfg.adjust(c.atr) {
		return "inside_level_band"
	}
	if e.cfg.MaxChaseATR > 0 && past > e.cfg.MaxChaseATR*c.atr+eps {
		return "chasing"
	}
	return ""
}

func (e *Evaluator) beginning(in Input, op trendOperator, c *candidate) string {
	if reason := e.gateLevel(op, c); reason != "" {
		return reason
	}
	c.risk = e.cfg.BaseRisk
	if !e.strong(in.Readings.Strength) {
		c.risk /= 2
	}
	c.mode = plan.TPAtrRange
	if in.Profile.TakeProfitFromStopLoss {
		c.mode = plan.TPRatio1to1
	}
	return ""
}

func (e *Evaluator) middle(in Input, op trendOperator, c *candidate) string {
	if reason := e.gateLevel(op, c); reason != "" {
		return reason
	}
	if in.Readings.BBSOn(e.cfg.ExecutionTimeframe).Direction != op.dir {
		return "no_execution_confirmation"
	}
	c.risk = e.cfg.BaseRisk
	if e.strong(in.Readings.Strength) && in.Turning.Confirmed(op.dir) {
		c.risk *= 2
	}
	c.mode = e.cfg.MiddleTakeProfit
	return ""
}

func (e *Evaluator) retreat(in Input, op trendOperator, c *candidate) string {
	if !inEnvelope(c.price, in.Readings.Levels) {
		return "outside_breakout_envelope"
	}
	if math.Abs(c.price-c.level) > e.cfg.RetreatBandATR*c.atr+eps {
		return "outside_retreat_band"
	}
	c.risk = e.cfg.BaseRisk
	c.mode = e.cfg.MiddleTakeProfit
	return ""
}

// takeProfit resolves the entry's take-profit for its mode. Modes without
// a fixed target return 0. The distance is floored at the profile's
// MinTakeProfit.
func (e *Evaluator) takeProfit(in Input, d market.Direction, c candidate) float64 {
	p := in.Profile
	var dist float64
	switch c.mode {
	case plan.TPRatio1to1:
		dist = math.Abs(c.price - c.stop)
	case plan.TPAtrRange:
		dist = c.atr * p.RangeMultiplier()
	case plan.TPPriceTarget:
		target := in.Readings.Levels.Level(d.Opposite())
		if target > 0 && d.Favorable(target, c.price) && math.Abs(target-c.price) >= p.MinTakeProfit {
			return target
		}
		dist = math.Abs(c.price - c.stop)
	default:
		return 0
	}
	if dist < p.MinTakeProfit {
		dist = p.MinTakeProfit
	}
	return plan.Round(d.Offset(c.price, dist), p.Digits)
}
