// Package replay drives the engine over a recorded script against the
// paper broker: bar cycles from a YAML file, optionally interleaved with
// intra-bar ticks from a CSV file.
package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendengine/broker/paper"
	"github.com/rustyeddy/trendengine/engine"
	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/pricing"
	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/risk"
)

// Step is the input of one cycle.
type Step struct {
	Snapshot market.Snapshot `yaml:"snapshot"`
	Readings market.Readings `yaml:"readings"`
}

// Script is a replay file.
type Script struct {
	// Ticks is an optional CSV file, relative to the script, of quotes
	// applied between bars.
	Ticks string `yaml:"ticks,omitempty"`
	Steps []Step `yaml:"steps"`
}

// Load reads a script file.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return Script{}, fmt.Errorf("script %s has no steps", path)
	}
	if s.Ticks != "" && !filepath.IsAbs(s.Ticks) {
		s.Ticks = filepath.Join(filepath.Dir(path), s.Ticks)
	}
	return s, nil
}

type Options struct {
	// ContractSize converts lots to units when measuring open risk.
	ContractSize float64
	// Bars, when set, collects every quote into bars and supplies them to
	// steps that carry no series of their own.
	Bars *pricing.BarBuilder
	Log  *zap.Logger
}

// Report summarises a replay.
type Report struct {
	Cycles  int
	Actions int
	Skipped int
	Failed  int
	Results []engine.Result
	// Closed holds every order the broker closed, in close order.
	Closed  []market.Order
	Balance float64
	Equity  float64
	// Days is the last day state per canonical instrument.
	Days map[string]risk.DayState
}

// Replayer feeds a paper broker and an engine runner. The engine must
// dispatch to the same broker.
type Replayer struct {
	broker *paper.Broker
	runner *engine.Runner
	opts   Options
	log    *zap.Logger

	days map[string]*risk.DayState
	peak float64
}

func New(b *paper.Broker, r *engine.Runner, opts Options) *Replayer {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.ContractSize <= 0 {
		opts.ContractSize = paper.DefaultContractSize
	}
	return &Replayer{
		broker: b,
		runner: r,
		opts:   opts,
		log:    opts.Log,
		days:   make(map[string]*risk.DayState),
	}
}

// Run replays steps in time order. Steps sharing a bar time run as one
// batch; ticks at or before a batch's time are applied first. Cycle errors
// are counted and returned together; the replay carries on past them.
func (r *Replayer) Run(ctx context.Context, s Script) (Report, error) {
	var ticks []pricing.Tick
	if s.Ticks != "" {
		var err error
		if ticks, err = ReadTicks(s.Ticks); err != nil {
			return Report{}, err
		}
	}

	steps := append([]Step(nil), s.Steps...)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Snapshot.Time.Before(steps[j].Snapshot.Time)
	})

	var (
		rep  Report
		errs error
		next int
	)
	for start := 0; start < len(steps); {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		at := steps[start].Snapshot.Time
		end := start
		for end < len(steps) && steps[end].Snapshot.Time.Equal(at) {
			end++
		}

		for ; next < len(ticks) && !ticks[next].Time.After(at); next++ {
			r.price(ticks[next], &rep)
		}
		err := r.batch(ctx, steps[start:end], &rep)
		errs = multierr.Append(errs, err)
		start = end
	}
	for ; next < len(ticks); next++ {
		r.price(ticks[next], &rep)
	}

	acct, err := r.broker.Account(ctx)
	if err != nil {
		return rep, multierr.Append(errs, err)
	}
	rep.Balance = acct.Balance
	rep.Equity = acct.Equity
	rep.Days = make(map[string]risk.DayState, len(r.days))
	for k, d := range r.days {
		rep.Days[k] = *d
	}
	return rep, errs
}

func (r *Replayer) day(instrument string) *risk.DayState {
	k := profile.Canonical(instrument)
	d, ok := r.days[k]
	if !ok {
		d = &risk.DayState{}
		r.days[k] = d
	}
	return d
}

// price applies a quote and books any orders it closed.
func (r *Replayer) price(t pricing.Tick, rep *Report) {
	if r.opts.Bars != nil {
		r.opts.Bars.Add(t)
	}
	closed := r.broker.UpdatePrice(t.Instrument, paper.Quote{Bid: t.Bid, Ask: t.Ask, Time: t.Time})
	for _, o := range closed {
		r.day(o.Instrument).RecordClose(o.CloseTime, o.Profit)
		r.log.Debug("order closed by price",
			zap.Int64("ticket", o.Ticket),
			zap.String("instrument", o.Instrument),
			zap.Float64("profit", o.Profit),
		)
	}
	rep.Closed = append(rep.Closed, closed...)
}

func (r *Replayer) batch(ctx context.Context, steps []Step, rep *Report) error {
	for _, st := range steps {
		s := st.Snapshot
		if s.Validate() != nil {
			continue
		}
		r.price(pricing.Tick{Instrument: s.Instrument, Time: s.Time, Bid: s.Bid, Ask: s.Ask}, rep)
	}

	acct, err := r.account(ctx)
	if err != nil {
		return err
	}

	cycles := make([]engine.Cycle, 0, len(steps))
	for _, st := range steps {
		ords, err := r.broker.Orders(ctx, st.Snapshot.Instrument)
		if err != nil {
			return err
		}
		cycles = append(cycles, engine.Cycle{
			Snapshot: r.withBars(st.Snapshot),
			Readings: st.Readings,
			Account:  acct,
			Day:      *r.day(st.Snapshot.Instrument),
			Orders:   ords,
		})
	}

	results, err := r.runner.RunAll(ctx, cycles)
	rep.Cycles += len(results)
	rep.Results = append(rep.Results, results...)
	for _, res := range results {
		rep.Actions += len(res.Actions)
	}
	for _, e := range multierr.Errors(err) {
		if errors.Is(e, engine.ErrCycleSkipped) {
			rep.Skipped++
		} else {
			rep.Failed++
		}
	}
	return err
}

// withBars attaches the built series to a snapshot that has none.
func (r *Replayer) withBars(s market.Snapshot) market.Snapshot {
	if r.opts.Bars == nil || len(s.Series) > 0 {
		return s
	}
	ser, ok := r.opts.Bars.Series(s.Instrument)
	if !ok {
		return s
	}
	tf := r.opts.Bars.Timeframe()
	s.Series = map[market.Timeframe]market.Series{tf: ser}
	if s.Primary == "" {
		s.Primary = tf
	}
	return s
}

// account builds the governor's view from the broker, tracking peak equity
// and the equity share at risk between open prices and current stops.
func (r *Replayer) account(ctx context.Context) (risk.AccountState, error) {
	acct, err := r.broker.Account(ctx)
	if err != nil {
		return risk.AccountState{}, err
	}
	r.peak = math.Max(r.peak, acct.Equity)

	ords, err := r.broker.Orders(ctx, "")
	if err != nil {
		return risk.AccountState{}, err
	}
	var atRisk float64
	for _, o := range ords {
		if !o.Open || o.Pending || o.StopLoss == 0 {
			continue
		}
		if d := o.Direction.Sign() * (o.OpenPrice - o.StopLoss); d > 0 {
			atRisk += d * o.Lots * r.opts.ContractSize
		}
	}

	st := risk.AccountState{
		Balance:    acct.Balance,
		Equity:     acct.Equity,
		PeakEquity: r.peak,
		FloatingPL: acct.FloatingPL,
	}
	if acct.Equity > 0 {
		st.OpenRiskPct = atRisk / acct.Equity
	}
	return st, nil
}
