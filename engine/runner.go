package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/profile"
)

// Runner runs cycles for many instruments in parallel. Cycles of one
// instrument run in order on one worker, so no instrument's state is
// touched concurrently.
type Runner struct {
	engine  *Engine
	workers int
	budget  time.Duration
	log     *zap.Logger
}

// NewRunner bounds parallelism to workers (at least 1). A positive budget
// caps each cycle's wall time; a cycle over budget is skipped.
func NewRunner(e *Engine, workers int, budget time.Duration, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{engine: e, workers: workers, budget: budget, log: log}
}

// RunAll runs cycles and returns results in input order. A failed or
// skipped cycle leaves its slot with only the instrument and bar time set;
// its error is included in the combined error and the run continues.
func (r *Runner) RunAll(ctx context.Context, cycles []Cycle) ([]Result, error) {
	groups := make(map[string][]int)
	var order []string
	for i, c := range cycles {
		k := profile.Canonical(c.Snapshot.Instrument)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var (
		results = make([]Result, len(cycles))
		sem     = make(chan struct{}, r.workers)
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    error
	)
	for _, k := range order {
		idx := groups[k]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			for _, i := range idx {
				c := cycles[i]
				res, err := r.run(ctx, c)
				if err != nil {
					res = Result{Instrument: c.Snapshot.Instrument, BarTime: c.Snapshot.Time}
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("%s %s: %w",
						c.Snapshot.Instrument, c.Snapshot.Time.Format(time.RFC3339), err))
					mu.Unlock()
				}
				results[i] = res
			}
		}()
	}
	wg.Wait()
	return results, errs
}

func (r *Runner) run(ctx context.Context, c Cycle) (Result, error) {
	if r.budget <= 0 {
		return r.engine.Run(ctx, c)
	}
	cctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	res, err := r.engine.Run(cctx, c)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		mtxSkipped.WithLabelValues(profile.Canonical(c.Snapshot.Instrument)).Inc()
		r.log.Warn("cycle over budget",
			zap.String("instrument", c.Snapshot.Instrument),
			zap.Time("bar_time", c.Snapshot.Time),
			zap.Duration("budget", r.budget),
		)
		return res, fmt.Errorf("%w: %w", ErrCycleSkipped, err)
	}
	return res, err
}
