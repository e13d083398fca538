package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/broker/paper"
	"github.com/rustyeddy/trendengine/engine"
	"github.com/rustyeddy/trendengine/internal/status"
	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/pricing"
	"github.com/rustyeddy/trendengine/replay"
)

type runOptions struct {
	Script     string
	StatusAddr string
	Bars       string
}

func newRunCmd(rc *rootConfig) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay recorded cycles through the engine against the paper broker",
		Long: `Run every step of a replay script through the engine. Orders go to an
in-memory paper broker seeded from the account section of the config;
optional ticks move prices between bars.

Example:
  trendengine run --config trendengine.yaml -f cycles.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, rc, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Script, "file", "f", "", "replay script (YAML) (required)")
	cmd.Flags().StringVar(&opts.StatusAddr, "status-addr", "", "serve status while running (overrides status.addr)")
	cmd.Flags().StringVar(&opts.Bars, "bars", "", "build bars of this timeframe from quotes for steps without series (e.g. H1)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runRun(cmd *cobra.Command, rc *rootConfig, opts *runOptions) error {
	cfg, log, err := rc.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	script, err := replay.Load(opts.Script)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	j, err := cfg.OpenJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	resolver, err := cfg.Resolver()
	if err != nil {
		return err
	}

	b := paper.New(cfg.Account.Currency, cfg.Account.Balance, log)
	b.SetContractSize(cfg.Engine.Sizing.ContractSize)

	e := engine.New(engine.Options{
		Resolver:       resolver,
		Policy:         cfg.Risk,
		Strategy:       cfg.Strategy,
		Orders:         cfg.Orders,
		Sizing:         cfg.Engine.Sizing,
		Store:          store,
		Journal:        j,
		Transport:      b,
		Dispatcher:     engine.NewDispatcher(cfg.Engine.DispatchRate, cfg.Engine.DispatchBurst, log),
		FillIndicators: cfg.Engine.FillIndicators,
		Log:            log,
	})
	runner := engine.NewRunner(e, cfg.Engine.Workers, cfg.Engine.Budget, log)

	addr := cfg.Status.Addr
	if opts.StatusAddr != "" {
		addr = opts.StatusAddr
	}
	if addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv := status.NewServer(store, resolver, Version, log)
		go func() {
			if err := srv.Run(srvCtx, addr); err != nil {
				log.Error("status server", zap.Error(err))
			}
		}()
	}

	ropts := replay.Options{
		ContractSize: cfg.Engine.Sizing.ContractSize,
		Log:          log,
	}
	if opts.Bars != "" {
		if ropts.Bars, err = pricing.NewBarBuilder(market.Timeframe(opts.Bars), 0); err != nil {
			return err
		}
	}
	rep, runErr := replay.New(b, runner, ropts).Run(ctx, script)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Replayed %s\n", opts.Script)
	fmt.Fprintf(out, "  Cycles:  %d (skipped %d, failed %d)\n", rep.Cycles, rep.Skipped, rep.Failed)
	fmt.Fprintf(out, "  Actions: %d\n", rep.Actions)
	fmt.Fprintf(out, "  Closed:  %d\n", len(rep.Closed))
	fmt.Fprintf(out, "  Balance: %.2f %s\n", rep.Balance, cfg.Account.Currency)
	fmt.Fprintf(out, "  Equity:  %.2f %s\n", rep.Equity, cfg.Account.Currency)
	if cfg.Journal.Type == "sqlite" {
		fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.DBPath)
	}

	if runErr != nil {
		return fmt.Errorf("replay: %w", runErr)
	}
	return nil
}
