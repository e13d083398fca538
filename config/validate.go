package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/rustyeddy/trendengine/market"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their YAML names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every field and returns all problems together, each as
// "<dotted.path> <problem>".
func (c *Config) Validate() error {
	var errs error

	if err := validate.Struct(c); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			errs = multierr.Append(errs, fmt.Errorf("%s %s", path(fe), describe(fe)))
		}
	}
	return multierr.Append(errs, c.crossCheck())
}

func path(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return "must have length " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lt":
		return "must be < " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value())
	}
}

// crossCheck covers rules that span fields.
func (c *Config) crossCheck() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	r := c.Risk
	if r.CautionDrawdownPct > 0 && r.CautionDrawdownPct >= r.MaxDrawdownPct {
		add("risk.caution_drawdown_pct must be below risk.max_drawdown_pct")
	}
	if r.MinFraction > r.MaxFraction {
		add("risk.min_fraction must not exceed risk.max_fraction")
	}
	if r.RiskPerTradePct > r.MaxOpenRiskPct {
		add("risk.risk_per_trade_pct must not exceed risk.max_open_risk_pct")
	}

	s := c.Strategy
	for name, tf := range map[string]market.Timeframe{
		"strategy.execution_timeframe": s.ExecutionTimeframe,
		"strategy.swing.timeframe":     s.Swing.Timeframe,
	} {
		if !tf.Valid() {
			add("%s %q is not a timeframe", name, tf)
		}
	}
	if s.BeginningMinStrength > s.StrongStrength || s.MiddleMinStrength > s.StrongStrength {
		add("strategy.strong_strength must be at least the minimum strengths")
	}

	for i := 1; i < len(c.Orders.Ladder); i++ {
		if c.Orders.Ladder[i] <= c.Orders.Ladder[i-1] {
			add("orders.ladder must be strictly increasing")
			break
		}
	}

	switch c.Store.Type {
	case "sqlite":
		if c.Store.Path == "" {
			add("store.path is required for the sqlite store")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			add("store.redis.addr is required for the redis store")
		}
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			add("journal.db_path is required for the sqlite journal")
		}
	case "csv":
		if c.Journal.CyclesFile == "" || c.Journal.ActionsFile == "" {
			add("journal.cycles_file and journal.actions_file are required for the csv journal")
		}
	}
	return errs
}
