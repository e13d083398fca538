package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// EnvPrefix is prepended to every override variable name.
const EnvPrefix = "TRENDENGINE_"

type envVar struct {
	name string
	set  func(*Config, string) error
}

func bind[T any](conv func(any) (T, error), field func(*Config) *T) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := conv(raw)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

var envVars = []envVar{
	{"LOG_LEVEL", bind(cast.ToStringE, func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FILE", bind(cast.ToStringE, func(c *Config) *string { return &c.Log.FileName })},
	{"LOG_JSON", bind(cast.ToBoolE, func(c *Config) *bool { return &c.Log.JSON })},
	{"STATUS_ADDR", bind(cast.ToStringE, func(c *Config) *string { return &c.Status.Addr })},
	{"STORE_TYPE", bind(cast.ToStringE, func(c *Config) *string { return &c.Store.Type })},
	{"STORE_PATH", bind(cast.ToStringE, func(c *Config) *string { return &c.Store.Path })},
	{"REDIS_ADDR", bind(cast.ToStringE, func(c *Config) *string { return &c.Store.Redis.Addr })},
	{"REDIS_PASSWORD", bind(cast.ToStringE, func(c *Config) *string { return &c.Store.Redis.Password })},
	{"REDIS_DB", bind(cast.ToIntE, func(c *Config) *int { return &c.Store.Redis.DB })},
	{"JOURNAL_TYPE", bind(cast.ToStringE, func(c *Config) *string { return &c.Journal.Type })},
	{"JOURNAL_DB", bind(cast.ToStringE, func(c *Config) *string { return &c.Journal.DBPath })},
	{"WORKERS", bind(cast.ToIntE, func(c *Config) *int { return &c.Engine.Workers })},
	{"BUDGET", bind(cast.ToDurationE, func(c *Config) *time.Duration { return &c.Engine.Budget })},
	{"DISPATCH_RATE", bind(cast.ToFloat64E, func(c *Config) *float64 { return &c.Engine.DispatchRate })},
	{"ACCOUNT_CURRENCY", bind(cast.ToStringE, func(c *Config) *string { return &c.Account.Currency })},
	{"ACCOUNT_BALANCE", bind(cast.ToFloat64E, func(c *Config) *float64 { return &c.Account.Balance })},
	{"RISK_PER_TRADE_PCT", bind(cast.ToFloat64E, func(c *Config) *float64 { return &c.Risk.RiskPerTradePct })},
	{"EXIT_IN_RANGE", bind(cast.ToBoolE, func(c *Config) *bool { return &c.Strategy.ExitInRange })},
	{"PROFILES", bind(cast.ToStringE, func(c *Config) *string { return &c.Profiles })},
}

// LoadDotEnv loads .env style files into the process environment without
// overwriting variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var errs error
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, fmt.Errorf("load %s: %w", f, err))
		}
	}
	return errs
}

// ApplyEnv overrides c from TRENDENGINE_* process environment variables.
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides c from variables found by lookup. Every bad value
// is reported; good values are applied regardless.
func (c *Config) ApplyEnvFrom(lookup func(string) (string, bool)) error {
	var errs error
	for _, v := range envVars {
		raw, ok := lookup(EnvPrefix + v.name)
		if !ok {
			continue
		}
		if err := v.set(c, raw); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, v.name, err))
		}
	}
	return errs
}
