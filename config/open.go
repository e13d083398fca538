package config

import (
	"context"
	"fmt"

	"github.com/rustyeddy/trendengine/journal"
	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/turning"
)

// OpenStore opens the configured turning-point store.
func (c *Config) OpenStore(ctx context.Context) (turning.Store, error) {
	switch c.Store.Type {
	case "", "memory":
		return turning.NewMemoryStore(), nil
	case "sqlite":
		s, err := turning.NewSQLiteStore(c.Store.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := turning.NewRedisStore(ctx, c.Store.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", c.Store.Type)
	}
}

// OpenJournal opens the configured decision journal.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "", "none":
		return journal.Nop{}, nil
	case "sqlite":
		j, err := journal.NewSQLite(c.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "csv":
		j, err := journal.NewCSV(c.Journal.CyclesFile, c.Journal.ActionsFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
	}
}

// Resolver returns the builtin profile table with the profiles file, if
// any, merged on top.
func (c *Config) Resolver() (*profile.Resolver, error) {
	r := profile.Builtin()
	if c.Profiles == "" {
		return r, nil
	}
	overrides, err := profile.LoadOverrides(c.Profiles)
	if err != nil {
		return nil, err
	}
	return r.Apply(overrides)
}
