// Package config loads the engine configuration from YAML or JSON, applies
// TRENDENGINE_* environment overrides and validates the result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendengine/engine"
	"github.com/rustyeddy/trendengine/orders"
	"github.com/rustyeddy/trendengine/risk"
	"github.com/rustyeddy/trendengine/strategies"
	"github.com/rustyeddy/trendengine/turning"
)

type Config struct {
	Engine   EngineConfig      `json:"engine" yaml:"engine"`
	Account  AccountConfig     `json:"account" yaml:"account"`
	Strategy strategies.Config `json:"strategy" yaml:"strategy"`
	Risk     risk.Policy       `json:"risk" yaml:"risk"`
	Orders   orders.Config     `json:"orders" yaml:"orders"`
	Store    StoreConfig       `json:"store" yaml:"store"`
	Journal  JournalConfig     `json:"journal" yaml:"journal"`
	Log      LogConfig         `json:"log" yaml:"log"`
	Status   StatusConfig      `json:"status" yaml:"status"`

	// Profiles is an optional YAML file of instrument profile overrides.
	Profiles string `json:"profiles,omitempty" yaml:"profiles,omitempty"`
}

type EngineConfig struct {
	Workers int `json:"workers" yaml:"workers" validate:"gte=1"`
	// Budget caps one cycle's wall time; zero means no cap.
	Budget         time.Duration `json:"budget" yaml:"budget" validate:"gte=0"`
	FillIndicators bool          `json:"fill_indicators" yaml:"fill_indicators"`

	// DispatchRate is transport calls per second; zero disables pacing.
	DispatchRate  float64 `json:"dispatch_rate" yaml:"dispatch_rate" validate:"gte=0"`
	DispatchBurst int     `json:"dispatch_burst" yaml:"dispatch_burst" validate:"gte=0"`

	Sizing engine.Sizing `json:"sizing" yaml:"sizing"`
}

// AccountConfig seeds the paper broker.
type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency" validate:"required,len=3"`
	Balance  float64 `json:"balance" yaml:"balance" validate:"gt=0"`
}

type StoreConfig struct {
	Type  string              `json:"type" yaml:"type" validate:"oneof=memory sqlite redis"`
	Path  string              `json:"path,omitempty" yaml:"path,omitempty"`
	Redis turning.RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

type JournalConfig struct {
	Type        string `json:"type" yaml:"type" validate:"oneof=none csv sqlite"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CyclesFile  string `json:"cycles_file,omitempty" yaml:"cycles_file,omitempty"`
	ActionsFile string `json:"actions_file,omitempty" yaml:"actions_file,omitempty"`
}

// LogConfig drives the zap logger; FileName enables rotated file output.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	FileName   string `json:"file-name,omitempty" yaml:"file-name,omitempty"`
	MaxSize    int    `json:"max-size,omitempty" yaml:"max-size,omitempty" validate:"gte=0"`
	MaxBackups int    `json:"max-backups,omitempty" yaml:"max-backups,omitempty" validate:"gte=0"`
	MaxAge     int    `json:"max-age,omitempty" yaml:"max-age,omitempty" validate:"gte=0"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
	Console    bool   `json:"console" yaml:"console"`
	JSON       bool   `json:"json,omitempty" yaml:"json,omitempty"`
}

type StatusConfig struct {
	// Addr is the status server listen address; empty disables it.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns a configuration that runs entirely in memory.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers:        4,
			FillIndicators: true,
			Sizing:         engine.DefaultSizing(),
		},
		Account: AccountConfig{
			Currency: "USD",
			Balance:  10_000,
		},
		Strategy: strategies.DefaultConfig(),
		Risk:     risk.DefaultPolicy(),
		Orders:   orders.DefaultConfig(),
		Store:    StoreConfig{Type: "memory"},
		Journal:  JournalConfig{Type: "none"},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Console:    true,
		},
	}
}

// LoadFromFile reads path over the defaults, trying YAML first and JSON
// second, and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
