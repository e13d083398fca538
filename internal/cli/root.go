package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/config"
	"github.com/rustyeddy/trendengine/internal/logging"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// rootConfig holds the persistent flags.
type rootConfig struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
}

// load reads the config file (defaults when none is given), applies .env
// and TRENDENGINE_* overrides, then the --log-level flag, and validates.
func (rc *rootConfig) load() (*config.Config, error) {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(rc.ConfigPath); err != nil {
			return nil, err
		}
	}

	var envFiles []string
	if rc.EnvFile != "" {
		envFiles = append(envFiles, rc.EnvFile)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if rc.LogLevel != "" {
		cfg.Log.Level = rc.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (rc *rootConfig) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := rc.load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func NewRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "trendengine",
		Short:         "Trend-following strategy decision and order-splitting engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", "", "Path to .env file (default .env if present)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.AddCommand(
		newRunCmd(rc),
		newProfileCmd(rc),
		newConfigCmd(rc),
		newTurningCmd(rc),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "trendengine %s\n", Version)
			},
		},
	)
	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
