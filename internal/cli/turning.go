package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/turning"
)

func newTurningCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "turning",
		Short: "Inspect or reset turning-point records",
	}

	get := &cobra.Command{
		Use:   "get <instrument>",
		Short: "Print an instrument's turning-point record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rc, func(s turning.Store, key string) error {
				rec, err := s.Load(cmd.Context(), key)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key, out)
				return nil
			}, args[0])
		},
	}

	reset := &cobra.Command{
		Use:   "reset <instrument>",
		Short: "Reset an instrument to the initial turning state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rc, func(s turning.Store, key string) error {
				if err := s.Save(cmd.Context(), key, turning.Initial()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reset\n", key)
				return nil
			}, args[0])
		},
	}

	cmd.AddCommand(get, reset)
	return cmd
}

func withStore(cmd *cobra.Command, rc *rootConfig, fn func(turning.Store, string) error, instrument string) error {
	key := profile.Canonical(instrument)
	if key == "" {
		return fmt.Errorf("instrument %q is empty", instrument)
	}
	cfg, err := rc.load()
	if err != nil {
		return err
	}
	s, err := cfg.OpenStore(cmd.Context())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()
	return fn(s, key)
}
