package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendengine/risk"
)

func newProfileCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [instrument]",
		Short: "Print the profile an instrument resolves to, or list every profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load()
			if err != nil {
				return err
			}
			r, err := cfg.Resolver()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if len(args) == 0 {
				fmt.Fprintln(w, "PROFILE\tDIGITS\tPIP\tSTOP MULT\tHOURS\tSPLIT")
				for _, p := range r.Profiles() {
					fmt.Fprintf(w, "%s\t%d\t%s\t%g\t%02d-%02d\t%s\n",
						p.ID, p.Digits, pipText(p.PipLocation), p.StopMultiplier(),
						p.TradingStartHour, p.TradingStopHour, p.Split)
				}
				return w.Flush()
			}

			p := r.Resolve(args[0])
			fmt.Fprintf(w, "instrument\t%s\n", args[0])
			fmt.Fprintf(w, "profile\t%s\n", p.ID)
			fmt.Fprintf(w, "digits\t%d\n", p.Digits)
			fmt.Fprintf(w, "pip location\t%d\n", p.PipLocation)
			fmt.Fprintf(w, "pip size\t%s\n", pipText(p.PipLocation))
			fmt.Fprintf(w, "stop multiplier\t%g\n", p.StopMultiplier())
			fmt.Fprintf(w, "range divisor\t%g\n", p.RangeDivisor())
			fmt.Fprintf(w, "range multiplier\t%g\n", p.RangeMultiplier())
			fmt.Fprintf(w, "min take-profit\t%g\n", p.MinTakeProfit)
			fmt.Fprintf(w, "trading hours\t%02d-%02d\n", p.TradingStartHour, p.TradingStopHour)
			if p.Swing() {
				fmt.Fprintf(w, "swing grid\tevery %dh +%d\n", p.SwingHours, p.SwingOffset)
			}
			fmt.Fprintf(w, "split\t%s\n", p.Split)
			return w.Flush()
		},
	}
}

// pipText prints the pip size with exactly as many decimals as it needs.
func pipText(loc int) string {
	return fmt.Sprintf("%.*f", max(-loc, 0), risk.PipSize(loc))
}
