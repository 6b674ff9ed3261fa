package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/checkpoint"
	"github.com/ja7ad/reliability/pkg/metrics"
)

func newStepCmd(a *app) *cobra.Command {
	var (
		recovery string
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "step <delta_ms> <snapshot> <sums> <rvalues>",
		Short: "Advance every core by one HotSpot snapshot",
		Long: `Step reads the per-core temperatures of a HotSpot snapshot, loads the damage
checkpoint from <sums> (fresh when missing), advances every core by delta_ms
milliseconds and writes the updated damage to <sums> and the R values to
<rvalues>. Nothing is written when any core fails to update.

NBTI runs also keep the threshold voltage shift in the --recovery file.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			deltaMS, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("delta_ms %q: %w", args[0], err)
			}
			d, err := a.driver()
			if err != nil {
				return err
			}

			files := checkpoint.Files{Damage: args[2], Recovery: recovery, RValues: args[3]}
			b, err := d.Step(deltaMS, args[1], files)
			if err != nil {
				return err
			}
			lo, at := b.MinR()
			slog.Debug("step", "components", b.Len(), "min_r", lo, "weakest", b.Names()[at])

			if quiet {
				return nil
			}
			cs := make([]metrics.Component, b.Len())
			for i, m := range b.Models() {
				cs[i] = metrics.Component{
					Name:      b.Names()[i],
					Mechanism: m.Mechanism().String(),
					R:         m.R(),
					Damage:    m.Damage(),
					AreaHours: m.Area(),
					Recovery:  m.RecoveryTerm(),
					Updates:   1,
				}
			}
			return printComponents(cmd.OutOrStdout(), cs, a.jsonOut)
		},
	}
	cmd.Flags().StringVar(&recovery, "recovery", "", "NBTI recovery term checkpoint file (required for nbti)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the updated components")
	return cmd
}
