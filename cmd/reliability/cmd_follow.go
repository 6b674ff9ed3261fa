package main

import (
	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/driver"
)

func newFollowCmd(a *app) *cobra.Command {
	var (
		rf     runFlags
		ff     fileFlags
		out    outputFlags
		settle = driver.DefaultSettle
	)
	cmd := &cobra.Command{
		Use:   "follow <snapshot>",
		Short: "Advance the models on every write of a HotSpot snapshot",
		Long: `Follow watches a HotSpot snapshot file. Every time the simulator rewrites
it, the per-core temperatures are applied as one sample of --delta-ms and the
checkpoint is saved. It stops at the R limit, after --max-samples, or on
Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := rf.params(cmd, a)
			out.resolve(cmd, a)
			mech, err := a.cfg.Mechanism()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			m, _, err := out.serve(ctx)
			if err != nil {
				return err
			}
			d, err := a.driver(driver.WithMetrics(m))
			if err != nil {
				return err
			}
			if !a.jsonOut {
				printBanner(ctx, cmd.OutOrStdout(), "Reliability follow")
			}

			res, err := d.Follow(ctx, args[0], ff.files(), p, settle)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), newSummary(mech.String(), res, p.RLimit), a.jsonOut)
		},
	}
	rf.register(cmd)
	ff.register(cmd, "sums.txt")
	out.registerMetrics(cmd)
	cmd.Flags().DurationVar(&settle, "settle", settle, "quiet time after a write before the snapshot is read")
	return cmd
}
