package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/driver"
	"github.com/ja7ad/reliability/pkg/recorder"
	"github.com/ja7ad/reliability/pkg/types"
)

func newCurveCmd(a *app) *cobra.Command {
	var (
		temperature float64
		step        float64
		rLimit      float64
		maxPoints   int
		csvPath     string
	)
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the closed-form R(t) curve at a constant temperature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("r-limit") {
				rLimit = a.cfg.Run.RLimit
			}
			mech, err := a.cfg.Mechanism()
			if err != nil {
				return err
			}

			pts, err := driver.Curve(mech, a.cfg.Stress(temperature), types.Hours(step), rLimit, maxPoints)
			if err != nil {
				return err
			}

			if csvPath != "" {
				rec, err := recorder.CreateCSV(csvPath, []string{mech.String()})
				if err != nil {
					return err
				}
				for _, p := range pts {
					if err := rec.Record(p); err != nil {
						rec.Close()
						return err
					}
				}
				return rec.Close()
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				type point struct {
					Hours float64 `json:"hours"`
					Years float64 `json:"years"`
					R     float64 `json:"r"`
				}
				out := make([]point, len(pts))
				for i, p := range pts {
					out[i] = point{Hours: p.Hours, Years: types.Hours(p.Hours).Years(), R: p.R[0]}
				}
				return json.NewEncoder(w).Encode(out)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "YEARS\tR (%s, %g °C)\n", mech, temperature)
			for _, p := range pts {
				fmt.Fprintf(tw, "%.4f\t%.6f\n", types.Hours(p.Hours).Years(), p.R[0])
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.Float64Var(&temperature, "temperature", 80, "constant temperature in °C")
	f.Float64Var(&step, "step", 24*30, "curve resolution in hours")
	f.Float64Var(&rLimit, "r-limit", 0, "stop once R is at or below this (default from config)")
	f.IntVar(&maxPoints, "max-points", 100000, "maximum number of points")
	f.StringVar(&csvPath, "csv", "", "write the curve to this CSV file instead of stdout")
	return cmd
}
