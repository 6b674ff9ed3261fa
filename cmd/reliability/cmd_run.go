package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/driver"
	"github.com/ja7ad/reliability/pkg/hotspot"
	"github.com/ja7ad/reliability/pkg/recorder"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		rf          runFlags
		out         outputFlags
		temperature float64
		components  int
		kelvin      bool
		htmlPath    string
	)
	cmd := &cobra.Command{
		Use:   "run [trace]",
		Short: "Replay a temperature trace until the reliability limit",
		Long: `Run replays the rows of a temperature trace (a header of component names,
then one row of temperatures per sample) with a fixed sample period, repeating
the trace until some component's R drops to the limit.

Without a trace, --temperature runs a constant-temperature sweep: every
component sees the same temperature for every sample.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var trace hotspot.Table
			switch {
			case len(args) == 1 && cmd.Flags().Changed("temperature"):
				return errors.New("a trace file and --temperature are mutually exclusive")
			case len(args) == 1:
				t, err := hotspot.ReadTraceFile(args[0])
				if err != nil {
					return err
				}
				if kelvin {
					t = t.ToCelsius()
				}
				trace = t
			case cmd.Flags().Changed("temperature"):
				trace = sweep(temperature, components)
			default:
				return errors.New("need a trace file or --temperature")
			}

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
			rec, err := out.recorder(mech.String(), trace.Names)
			if err != nil {
				return err
			}
			var curve *pointLog
			if htmlPath != "" {
				curve = &pointLog{}
				if rec == nil {
					rec = curve
				} else {
					rec = recorder.Multi(rec, curve)
				}
			}

			d, err := a.driver(driver.WithMetrics(m), driver.WithRecorder(rec))
			if err != nil {
				return err
			}
			if !a.jsonOut {
				printBanner(ctx, cmd.OutOrStdout(), "Reliability replay")
			}

			res, err := d.Replay(ctx, trace, p)
			if rec != nil {
				if cerr := rec.Close(); err == nil {
					err = cerr
				}
			}
			if err != nil {
				return err
			}

			s := newSummary(mech.String(), res, p.RLimit)
			if curve != nil {
				f, err := os.Create(htmlPath)
				if err != nil {
					return err
				}
				if err := writeHTML(f, s, curve.points); err != nil {
					f.Close()
					return fmt.Errorf("write html: %w", err)
				}
				if err := f.Close(); err != nil {
					return err
				}
			}
			return printSummary(cmd.OutOrStdout(), s, a.jsonOut)
		},
	}
	rf.register(cmd)
	out.register(cmd)
	f := cmd.Flags()
	f.Float64Var(&temperature, "temperature", 0, "constant temperature in °C for a sweep without a trace")
	f.IntVar(&components, "components", 1, "number of identical components in a sweep")
	f.BoolVar(&kelvin, "kelvin", false, "trace temperatures are in Kelvin")
	f.StringVar(&htmlPath, "html", "", "write the summary and recorded curve to an HTML file")
	return cmd
}

// sweep is a one-row trace: n components at temp.
func sweep(temp float64, n int) hotspot.Table {
	if n < 1 {
		n = 1
	}
	t := hotspot.Table{Names: make([]string, n), Rows: [][]float64{make([]float64, n)}}
	for i := range n {
		t.Names[i] = "C" + strconv.Itoa(i)
		t.Rows[0][i] = temp
	}
	return t
}
