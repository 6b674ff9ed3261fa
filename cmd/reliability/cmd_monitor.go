package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/driver"
	"github.com/ja7ad/reliability/pkg/system/sensors"
)

func newMonitorCmd(a *app) *cobra.Command {
	var (
		ff         fileFlags
		out        outputFlags
		interval   time.Duration
		scale      float64
		ema        float64
		filter     string
		rLimit     float64
		maxSamples int64
		open       bool
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Estimate wearout from the host's temperature sensors",
		Long: `Monitor samples the host's temperature sensors every --interval, smooths
each sensor with an exponential moving average and feeds the readings to one
reliability model per sensor. --scale accelerates simulated time: with
--scale 3600 every wall-clock second counts as one hour.

Examples:
  reliability monitor --sensors 'coretemp' --interval 1s
  reliability monitor --scale 8760 --metrics-addr :9464 --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out.resolve(cmd, a)
			if open && out.metrics == "" {
				return errors.New("--open needs --metrics-addr")
			}
			if !cmd.Flags().Changed("r-limit") {
				rLimit = a.cfg.Run.RLimit
			}
			mech, err := a.cfg.Mechanism()
			if err != nil {
				return err
			}

			host, err := sensors.NewHost(filter)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			readings, err := host.Temperatures(ctx)
			if err != nil {
				return err
			}
			names := make([]string, len(readings))
			for i, r := range readings {
				names[i] = r.Key
			}

			m, addr, err := out.serve(ctx)
			if err != nil {
				return err
			}
			rec, err := out.recorder(mech.String(), names)
			if err != nil {
				return err
			}
			d, err := a.driver(driver.WithMetrics(m), driver.WithRecorder(rec))
			if err != nil {
				return err
			}

			if open {
				url := componentsURL(addr)
				if err := browser.OpenURL(url); err != nil {
					slog.Warn("monitor: open browser", "url", url, "err", err)
				}
			}
			if !a.jsonOut {
				printBanner(ctx, cmd.OutOrStdout(), "Reliability monitor")
			}

			res, err := d.Monitor(ctx, host, driver.MonitorParams{
				Interval:   interval,
				Scale:      scale,
				EMA:        ema,
				RLimit:     rLimit,
				MaxSamples: maxSamples,
				Files:      ff.files(),
				Keys:       names,
			})
			if rec != nil {
				if cerr := rec.Close(); err == nil {
					err = cerr
				}
			}
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), newSummary(mech.String(), res, rLimit), a.jsonOut)
		},
	}
	ff.register(cmd, "")
	out.register(cmd)
	f := cmd.Flags()
	f.DurationVarP(&interval, "interval", "i", time.Second, "sampling interval (e.g. 1s, 500ms)")
	f.Float64Var(&scale, "scale", 1, "simulated hours per wall-clock hour")
	f.Float64Var(&ema, "ema", 0.5, "EMA alpha for sensor smoothing [0..1]")
	f.StringVar(&filter, "sensors", "", "regular expression selecting sensor keys")
	f.Float64Var(&rLimit, "r-limit", 0, "stop once any sensor's R is at or below this (default from config)")
	f.Int64VarP(&maxSamples, "samples", "s", 0, "number of samples to collect (0 = run until Ctrl-C)")
	f.BoolVar(&open, "open", false, "open the component API in a browser")
	return cmd
}

func componentsURL(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d/api/components", tcp.Port)
	}
	return "http://" + addr.String() + "/api/components"
}
