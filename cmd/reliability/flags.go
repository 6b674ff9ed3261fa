package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/checkpoint"
	"github.com/ja7ad/reliability/pkg/driver"
	"github.com/ja7ad/reliability/pkg/metrics"
	"github.com/ja7ad/reliability/pkg/recorder"
)

// runFlags are the sampling flags shared by run and follow. They override
// the run section of the configuration when set.
type runFlags struct {
	deltaMS     float64
	rLimit      float64
	reportEvery int
	maxSamples  int64
}

func (r *runFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&r.deltaMS, "delta-ms", 0, "sample period in milliseconds (default from config)")
	f.Float64Var(&r.rLimit, "r-limit", 0, "stop once any component's R is at or below this (default from config)")
	f.IntVar(&r.reportEvery, "report-every", 0, "record a curve point every N samples (default from config)")
	f.Int64Var(&r.maxSamples, "max-samples", 0, "stop after N samples, 0 = unbounded")
}

func (r *runFlags) params(cmd *cobra.Command, a *app) driver.Params {
	p := driver.Params{
		DeltaMS:     a.cfg.Run.DeltaMS,
		RLimit:      a.cfg.Run.RLimit,
		ReportEvery: a.cfg.Run.ReportEvery,
		MaxSamples:  a.cfg.Run.MaxSamples,
	}
	f := cmd.Flags()
	if f.Changed("delta-ms") {
		p.DeltaMS = r.deltaMS
	}
	if f.Changed("r-limit") {
		p.RLimit = r.rLimit
	}
	if f.Changed("report-every") {
		p.ReportEvery = r.reportEvery
	}
	if f.Changed("max-samples") {
		p.MaxSamples = r.maxSamples
	}
	return p
}

// fileFlags name the checkpoint files of follow and monitor.
type fileFlags struct {
	damage   string
	recovery string
	rvalues  string
}

func (c *fileFlags) register(cmd *cobra.Command, damage string) {
	f := cmd.Flags()
	f.StringVar(&c.damage, "sums", damage, "damage checkpoint file")
	f.StringVar(&c.recovery, "recovery", "", "NBTI recovery term checkpoint file")
	f.StringVar(&c.rvalues, "rvalues", "", "file receiving the latest R values")
}

func (c *fileFlags) files() checkpoint.Files {
	return checkpoint.Files{Damage: c.damage, Recovery: c.recovery, RValues: c.rvalues}
}

// outputFlags select curve recorders and the metrics endpoint.
type outputFlags struct {
	db      string
	csv     string
	metrics string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.db, "db", "", "record the curve into this SQLite database (default from config)")
	f.StringVar(&o.csv, "csv", "", "record the curve into this CSV file (default from config)")
	o.registerMetrics(cmd)
}

func (o *outputFlags) registerMetrics(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.metrics, "metrics-addr", "", "serve Prometheus metrics and the JSON API on this address (default from config)")
}

func (o *outputFlags) resolve(cmd *cobra.Command, a *app) {
	f := cmd.Flags()
	if f.Lookup("db") != nil && !f.Changed("db") {
		o.db = a.cfg.Output.DB
	}
	if f.Lookup("csv") != nil && !f.Changed("csv") {
		o.csv = a.cfg.Output.CSV
	}
	if !f.Changed("metrics-addr") {
		o.metrics = a.cfg.Metrics.Addr
	}
}

// recorder opens the configured recorders. It returns nil when none is set.
func (o *outputFlags) recorder(mechanism string, names []string) (recorder.Recorder, error) {
	var rs []recorder.Recorder
	if o.db != "" {
		db, err := recorder.NewSQLite(o.db, recorder.Run{Mechanism: mechanism, Components: names}, 0)
		if err != nil {
			return nil, err
		}
		rs = append(rs, db)
	}
	if o.csv != "" {
		c, err := recorder.CreateCSV(o.csv, names)
		if err != nil {
			for _, r := range rs {
				_ = r.Close()
			}
			return nil, err
		}
		rs = append(rs, c)
	}
	switch len(rs) {
	case 0:
		return nil, nil
	case 1:
		return rs[0], nil
	default:
		return recorder.Multi(rs...), nil
	}
}

// serve starts the metrics endpoint when an address is set. A nil *Metrics
// is returned otherwise and is safe to pass to the driver.
func (o *outputFlags) serve(ctx context.Context) (*metrics.Metrics, net.Addr, error) {
	if o.metrics == "" {
		return nil, nil, nil
	}
	m := metrics.New()
	addr, err := m.Serve(ctx, o.metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}
	return m, addr, nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
