package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/ja7ad/reliability/pkg/config"
	"github.com/ja7ad/reliability/pkg/driver"
	"github.com/ja7ad/reliability/pkg/logging"
)

var version = "0.1.0-dev"

// app carries the persistent flags and the configuration they resolve to.
type app struct {
	cfgPath     string
	envFile     string
	logLevel    string
	mechanism   string
	emConstants string
	voltage     float64
	stress      float64
	jsonOut     bool

	cfg *config.Config
}

func main() {
	slog.SetDefault(logging.NewLogger(config.DefaultLogLevel, os.Stderr))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error(err.Error())
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "reliability",
		Short: "Processor wearout reliability estimator",
		Long: `The reliability tool estimates processor lifetime reliability R(t) from
temperature samples using electromigration (EM) or NBTI wearout models.

It advances one simulation step for an external thermal simulator (HotSpot,
HotSniper), replays temperature traces until a reliability limit, follows a
live HotSpot output file, or samples the host's own temperature sensors.

Examples:
  reliability step 100000 hotspot.txt sums.txt rvalues.txt
  reliability run --temperature 80 --delta-ms 8.64e9
  reliability run --csv curve.csv --db curve.db trace.txt
  reliability monitor --interval 1s --scale 3600 --metrics-addr :9464 --open`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.envFile, "env-file", ".env", "file of RELIABILITY_* overrides (ignored when missing)")
	pf.StringVar(&a.logLevel, "log-level", config.DefaultLogLevel, "log level: debug|info|warn|error")
	pf.StringVar(&a.mechanism, "mechanism", config.DefaultMechanism, "wearout mechanism: em|nbti")
	pf.StringVar(&a.emConstants, "em-constants", config.DefaultEMConstants, "EM constant set: bolchini2014|jedec")
	pf.Float64Var(&a.voltage, "voltage", config.DefaultVoltage, "supply voltage in volts (NBTI)")
	pf.Float64Var(&a.stress, "stress", config.DefaultStress, "NBTI stress factor, > 0")
	pf.BoolVar(&a.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(a),
		newStepCmd(a),
		newRunCmd(a),
		newFollowCmd(a),
		newMonitorCmd(a),
		newCurveCmd(a),
		newConvertCmd(a),
		newStatusCmd(a),
	)
	return root
}

// load resolves the configuration: defaults, YAML, environment, then the
// flags the user actually set.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if f.Changed("mechanism") {
		cfg.Model.Mechanism = a.mechanism
	}
	if f.Changed("em-constants") {
		cfg.Model.EMConstants = a.emConstants
	}
	if f.Changed("voltage") {
		cfg.Model.Voltage = a.voltage
	}
	if f.Changed("stress") {
		cfg.Model.Stress = a.stress
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(logging.NewLogger(cfg.Log.Level, cmd.ErrOrStderr()))
	a.cfg = cfg
	return nil
}

// driver builds a driver for the configured mechanism and stress inputs.
func (a *app) driver(opts ...driver.Option) (*driver.Driver, error) {
	mech, err := a.cfg.Mechanism()
	if err != nil {
		return nil, fmt.Errorf("mechanism: %w", err)
	}
	opts = append([]driver.Option{driver.WithStress(a.cfg.Stress)}, opts...)
	return driver.New(mech, opts...), nil
}
