package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/reliability/pkg/wearout"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Default values.
const (
	DefaultMechanism   = "em"
	DefaultEMConstants = wearout.EMSetBolchini
	DefaultVoltage     = 1.0
	DefaultStress      = 1.0
	DefaultDeltaMS     = 100000
	DefaultRLimit      = 0.01
	DefaultReportEvery = 100000
	DefaultMetricsAddr = ""
	DefaultLogLevel    = "info"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RELIABILITY_"

// Config is the full run configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Run     RunConfig     `yaml:"run"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ModelConfig selects the wearout mechanism and its fixed stress inputs.
type ModelConfig struct {
	// Mechanism is one of: em | nbti.
	Mechanism string `yaml:"mechanism"`

	// EMConstants names the EM constant set: bolchini2014 | jedec.
	EMConstants string `yaml:"em_constants"`

	// Voltage is the supply voltage in volts (NBTI only).
	Voltage float64 `yaml:"voltage"`

	// Stress is the NBTI stress (duty) factor, must be > 0.
	Stress float64 `yaml:"stress"`
}

// RunConfig controls trace replay and sample handling.
type RunConfig struct {
	// DeltaMS is the sample period in milliseconds.
	DeltaMS float64 `yaml:"delta_ms"`

	// RLimit stops a replay once any component's R is at or below it.
	RLimit float64 `yaml:"r_limit"`

	// ReportEvery records one curve point every N samples (0 disables).
	ReportEvery int `yaml:"report_every"`

	// MaxSamples bounds a replay (0 means no bound).
	MaxSamples int64 `yaml:"max_samples"`
}

// OutputConfig names the curve outputs. Empty paths disable them.
type OutputConfig struct {
	DB  string `yaml:"db"`
	CSV string `yaml:"csv"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Mechanism:   DefaultMechanism,
			EMConstants: DefaultEMConstants,
			Voltage:     DefaultVoltage,
			Stress:      DefaultStress,
		},
		Run: RunConfig{
			DeltaMS:     DefaultDeltaMS,
			RLimit:      DefaultRLimit,
			ReportEvery: DefaultReportEvery,
		},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		Log:     LogConfig{Level: DefaultLogLevel},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then RELIABILITY_* environment overrides. The result
// is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *float64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
		}
		*dst = f
		return nil
	}
	integer := func(key string, dst *int64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
		}
		*dst = n
		return nil
	}

	str("MECHANISM", &cfg.Model.Mechanism)
	str("EM_CONSTANTS", &cfg.Model.EMConstants)
	str("DB", &cfg.Output.DB)
	str("CSV", &cfg.Output.CSV)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)

	for key, dst := range map[string]*float64{
		"VOLTAGE":  &cfg.Model.Voltage,
		"STRESS":   &cfg.Model.Stress,
		"DELTA_MS": &cfg.Run.DeltaMS,
		"R_LIMIT":  &cfg.Run.RLimit,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	every := int64(cfg.Run.ReportEvery)
	if err := integer("REPORT_EVERY", &every); err != nil {
		return err
	}
	cfg.Run.ReportEvery = int(every)
	return integer("MAX_SAMPLES", &cfg.Run.MaxSamples)
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	if _, err := c.Mechanism(); err != nil {
		return fmt.Errorf("%w: model: %v", ErrInvalid, err)
	}
	if math.IsNaN(c.Model.Voltage) || math.IsInf(c.Model.Voltage, 0) {
		return fmt.Errorf("%w: model.voltage %g", ErrInvalid, c.Model.Voltage)
	}
	if !(c.Model.Stress > 0) || math.IsInf(c.Model.Stress, 0) {
		return fmt.Errorf("%w: model.stress %g must be > 0", ErrInvalid, c.Model.Stress)
	}
	if !(c.Run.DeltaMS > 0) || math.IsInf(c.Run.DeltaMS, 0) {
		return fmt.Errorf("%w: run.delta_ms %g must be > 0", ErrInvalid, c.Run.DeltaMS)
	}
	if !(c.Run.RLimit > 0 && c.Run.RLimit < 1) {
		return fmt.Errorf("%w: run.r_limit %g is out of range (0, 1)", ErrInvalid, c.Run.RLimit)
	}
	if c.Run.ReportEvery < 0 {
		return fmt.Errorf("%w: run.report_every must not be negative", ErrInvalid)
	}
	if c.Run.MaxSamples < 0 {
		return fmt.Errorf("%w: run.max_samples must not be negative", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q unknown: want debug|info|warn|error", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Mechanism builds the configured wearout mechanism.
func (c *Config) Mechanism() (wearout.Mechanism, error) {
	kind, err := wearout.ParseKind(c.Model.Mechanism)
	if err != nil {
		return wearout.Mechanism{}, err
	}
	if kind == wearout.NBTI {
		return wearout.NewNBTI(wearout.DefaultNBTIConstants()), nil
	}
	set, err := wearout.EMConstantSet(c.Model.EMConstants)
	if err != nil {
		return wearout.Mechanism{}, err
	}
	return wearout.NewElectromigration(set), nil
}

// Stress returns the stress conditions for one temperature reading.
func (c *Config) Stress(temp float64) wearout.Stress {
	return wearout.Stress{Temperature: temp, Voltage: c.Model.Voltage, Factor: c.Model.Stress}
}
