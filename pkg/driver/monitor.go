package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ja7ad/reliability/pkg/checkpoint"
	"github.com/ja7ad/reliability/pkg/system/sensors"
	"github.com/ja7ad/reliability/pkg/system/util"
	"github.com/ja7ad/reliability/pkg/types"
)

// MonitorParams configures live sensor sampling.
type MonitorParams struct {
	Interval   time.Duration // wall-clock sampling interval
	Scale      float64       // simulated hours per wall-clock hour, 1 = real time
	EMA        float64       // smoothing factor for sensor readings [0..1]
	RLimit     float64
	MaxSamples int64
	Files      checkpoint.Files // optional; saved after every sample when Damage is set
	Keys       []string         // fixed sensor set; empty means the keys of the first reading
}

// Monitor samples host sensor temperatures every Interval, smooths them with
// an EMA per sensor and feeds them to the bank as samples of
// Interval*Scale. The sensor set is p.Keys, or the first reading when unset.
func (d *Driver) Monitor(ctx context.Context, r sensors.Reader, p MonitorParams) (Result, error) {
	if p.Interval <= 0 {
		return Result{}, fmt.Errorf("%w: interval must be > 0", ErrBadParams)
	}
	if p.Scale == 0 {
		p.Scale = 1
	}
	if !(p.Scale > 0) {
		return Result{}, fmt.Errorf("%w: scale %g must be > 0", ErrBadParams, p.Scale)
	}
	if !(p.RLimit > 0 && p.RLimit < 1) {
		return Result{}, fmt.Errorf("%w: r limit %g is out of range (0, 1)", ErrBadParams, p.RLimit)
	}

	dt := float64(types.FromDuration(p.Interval)) * p.Scale

	var (
		b     *Bank
		keys  []string
		emas  []*util.EMA
		n     int64
		hours float64
	)
	done := func() Result {
		if b == nil {
			return Result{}
		}
		return result(b, n, hours, p.RLimit)
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return done(), nil

		case <-ticker.C:
			readings, err := r.Temperatures(ctx)
			if err != nil {
				slog.Warn("monitor: sample error", "err", err)
				continue
			}

			if b == nil {
				keys = p.Keys
				if len(keys) == 0 {
					keys = make([]string, len(readings))
					for i, rd := range readings {
						keys[i] = rd.Key
					}
				}
				emas = make([]*util.EMA, len(keys))
				for i := range emas {
					emas[i] = util.NewEMA(p.EMA)
				}
				if b, err = d.monitorBank(keys, p.Files); err != nil {
					return Result{}, err
				}
				slog.Info("monitor: sensors", "count", len(keys), "keys", keys)
			}

			temps, ok := match(keys, readings)
			if !ok {
				slog.Warn("monitor: sensor set changed, skipping sample", "want", len(keys), "got", len(readings))
				continue
			}
			for i := range temps {
				temps[i] = emas[i].Next(temps[i])
			}

			if err := d.update(b, dt, temps); err != nil {
				return done(), fmt.Errorf("sample %d: %w", n+1, err)
			}
			n++
			hours += dt
			if p.Files.Damage != "" {
				if err := p.Files.Save(b.Models()); err != nil {
					return done(), err
				}
			}
			d.observe(b)
			if err := d.record(n, hours, b); err != nil {
				return done(), err
			}
			if d.onStep != nil {
				d.onStep(n, b)
			}

			if lo, _ := b.MinR(); lo <= p.RLimit || (p.MaxSamples > 0 && n >= p.MaxSamples) {
				return done(), nil
			}
		}
	}
}

func (d *Driver) monitorBank(keys []string, files checkpoint.Files) (*Bank, error) {
	if files.Damage == "" {
		return NewBank(d.mech, keys, nil)
	}
	states, err := files.Load(d.mech.Kind(), len(keys))
	if err != nil {
		return nil, err
	}
	return NewBank(d.mech, keys, states)
}

// match orders readings by keys; it fails when the sensor set differs.
func match(keys []string, readings []sensors.Reading) ([]float64, bool) {
	if len(readings) != len(keys) {
		return nil, false
	}
	out := make([]float64, len(keys))
	for i, rd := range readings {
		if rd.Key != keys[i] {
			return nil, false
		}
		out[i] = rd.Celsius
	}
	return out, true
}
