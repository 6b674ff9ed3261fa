// Package driver feeds temperature sources (HotSpot snapshots, traces, host
// sensors) into banks of reliability models.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ja7ad/reliability/pkg/checkpoint"
	"github.com/ja7ad/reliability/pkg/hotspot"
	"github.com/ja7ad/reliability/pkg/metrics"
	"github.com/ja7ad/reliability/pkg/recorder"
	"github.com/ja7ad/reliability/pkg/types"
	"github.com/ja7ad/reliability/pkg/wearout"
)

// StressFunc maps one temperature reading (°C) to stress conditions.
type StressFunc func(temp float64) wearout.Stress

// DefaultStress applies temp at 1 V with a stress factor of 1.
func DefaultStress(temp float64) wearout.Stress {
	return wearout.Stress{Temperature: temp, Voltage: 1, Factor: 1}
}

// Driver feeds temperature samples from a source into a Bank.
type Driver struct {
	mech    wearout.Mechanism
	stress  StressFunc
	metrics *metrics.Metrics
	rec     recorder.Recorder
	onStep  func(sample int64, b *Bank)
}

type Option func(*Driver)

// WithStress sets how readings become stress conditions.
func WithStress(f StressFunc) Option { return func(d *Driver) { d.stress = f } }

// WithMetrics exports component state after updates.
func WithMetrics(m *metrics.Metrics) Option { return func(d *Driver) { d.metrics = m } }

// WithRecorder stores curve points.
func WithRecorder(r recorder.Recorder) Option { return func(d *Driver) { d.rec = r } }

// WithObserver calls f after every committed sample.
func WithObserver(f func(sample int64, b *Bank)) Option { return func(d *Driver) { d.onStep = f } }

func New(mech wearout.Mechanism, opts ...Option) *Driver {
	d := &Driver{mech: mech, stress: DefaultStress}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Params bounds a run.
type Params struct {
	DeltaMS     float64 // sample period in milliseconds
	RLimit      float64 // stop once any R <= RLimit
	ReportEvery int     // record a curve point every N samples, 0 disables
	MaxSamples  int64   // 0 means unbounded
}

func (p Params) validate() error {
	if !(p.DeltaMS > 0) || math.IsInf(p.DeltaMS, 0) {
		return fmt.Errorf("%w: sample period %g ms", ErrBadParams, p.DeltaMS)
	}
	if !(p.RLimit > 0 && p.RLimit < 1) {
		return fmt.Errorf("%w: r limit %g is out of range (0, 1)", ErrBadParams, p.RLimit)
	}
	if p.ReportEvery < 0 || p.MaxSamples < 0 {
		return fmt.Errorf("%w: negative report interval or sample bound", ErrBadParams)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Samples int64
	Hours   types.Hours
	Reached bool // some component reached the R limit
	Weakest string
	Names   []string
	R       []float64
	Area    []types.Hours // area under each R(t) curve
}

func (d *Driver) stresses(temps []float64) []wearout.Stress {
	out := make([]wearout.Stress, len(temps))
	for i, t := range temps {
		out[i] = d.stress(t)
	}
	return out
}

func (d *Driver) observe(b *Bank) {
	if d.metrics == nil {
		return
	}
	for i, m := range b.Models() {
		d.metrics.Observe(b.names[i], m)
	}
}

func (d *Driver) record(sample int64, hours float64, b *Bank) error {
	if d.rec == nil {
		return nil
	}
	return d.rec.Record(recorder.Point{Sample: sample, Hours: hours, R: b.R()})
}

func (d *Driver) update(b *Bank, dt float64, temps []float64) error {
	if err := b.UpdateAll(dt, d.stresses(temps)); err != nil {
		d.metrics.ObserveError(err)
		return err
	}
	return nil
}

func result(b *Bank, samples int64, hours float64, limit float64) Result {
	res := Result{
		Samples: samples,
		Hours:   types.Hours(hours),
		Names:   b.Names(),
		R:       b.R(),
		Area:    make([]types.Hours, b.Len()),
	}
	for i, m := range b.Models() {
		res.Area[i] = types.Hours(m.Area())
	}
	if lo, at := b.MinR(); at >= 0 {
		res.Weakest = b.names[at]
		res.Reached = lo <= limit
	}
	return res
}

// Step performs one external-simulator step: read the HotSpot snapshot, load
// the checkpoint, advance every core by deltaMS and save the checkpoint and
// R values. Nothing is written when any core fails to update.
func (d *Driver) Step(deltaMS float64, snapshot string, files checkpoint.Files) (*Bank, error) {
	snap, err := hotspot.ReadSnapshotFile(snapshot)
	if err != nil {
		return nil, err
	}
	b, err := d.load(snap, files)
	if err != nil {
		return nil, err
	}
	if err := d.update(b, float64(types.FromMillis(deltaMS)), snap.Temps); err != nil {
		return nil, err
	}
	if err := files.Save(b.Models()); err != nil {
		return nil, err
	}
	d.observe(b)
	return b, nil
}

// Replay feeds the rows of trace, one per DeltaMS, repeating the trace until
// some component's R reaches RLimit, MaxSamples is hit, or ctx is done.
// A single-row trace with a long period is a constant-temperature sweep.
func (d *Driver) Replay(ctx context.Context, trace hotspot.Table, p Params) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	if len(trace.Rows) == 0 || len(trace.Names) == 0 {
		return Result{}, ErrEmptyTrace
	}
	b, err := NewBank(d.mech, trace.Names, nil)
	if err != nil {
		return Result{}, err
	}

	dt := float64(types.FromMillis(p.DeltaMS))
	var (
		n        int64
		hours    float64
		recorded int64
	)
	finish := func() (Result, error) {
		if recorded != n && n > 0 {
			if err := d.record(n, hours, b); err != nil {
				return Result{}, err
			}
		}
		d.observe(b)
		return result(b, n, hours, p.RLimit), nil
	}

	for {
		for _, row := range trace.Rows {
			if n&0xfff == 0 {
				if err := ctx.Err(); err != nil {
					slog.Info("replay interrupted", "samples", n)
					return finish()
				}
			}
			if err := d.update(b, dt, row); err != nil {
				return Result{}, fmt.Errorf("sample %d: %w", n+1, err)
			}
			n++
			hours = float64(n) * dt

			if p.ReportEvery > 0 && n%int64(p.ReportEvery) == 0 {
				if err := d.record(n, hours, b); err != nil {
					return Result{}, err
				}
				recorded = n
				d.observe(b)
				lo, _ := b.MinR()
				slog.Debug("replay progress", "samples", n, "hours", hours, "min_r", lo)
			}
			if d.onStep != nil {
				d.onStep(n, b)
			}

			if lo, _ := b.MinR(); lo <= p.RLimit {
				return finish()
			}
			if p.MaxSamples > 0 && n >= p.MaxSamples {
				return finish()
			}
		}
	}
}
