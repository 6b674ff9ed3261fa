package driver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ja7ad/reliability/pkg/checkpoint"
	"github.com/ja7ad/reliability/pkg/hotspot"
	"github.com/ja7ad/reliability/pkg/types"
)

// DefaultSettle is how long Follow waits for a burst of writes to end
// before reading the snapshot.
const DefaultSettle = 50 * time.Millisecond

// Follow watches the HotSpot snapshot at path. Every settled write is one
// sample of p.DeltaMS; the checkpoint in files is loaded before the first
// sample and saved after every sample. It runs until some component's R
// reaches p.RLimit, p.MaxSamples is hit, or ctx is done.
//
// A snapshot that fails to parse (e.g. read mid-write) is logged and skipped.
func (d *Driver) Follow(ctx context.Context, path string, files checkpoint.Files, p Params, settle time.Duration) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Result{}, err
	}
	defer watcher.Close()

	// Watch the directory so atomic saves (write + rename) are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return Result{}, err
	}
	slog.Info("follow: watching", "path", path)

	var (
		b     *Bank
		n     int64
		hours float64
		dt    = float64(types.FromMillis(p.DeltaMS))
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	done := func() Result {
		if b == nil {
			return Result{}
		}
		return result(b, n, hours, p.RLimit)
	}

	for {
		select {
		case <-ctx.Done():
			return done(), nil

		case event, ok := <-watcher.Events:
			if !ok {
				return done(), nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			snap, err := hotspot.ReadSnapshotFile(path)
			if err != nil {
				slog.Warn("follow: skipping unreadable snapshot", "path", path, "err", err)
				continue
			}
			if b == nil {
				if b, err = d.load(snap, files); err != nil {
					return Result{}, err
				}
			}
			if err := d.update(b, dt, snap.Temps); err != nil {
				return done(), fmt.Errorf("sample %d: %w", n+1, err)
			}
			if err := files.Save(b.Models()); err != nil {
				return done(), err
			}
			n++
			hours += dt
			d.observe(b)
			if p.ReportEvery > 0 && n%int64(p.ReportEvery) == 0 {
				if err := d.record(n, hours, b); err != nil {
					return done(), err
				}
			}
			if d.onStep != nil {
				d.onStep(n, b)
			}

			lo, at := b.MinR()
			slog.Debug("follow: sample", "samples", n, "min_r", lo, "component", b.names[at])
			if lo <= p.RLimit || (p.MaxSamples > 0 && n >= p.MaxSamples) {
				return done(), nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return done(), nil
			}
			slog.Error("follow: watcher error", "err", err)
		}
	}
}

func (d *Driver) load(snap hotspot.Snapshot, files checkpoint.Files) (*Bank, error) {
	states, err := files.Load(d.mech.Kind(), len(snap.Temps))
	if err != nil {
		return nil, err
	}
	return NewBank(d.mech, snap.Units, states)
}
