// Package recorder stores sampled reliability curves.
package recorder

import (
	"errors"
)

// ErrClosed is returned by Record on a closed recorder.
var ErrClosed = errors.New("recorder: closed")

// Point is one sample of every component's reliability curve.
type Point struct {
	Sample int64     // sample index, 1-based
	Hours  float64   // simulated time since the start of the run
	R      []float64 // one value per component, in Run.Components order
}

// Recorder buffers curve points and writes them to a backend.
type Recorder interface {
	Record(p Point) error
	Flush() error
	Close() error
}

// Run describes the run a recorder stores.
type Run struct {
	ID         string // generated when empty
	Mechanism  string
	Components []string
}

type multi []Recorder

// Multi fans every call out to rs. Errors are joined.
func Multi(rs ...Recorder) Recorder { return multi(rs) }

func (m multi) Record(p Point) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Record(p))
	}
	return errors.Join(errs...)
}

func (m multi) Flush() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Flush())
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
