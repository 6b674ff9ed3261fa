package recorder

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/ja7ad/reliability/pkg/system/util"
	"github.com/ja7ad/reliability/pkg/types"
)

// CSV writes one row per point: time in years, then R per component.
//
//	time,C0,C1
//	0.3170979198,0.9993,0.9991
type CSV struct {
	mu     sync.Mutex
	w      *csv.Writer
	c      io.Closer
	n      int
	closed bool
}

// NewCSV writes the header for components to w. If w is an io.Closer it is
// closed by Close.
func NewCSV(w io.Writer, components []string) (*CSV, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, components...)); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	c, _ := w.(io.Closer)
	return &CSV{w: cw, c: c, n: len(components)}, nil
}

// CreateCSV creates path (and its directory) and returns a CSV recorder on it
// that is flushed and closed at process exit.
func CreateCSV(path string, components []string) (*CSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewCSV(f, components)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	atexit.Register(func() {
		if err := r.Close(); err != nil {
			slog.Error("recorder: close csv at exit", "path", path, "err", err)
		}
	})
	return r, nil
}

func (r *CSV) Record(p Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if len(p.R) != r.n {
		return fmt.Errorf("recorder: point has %d values for %d components", len(p.R), r.n)
	}
	row := make([]string, 0, r.n+1)
	row = append(row, util.FmtFloat(types.Hours(p.Hours).Years()))
	for _, v := range p.R {
		row = append(row, util.FmtFloat(v))
	}
	return r.w.Write(row)
}

func (r *CSV) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying writer. Calling Close more than
// once is a no-op.
func (r *CSV) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.w.Flush()
	err := r.w.Error()
	if r.c != nil {
		if cerr := r.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
