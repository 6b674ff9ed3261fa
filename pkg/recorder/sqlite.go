package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	_ "modernc.org/sqlite" // SQLite driver
)

const _schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mechanism  TEXT NOT NULL,
	components TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
	run       TEXT    NOT NULL REFERENCES runs(id),
	sample    INTEGER NOT NULL,
	hours     REAL    NOT NULL,
	component TEXT    NOT NULL,
	r         REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_points_run ON points(run, component, sample);
`

// DefaultBatchSize is the number of buffered points that triggers a flush.
const DefaultBatchSize = 10000

// SQLite records curve points into a SQLite database, one row per component
// per point. Buffered points are written in one transaction per flush and
// flushed at process exit through atexit.
type SQLite struct {
	mu     sync.Mutex
	db     *sql.DB
	run    Run
	path   string
	batch  int
	points []Point
	closed bool
}

// NewSQLite opens (or creates) the database at path and registers run. An
// empty path creates reliability_<xid>.sqlite3 in the working directory.
func NewSQLite(path string, run Run, batch int) (*SQLite, error) {
	if path == "" {
		path = "reliability_" + xid.New().String() + ".sqlite3"
	}
	if run.ID == "" {
		run.ID = xid.New().String()
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, _schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, mechanism, components, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Mechanism, strings.Join(run.Components, ","), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}

	s := &SQLite{db: db, run: run, path: path, batch: batch}
	atexit.Register(func() {
		if err := s.Close(); err != nil {
			slog.Error("recorder: flush at exit", "path", path, "err", err)
		}
	})

	fmt.Fprintf(os.Stderr, "Database created for recording: %s (run %s)\n", path, run.ID)
	return s, nil
}

// RunID returns the id points are stored under.
func (s *SQLite) RunID() string { return s.run.ID }

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Record(p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(p.R) != len(s.run.Components) {
		return fmt.Errorf("recorder: point has %d values for %d components", len(p.R), len(s.run.Components))
	}
	p.R = append([]float64(nil), p.R...)
	s.points = append(s.points, p)
	if len(s.points) >= s.batch {
		return s.flushLocked()
	}
	return nil
}

func (s *SQLite) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.flushLocked()
}

// Close flushes buffered points and closes the database. Calling Close
// more than once is a no-op.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.closed = true
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *SQLite) flushLocked() error {
	if len(s.points) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (run, sample, hours, component, r) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range s.points {
		for i, r := range p.R {
			if _, err := stmt.ExecContext(ctx, s.run.ID, p.Sample, p.Hours, s.run.Components[i], r); err != nil {
				return fmt.Errorf("insert point: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.points = s.points[:0]
	return nil
}
