package recorder

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewCSV(&buf, []string{"C0", "C1"})
	require.NoError(t, err)

	require.NoError(t, r.Record(Point{Sample: 1, Hours: 8760, R: []float64{0.5, 0.25}}))
	require.NoError(t, r.Record(Point{Sample: 2, Hours: 17520, R: []float64{0.125, 0.0625}}))
	require.Error(t, r.Record(Point{Sample: 3, Hours: 1, R: []float64{1}}))
	require.NoError(t, r.Flush())

	assert.Equal(t, "time,C0,C1\n1,0.5,0.25\n2,0.125,0.0625\n", buf.String())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	require.ErrorIs(t, r.Record(Point{R: []float64{1, 1}}), ErrClosed)
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "curve.csv")
	r, err := CreateCSV(path, []string{"C0"})
	require.NoError(t, err)
	require.NoError(t, r.Record(Point{Sample: 1, Hours: 4380, R: []float64{0.75}}))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time,C0\n0.5,0.75\n", string(data))
}

func TestSQLite_BatchAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.sqlite3")
	run := Run{Mechanism: "em/bolchini2014", Components: []string{"C0", "C1"}}

	s, err := NewSQLite(path, run, 2)
	require.NoError(t, err)
	require.NotEmpty(t, s.RunID())
	assert.Equal(t, path, s.Path())

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Record(Point{Sample: i, Hours: float64(i) * 0.5, R: []float64{1 / float64(i), 0.5 / float64(i)}}))
	}
	require.Error(t, s.Record(Point{Sample: 6, R: []float64{1}}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Record(Point{R: []float64{1, 1}}), ErrClosed)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var mech, comps string
	require.NoError(t, db.QueryRow(`SELECT mechanism, components FROM runs WHERE id = ?`, s.RunID()).Scan(&mech, &comps))
	assert.Equal(t, "em/bolchini2014", mech)
	assert.Equal(t, "C0,C1", comps)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM points WHERE run = ?`, s.RunID()).Scan(&n))
	assert.Equal(t, 10, n, "every buffered point is written, including the partial last batch")

	var r float64
	require.NoError(t, db.QueryRow(
		`SELECT r FROM points WHERE run = ? AND component = 'C1' AND sample = 4`, s.RunID()).Scan(&r))
	assert.Equal(t, 0.125, r)
}

func TestSQLite_TwoRunsShareDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.sqlite3")

	a, err := NewSQLite(path, Run{ID: "a", Mechanism: "em/jedec", Components: []string{"C0"}}, 0)
	require.NoError(t, err)
	require.NoError(t, a.Record(Point{Sample: 1, Hours: 1, R: []float64{0.9}}))
	require.NoError(t, a.Close())

	b, err := NewSQLite(path, Run{ID: "b", Mechanism: "nbti", Components: []string{"C0"}}, 0)
	require.NoError(t, err)
	require.NoError(t, b.Record(Point{Sample: 1, Hours: 1, R: []float64{0.8}}))
	require.NoError(t, b.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n))
	assert.Equal(t, 2, n)

	_, err = NewSQLite(path, Run{ID: "a", Components: []string{"C0"}}, 0)
	require.Error(t, err, "run ids are unique")
}

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) Record(p Point) error { return m.Called(p).Error(0) }
func (m *mockRecorder) Flush() error         { return m.Called().Error(0) }
func (m *mockRecorder) Close() error         { return m.Called().Error(0) }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	p := Point{Sample: 1, Hours: 1, R: []float64{0.9}}

	a, b := new(mockRecorder), new(mockRecorder)
	a.On("Record", p).Return(nil)
	b.On("Record", p).Return(boom)
	a.On("Flush").Return(nil)
	b.On("Flush").Return(nil)
	a.On("Close").Return(nil)
	b.On("Close").Return(nil)

	m := Multi(a, b)
	require.ErrorIs(t, m.Record(p), boom)
	require.NoError(t, m.Flush())
	require.NoError(t, m.Close())

	a.AssertExpectations(t)
	b.AssertExpectations(t)
}
