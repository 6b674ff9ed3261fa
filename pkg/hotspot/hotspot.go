// Package hotspot reads and writes the temperature files exchanged with the
// HotSpot and HotSniper thermal simulators.
package hotspot

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ja7ad/reliability/pkg/types"
)

var _corePattern = regexp.MustCompile(`^C\d+`)

// Snapshot is one temperature dump of a HotSpot run: one value per core.
type Snapshot struct {
	Units []string  // C0, C1, ...
	Temps []float64 // °C
}

// ReadSnapshot parses a HotSpot dump. The first line must contain "Unit";
// every following line starting with a core name (C<n>) carries that core's
// temperature. Parsing stops at the first line that is not a core.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() || !strings.Contains(sc.Text(), "Unit") {
		if err := sc.Err(); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{}, ErrMissingHeader
	}

	var s Snapshot
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || !_corePattern.MatchString(fields[0]) {
			break
		}
		if len(fields) < 2 {
			return Snapshot{}, fmt.Errorf("%w: %s has no value", ErrBadValue, fields[0])
		}
		v, err := parseTemp(fields[1])
		if err != nil {
			return Snapshot{}, fmt.Errorf("%s: %w", fields[0], err)
		}
		s.Units = append(s.Units, fields[0])
		s.Temps = append(s.Temps, v)
	}
	if err := sc.Err(); err != nil {
		return Snapshot{}, err
	}
	if len(s.Temps) == 0 {
		return Snapshot{}, ErrNoData
	}
	return s, nil
}

// ReadSnapshotFile opens path and parses it with ReadSnapshot.
func ReadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open temperature file: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// Table is a temperature trace: named columns, one row per sample.
type Table struct {
	Names []string
	Rows  [][]float64
}

// ReadTrace parses a header line of component names followed by rows of
// whitespace separated temperatures. This covers both the HotSniper
// periodic trace and the tab separated steady state file. Blank lines are
// skipped; every row must have one value per name.
func ReadTrace(r io.Reader) (Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Table{}, err
		}
		return Table{}, ErrMissingHeader
	}
	names := strings.Fields(sc.Text())
	if len(names) == 0 {
		return Table{}, ErrMissingHeader
	}
	if _, err := strconv.ParseFloat(names[0], 64); err == nil {
		return Table{}, fmt.Errorf("%w: first line is numeric", ErrMissingHeader)
	}

	t := Table{Names: names}
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(names) {
			return Table{}, fmt.Errorf("%w: line %d has %d values, header has %d", ErrRaggedRow, line, len(fields), len(names))
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := parseTemp(f)
			if err != nil {
				return Table{}, fmt.Errorf("line %d: %w", line, err)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return Table{}, err
	}
	if len(t.Rows) == 0 {
		return Table{}, ErrNoData
	}
	return t, nil
}

// ReadTraceFile opens path and parses it with ReadTrace.
func ReadTraceFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return ReadTrace(f)
}

// ToCelsius returns a copy of t with every value converted from Kelvin.
func (t Table) ToCelsius() Table {
	out := Table{Names: append([]string(nil), t.Names...), Rows: make([][]float64, len(t.Rows))}
	for i, row := range t.Rows {
		c := make([]float64, len(row))
		for j, k := range row {
			c[j] = float64(types.Kelvin(k).Celsius())
		}
		out.Rows[i] = c
	}
	return out
}

// WriteTable writes t tab separated, values with 4 significant digits.
func WriteTable(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(t.Names, "\t") + "\n"); err != nil {
		return err
	}
	parts := make([]string, len(t.Names))
	for _, row := range t.Rows {
		parts = parts[:0]
		for _, v := range row {
			parts = append(parts, strconv.FormatFloat(v, 'g', 4, 64))
		}
		if _, err := bw.WriteString(strings.Join(parts, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func parseTemp(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadValue, s)
	}
	return v, nil
}
