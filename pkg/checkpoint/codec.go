package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ja7ad/reliability/pkg/reliability"
)

// readLine returns the whitespace separated fields of the first line of r.
// An empty input yields no fields.
func readLine(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, sc.Err()
	}
	return strings.Fields(sc.Text()), nil
}

// ReadFloats reads one line of non-negative decimal values.
func ReadFloats(r io.Reader) ([]float64, error) {
	fields, err := readLine(r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: field %d %q", ErrMalformed, i, f)
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadBigFloats reads one line of non-negative decimal values at
// reliability.Precision.
func ReadBigFloats(r io.Reader) ([]*big.Float, error) {
	fields, err := readLine(r)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Float, 0, len(fields))
	for i, f := range fields {
		v, _, err := big.ParseFloat(f, 10, reliability.Precision, big.ToNearestEven)
		if err != nil || v.Sign() < 0 || v.IsInf() {
			return nil, fmt.Errorf("%w: field %d %q", ErrMalformed, i, f)
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteFloats writes vs as one space separated line using the shortest
// representation that round-trips through float64.
func WriteFloats(w io.Writer, vs []float64) error {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return writeJoined(w, parts)
}

// WriteBigFloats writes vs as one space separated line, each value in the
// shortest decimal form that round-trips at its own precision.
func WriteBigFloats(w io.Writer, vs []*big.Float) error {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Text('g', -1)
	}
	return writeJoined(w, parts)
}

func writeJoined(w io.Writer, parts []string) error {
	_, err := io.WriteString(w, strings.Join(parts, " ")+"\n")
	return err
}
