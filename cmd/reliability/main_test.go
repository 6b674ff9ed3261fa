package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/reliability/pkg/checkpoint"
	"github.com/ja7ad/reliability/pkg/config"
	"github.com/ja7ad/reliability/pkg/metrics"
	"github.com/ja7ad/reliability/pkg/reliability"
	"github.com/ja7ad/reliability/pkg/wearout"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "reliability version "+version))

	out, err = execute(t, "--json", "version")
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, version, v["version"])
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "trace.k", "C0\tC1\n353.15\t300.12\n")

	out, err := execute(t, "convert", in)
	require.NoError(t, err)
	assert.Equal(t, "C0\tC1\n80\t26.97\n", out)

	dst := filepath.Join(dir, "trace.c")
	_, err = execute(t, "convert", in, dst)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "C0\tC1\n80\t26.97\n", string(got))

	_, err = execute(t, "convert", filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestStep(t *testing.T) {
	dir := t.TempDir()
	snap := writeFile(t, dir, "hotspot.txt", "Unit\tSteady(Kelvin)\nC0\t80\nC1\t60\niL2\t50\n")
	sums := filepath.Join(dir, "sums.txt")
	rvalues := filepath.Join(dir, "rvalues.txt")

	out, err := execute(t, "step", "-q", "100000000", snap, sums, rvalues)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = execute(t, "--json", "step", "100000000", snap, sums, rvalues)
	require.NoError(t, err)
	var cs []metrics.Component
	require.NoError(t, json.Unmarshal([]byte(out), &cs))
	require.Len(t, cs, 2)
	assert.Equal(t, "C0", cs[0].Name)
	assert.Equal(t, "em/bolchini2014", cs[0].Mechanism)
	assert.Less(t, cs[0].R, cs[1].R, "the hotter core wears faster")

	rs, err := checkpoint.Files{RValues: rvalues}.LoadR()
	require.NoError(t, err)
	assert.Equal(t, []float64{cs[0].R, cs[1].R}, rs)

	// Two steps of 100000 s equal one model updated twice.
	m, err := reliability.New(wearout.NewElectromigration(wearout.DefaultEMConstants()))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, m.Update(100000000.0/3600000, wearout.Stress{Temperature: 80, Voltage: 1, Factor: 1}))
	}
	assert.InEpsilon(t, m.R(), cs[0].R, 1e-12)

	_, err = execute(t, "step", "abc", snap, sums, rvalues)
	require.Error(t, err)
	_, err = execute(t, "step", "1000", snap)
	require.Error(t, err)
}

func TestStep_NBTINeedsRecoveryFile(t *testing.T) {
	dir := t.TempDir()
	snap := writeFile(t, dir, "hotspot.txt", "Unit\tSteady(Kelvin)\nC0\t80\n")
	sums := filepath.Join(dir, "sums.txt")
	rvalues := filepath.Join(dir, "rvalues.txt")

	_, err := execute(t, "--mechanism", "nbti", "step", "-q", "1000", snap, sums, rvalues)
	require.ErrorIs(t, err, checkpoint.ErrInconsistent)

	recovery := filepath.Join(dir, "recovery.txt")
	_, err = execute(t, "--mechanism", "nbti", "step", "-q", "--recovery", recovery, "1000", snap, sums, rvalues)
	require.NoError(t, err)
	assert.FileExists(t, recovery)

	_, err = execute(t, "--mechanism", "nbti", "--stress", "0", "step", "-q", "--recovery", recovery, "1000", snap, sums, rvalues)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func runSummary(t *testing.T, args ...string) summary {
	t.Helper()
	out, err := execute(t, append([]string{"--json", "run"}, args...)...)
	require.NoError(t, err)
	var s summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	return s
}

func TestRun_Sweep(t *testing.T) {
	s := runSummary(t, "--temperature", "80", "--components", "2", "--delta-ms", "8.64e9")
	assert.True(t, s.Reached)
	assert.Equal(t, "em/bolchini2014", s.Mechanism)
	assert.Equal(t, 0.01, s.RLimit)
	require.Len(t, s.Components, 2)
	assert.Equal(t, "C0", s.Weakest)
	assert.LessOrEqual(t, s.Components[0].R, 0.01)
	assert.Equal(t, s.Components[0].R, s.Components[1].R)
	assert.InDelta(t, s.Hours/(24*365), s.Years, 1e-12)
	t.Logf("R <= 0.01 at 80 °C after %.2f years", s.Years)
}

func TestRun_ConfigAndFlags(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", `
model:
  em_constants: jedec
run:
  delta_ms: 8.64e9
  r_limit: 0.5
`)
	s := runSummary(t, "--temperature", "80", "--delta-ms", "8.64e9")
	assert.Equal(t, "em/bolchini2014", s.Mechanism)

	out, err := execute(t, "--json", "--config", cfg, "run", "--temperature", "80")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "em/jedec", s.Mechanism)
	assert.Equal(t, 0.5, s.RLimit)
	assert.True(t, s.Reached)

	out, err = execute(t, "--json", "--config", cfg, "--em-constants", "bolchini2014", "run", "--temperature", "80", "--r-limit", "0.9")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "em/bolchini2014", s.Mechanism)
	assert.Equal(t, 0.9, s.RLimit)

	_, err = execute(t, "--em-constants", "nope", "run", "--temperature", "80")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun_TraceOutputs(t *testing.T) {
	dir := t.TempDir()
	trace := writeFile(t, dir, "trace.txt", "Core0\tCore1\n353.15\t333.15\n343.15\t323.15\n")
	csvPath := filepath.Join(dir, "curve.csv")
	dbPath := filepath.Join(dir, "curve.db")
	htmlPath := filepath.Join(dir, "report.html")

	s := runSummary(t, trace, "--kelvin", "--delta-ms", "1e8", "--max-samples", "10", "--report-every", "2",
		"--csv", csvPath, "--db", dbPath, "--html", htmlPath)
	assert.Equal(t, int64(10), s.Samples)
	assert.False(t, s.Reached)
	require.Len(t, s.Components, 2)
	assert.Equal(t, "Core0", s.Weakest)

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "time,Core0,Core1", lines[0])
	assert.Len(t, lines, 6)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM points`).Scan(&n))
	assert.Equal(t, 10, n)

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Reliability Report")
	assert.Contains(t, string(html), "Core1")
}

func TestRun_ArgErrors(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)

	dir := t.TempDir()
	trace := writeFile(t, dir, "trace.txt", "C0\n80\n")
	_, err = execute(t, "run", trace, "--temperature", "80")
	require.Error(t, err)

	ragged := writeFile(t, dir, "ragged.txt", "C0 C1\n80\n")
	_, err = execute(t, "run", ragged)
	require.Error(t, err)
}

func TestCurve(t *testing.T) {
	out, err := execute(t, "curve", "--temperature", "80", "--step", "8760")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines[0], "YEARS")
	assert.Greater(t, len(lines), 2)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "curve.csv")
	_, err = execute(t, "curve", "--temperature", "80", "--step", "8760", "--csv", csvPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	csvLines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "time,em/bolchini2014", csvLines[0])
	assert.Len(t, csvLines, len(lines))

	_, err = execute(t, "curve", "--step", "0")
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	m := metrics.New()
	mdl, err := reliability.New(wearout.NewElectromigration(wearout.DefaultEMConstants()))
	require.NoError(t, err)
	require.NoError(t, mdl.Update(1000, wearout.Stress{Temperature: 70}))
	m.Observe("C0", mdl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, err := m.Serve(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	out, err := execute(t, "--json", "status", "http://"+addr.String()+"/metrics")
	require.NoError(t, err)
	var cs []metrics.Component
	require.NoError(t, json.Unmarshal([]byte(out), &cs))
	require.Len(t, cs, 1)
	assert.Equal(t, "C0", cs[0].Name)
	assert.Equal(t, mdl.R(), cs[0].R)

	_, err = execute(t, "status")
	require.Error(t, err)
}

func TestAddressHelpers(t *testing.T) {
	assert.Equal(t, "localhost:9464", hostPort(":9464"))
	assert.Equal(t, "10.0.0.1:9464", hostPort("10.0.0.1:9464"))
	assert.Equal(t, "http://localhost:9464/api/components",
		componentsURL(&net.TCPAddr{IP: net.IPv6zero, Port: 9464}))
}
