package checkpoint

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/reliability/pkg/reliability"
	"github.com/ja7ad/reliability/pkg/wearout"
)

func testFiles(t *testing.T) Files {
	t.Helper()
	dir := t.TempDir()
	return Files{
		Damage:   filepath.Join(dir, "sums"),
		Recovery: filepath.Join(dir, "recovery"),
		RValues:  filepath.Join(dir, "r_values"),
	}
}

func bank(t *testing.T, mech wearout.Mechanism, temps []float64, samples int) []*reliability.Model {
	t.Helper()
	models := make([]*reliability.Model, len(temps))
	for i, temp := range temps {
		m, err := reliability.New(mech)
		require.NoError(t, err)
		for j := 0; j < samples; j++ {
			require.NoError(t, m.Update(0.0277, wearout.Stress{Temperature: temp, Voltage: 1, Factor: 1}))
		}
		models[i] = m
	}
	return models
}

func TestLoad_FreshRun(t *testing.T) {
	f := testFiles(t)

	states, err := f.Load(wearout.Electromigration, 4)
	require.NoError(t, err)
	require.Len(t, states, 4)
	for _, s := range states {
		require.NotNil(t, s.Damage)
		assert.Equal(t, 0, s.Damage.Sign())
		assert.Zero(t, s.Recovery)
	}
}

func TestLoad_RValuesWithoutDamage(t *testing.T) {
	f := testFiles(t)
	require.NoError(t, os.WriteFile(f.RValues, []byte("0.9 0.8\n"), 0o644))

	_, err := f.Load(wearout.Electromigration, 2)
	require.ErrorIs(t, err, ErrInconsistent)
}

func TestLoad_CountMismatch(t *testing.T) {
	f := testFiles(t)
	require.NoError(t, os.WriteFile(f.Damage, []byte("0.1 0.2 0.3\n"), 0o644))

	_, err := f.Load(wearout.Electromigration, 4)
	require.ErrorIs(t, err, ErrCountMismatch)

	states, err := f.Load(wearout.Electromigration, 3)
	require.NoError(t, err)
	require.Len(t, states, 3)
}

func TestLoad_Malformed(t *testing.T) {
	for _, line := range []string{"0.1 abc\n", "0.1 -0.2\n", "0.1 +Inf\n"} {
		f := testFiles(t)
		require.NoError(t, os.WriteFile(f.Damage, []byte(line), 0o644))

		_, err := f.Load(wearout.Electromigration, 2)
		require.ErrorIs(t, err, ErrMalformed, "line %q", line)
	}
}

func TestLoad_NBTIRecoveryPairing(t *testing.T) {
	t.Run("damage_without_recovery", func(t *testing.T) {
		f := testFiles(t)
		require.NoError(t, os.WriteFile(f.Damage, []byte("0.1\n"), 0o644))
		_, err := f.Load(wearout.NBTI, 1)
		require.ErrorIs(t, err, ErrInconsistent)
	})

	t.Run("recovery_without_damage", func(t *testing.T) {
		f := testFiles(t)
		require.NoError(t, os.WriteFile(f.Recovery, []byte("0.001\n"), 0o644))
		_, err := f.Load(wearout.NBTI, 1)
		require.ErrorIs(t, err, ErrInconsistent)
	})

	t.Run("recovery_count", func(t *testing.T) {
		f := testFiles(t)
		require.NoError(t, os.WriteFile(f.Damage, []byte("0.1 0.2\n"), 0o644))
		require.NoError(t, os.WriteFile(f.Recovery, []byte("0.001\n"), 0o644))
		_, err := f.Load(wearout.NBTI, 2)
		require.ErrorIs(t, err, ErrCountMismatch)
	})

	t.Run("em_ignores_recovery", func(t *testing.T) {
		f := testFiles(t)
		require.NoError(t, os.WriteFile(f.Damage, []byte("0.1\n"), 0o644))
		_, err := f.Load(wearout.Electromigration, 1)
		require.NoError(t, err)
	})
}

func TestSaveLoad_RoundTripEM(t *testing.T) {
	f := testFiles(t)
	mech := wearout.NewElectromigration(wearout.DefaultEMConstants())
	models := bank(t, mech, []float64{60, 75.5, 90}, 2500)

	require.NoError(t, f.Save(models))

	states, err := f.Load(wearout.Electromigration, len(models))
	require.NoError(t, err)

	for i, st := range states {
		want := models[i].State()
		assert.Zero(t, want.Damage.Cmp(st.Damage), "component %d damage differs after reload", i)

		restored, err := reliability.New(mech, reliability.WithState(st))
		require.NoError(t, err)
		assert.Equal(t, models[i].R(), restored.R())
	}

	rs, err := f.LoadR()
	require.NoError(t, err)
	require.Len(t, rs, len(models))
	for i, m := range models {
		assert.Equal(t, m.R(), rs[i])
	}

	// Resuming and continuing matches an uninterrupted run.
	resumed, err := reliability.New(mech, reliability.WithState(states[1]))
	require.NoError(t, err)
	cont := models[1].Clone()
	s := wearout.Stress{Temperature: 75.5}
	for j := 0; j < 100; j++ {
		require.NoError(t, resumed.Update(0.0277, s))
		require.NoError(t, cont.Update(0.0277, s))
	}
	assert.Equal(t, cont.R(), resumed.R())
}

func TestSaveLoad_RoundTripNBTI(t *testing.T) {
	f := testFiles(t)
	mech := wearout.NewNBTI(wearout.DefaultNBTIConstants())
	models := bank(t, mech, []float64{45, 70}, 500)

	require.NoError(t, f.Save(models))

	states, err := f.Load(wearout.NBTI, len(models))
	require.NoError(t, err)
	for i, st := range states {
		assert.Equal(t, models[i].RecoveryTerm(), st.Recovery)

		restored, err := reliability.New(mech, reliability.WithState(st))
		require.NoError(t, err)
		assert.InEpsilon(t, models[i].R(), restored.R(), 1e-12)
		assert.InEpsilon(t, models[i].Damage(), restored.Damage(), 1e-12)
	}
}

func TestSave_NBTIRequiresRecoveryPath(t *testing.T) {
	f := testFiles(t)
	f.Recovery = ""
	models := bank(t, wearout.NewNBTI(wearout.DefaultNBTIConstants()), []float64{50}, 1)

	require.ErrorIs(t, f.Save(models), ErrInconsistent)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	f := testFiles(t)
	models := bank(t, wearout.NewElectromigration(wearout.DefaultEMConstants()), []float64{50, 60}, 3)
	require.NoError(t, f.Save(models))

	entries, err := os.ReadDir(filepath.Dir(f.Damage))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}

func TestCodec_SingleLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloats(&buf, []float64{0.1, 1, 2.5e-300}))
	assert.Equal(t, "0.1 1 2.5e-300\n", buf.String())

	got, err := ReadFloats(strings.NewReader("  0.1\t1   2.5e-300 \nignored 9\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 1, 2.5e-300}, got)

	empty, err := ReadFloats(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCodec_BigFloatKeepsPrecision(t *testing.T) {
	third := new(big.Float).SetPrec(reliability.Precision).SetInt64(1)
	third.Quo(third, new(big.Float).SetPrec(reliability.Precision).SetInt64(3))

	var buf bytes.Buffer
	require.NoError(t, WriteBigFloats(&buf, []*big.Float{third}))
	// More digits than float64 can carry.
	assert.Greater(t, len(strings.TrimSpace(buf.String())), 20)

	got, err := ReadBigFloats(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, third.Cmp(got[0]))
}

func TestSave_FailedWriteKeepsPreviousCheckpoint(t *testing.T) {
	f := testFiles(t)
	mech := wearout.NewNBTI(wearout.DefaultNBTIConstants())
	models := bank(t, mech, []float64{45, 70}, 10)
	require.NoError(t, f.Save(models))

	recBefore, err := os.ReadFile(f.Recovery)
	require.NoError(t, err)
	rsBefore, err := os.ReadFile(f.RValues)
	require.NoError(t, err)

	for _, m := range models {
		require.NoError(t, m.Update(100, wearout.Stress{Temperature: 90, Voltage: 1, Factor: 1}))
	}
	bad := f
	bad.Damage = filepath.Join(filepath.Dir(f.Damage), "missing", "sums")
	require.Error(t, bad.Save(models))

	recAfter, err := os.ReadFile(f.Recovery)
	require.NoError(t, err)
	assert.Equal(t, string(recBefore), string(recAfter), "recovery must not move ahead of damage")
	rsAfter, err := os.ReadFile(f.RValues)
	require.NoError(t, err)
	assert.Equal(t, string(rsBefore), string(rsAfter))

	entries, err := os.ReadDir(filepath.Dir(f.Damage))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}
