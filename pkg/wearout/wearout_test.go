package wearout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlpha_MatchesBlacksEquation(t *testing.T) {
	c := DefaultEMConstants()

	for _, temp := range []float64{25, 50, 80, 110} {
		tk := temp + 273.15
		want := 30000 * math.Pow(1.5e6, -1.1) * math.Exp(0.48/(8.6173324e-5*tk)) / math.Gamma(1.5)

		got, err := c.Alpha(temp)
		require.NoError(t, err)
		assert.InDelta(t, want, got, want*1e-12, "T=%g", temp)
		t.Logf("alpha(%.0f °C) = %.3f h", temp, got)
	}
}

func TestAlpha_GammaTerm(t *testing.T) {
	// Γ(1 + 1/2) = sqrt(pi)/2 ≈ 0.88623
	assert.InDelta(t, 0.88623, math.Gamma(1+1/DefaultEMConstants().Beta), 1e-5)
}

func TestAlpha_DecreasesWithTemperature(t *testing.T) {
	c := DefaultEMConstants()
	prev := math.Inf(1)
	for temp := -50.0; temp <= 150; temp += 5 {
		a, err := c.Alpha(temp)
		require.NoError(t, err)
		require.Greater(t, a, 0.0)
		assert.Less(t, a, prev, "alpha must shrink as temperature rises (T=%g)", temp)
		prev = a
	}
}

func TestAlpha_DomainErrors(t *testing.T) {
	c := DefaultEMConstants()
	cases := []struct {
		name string
		temp float64
	}{
		{"absolute_zero", -273.15},
		{"below_absolute_zero", -300},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"exp_overflow", -273.1499}, // Ea/(kT) far beyond the float64 exp range
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Alpha(tc.temp)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestEMConstantSet(t *testing.T) {
	jedec, err := EMConstantSet(EMSetJEDEC)
	require.NoError(t, err)
	assert.Equal(t, 0.80, jedec.Ea)
	assert.Equal(t, 2.0, jedec.N)

	bol, err := EMConstantSet(EMSetBolchini)
	require.NoError(t, err)
	assert.Equal(t, DefaultEMConstants(), bol)

	_, err = EMConstantSet("nope")
	require.ErrorIs(t, err, ErrUnknownConstants)

	assert.Equal(t, []string{EMSetBolchini, EMSetJEDEC}, EMConstantSetNames())
}

func TestADF(t *testing.T) {
	c := DefaultNBTIConstants()

	got, err := c.ADF(80, 1.0, 1.0)
	require.NoError(t, err)

	kt := 8.6173324e-5 * 353.15
	want := 0.98 * math.Exp(-0.1897/kt) * math.Exp(0.075/(1.4*kt))
	assert.InDelta(t, want, got, want*1e-12)

	half, err := c.ADF(80, 1.0, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, want*math.Pow(0.5, 0.167), half, want*1e-12)
}

func TestADF_RejectsNonPositiveStress(t *testing.T) {
	c := DefaultNBTIConstants()
	for _, s := range []float64{0, -1, math.NaN()} {
		_, err := c.ADF(25, 1.0, s)
		require.ErrorIs(t, err, ErrInvalidInput, "stress=%g", s)
	}
	_, err := c.ADF(-280, 1.0, 1.0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestShift(t *testing.T) {
	c := DefaultNBTIConstants()
	adf := 0.01

	// From a fresh device, the shift is adf * t^N.
	v := c.Shift(0, adf, 100)
	assert.InDelta(t, adf*math.Pow(100, c.N), v, 1e-15)

	// Two steps at the same adf equal one step of the combined length.
	v2 := c.Shift(c.Shift(0, adf, 40), adf, 60)
	assert.InDelta(t, v, v2, v*1e-12)

	// Zero dt leaves the shift untouched.
	assert.Equal(t, v, c.Shift(v, adf, 0))
}

func TestShift_NeverDecreases(t *testing.T) {
	c := DefaultNBTIConstants()
	v := c.Shift(0, 0.01, 1000)
	for _, adf := range []float64{1e-4, 0.003, 0.01, 0.2, 0.9} {
		for _, dt := range []float64{1e-16, 1e-14, 3e-12, 1e-9} {
			next := c.Shift(v, adf, dt)
			require.GreaterOrEqual(t, next, v, "adf %g dt %g", adf, dt)
			v = next
		}
	}
}

func TestMechanism_Rate(t *testing.T) {
	em := NewElectromigration(DefaultEMConstants())
	assert.Equal(t, Electromigration, em.Kind())
	assert.Equal(t, "em/bolchini2014", em.String())

	a, err := em.Rate(Stress{Temperature: 80})
	require.NoError(t, err)
	want, _ := DefaultEMConstants().Alpha(80)
	assert.Equal(t, want, a)

	nb := NewNBTI(DefaultNBTIConstants())
	_, err = nb.Rate(Stress{Temperature: 25, Voltage: 1, Factor: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	// A copy is independent of the original.
	cp := em
	cp.em.Ea = 1
	assert.Equal(t, 0.48, em.EM().Ea)

	_, err = Mechanism{}.Rate(Stress{})
	require.ErrorIs(t, err, ErrUnknownMechanism)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("EM")
	require.NoError(t, err)
	assert.Equal(t, Electromigration, k)

	k, err = ParseKind("nbti")
	require.NoError(t, err)
	assert.Equal(t, NBTI, k)

	_, err = ParseKind("tddb")
	require.ErrorIs(t, err, ErrUnknownMechanism)
}
