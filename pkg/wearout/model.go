package wearout

import (
	"fmt"
	"sort"
)

// ZeroCelsiusInKelvin is 0 °C expressed in Kelvin.
const ZeroCelsiusInKelvin = 273.15

// BoltzmannConstant in eV/K.
const BoltzmannConstant = 8.6173324e-5

// EMConstants holds the electromigration fitting parameters.
// Units:
//   - A0: material constant (cross section 1um^2)
//   - JCrit: critical current density (A/cm^2)
//   - N: current density exponent, dimensionless
//   - Ea: activation energy (eV)
//   - K: Boltzmann constant (eV/K)
//   - Beta: Weibull shape parameter
type EMConstants struct {
	Name  string
	A0    float64
	JCrit float64
	N     float64
	Ea    float64
	K     float64
	Beta  float64
}

// NBTIConstants holds the NBTI fitting parameters.
// Units:
//   - K: fitting constant, determined experimentally
//   - E0: fitting energy (eV)
//   - B: fitting constant
//   - N: time exponent (between 1/6 and 1/4 depending on the diffusing species)
//   - Ox: effective oxide thickness (nm)
//   - VInit: initial threshold voltage (V)
//   - FailureFraction: threshold shift, as a fraction of VInit, that counts as failure
//   - Boltzmann: Boltzmann constant (eV/K)
type NBTIConstants struct {
	K               float64
	E0              float64
	B               float64
	N               float64
	Ox              float64
	VInit           float64
	FailureFraction float64
	Boltzmann       float64
}

// Names of the EM constant sets.
const (
	EMSetBolchini = "bolchini2014"
	EMSetJEDEC    = "jedec"
)

// _emConstantSets lists the published EM parameter sets. Bolchini et al.
// (2014) is the default; the JEDEC set differs in activation energy and
// current density exponent only.
var _emConstantSets = map[string]EMConstants{
	EMSetBolchini: {
		Name:  EMSetBolchini,
		A0:    30000,
		JCrit: 1.5e6,
		N:     1.1,
		Ea:    0.48,
		K:     BoltzmannConstant,
		Beta:  2,
	},
	EMSetJEDEC: {
		Name:  EMSetJEDEC,
		A0:    30000,
		JCrit: 1.5e6,
		N:     2.0,
		Ea:    0.80,
		K:     BoltzmannConstant,
		Beta:  2,
	},
}

// DefaultEMConstants returns the bolchini2014 parameter set.
func DefaultEMConstants() EMConstants {
	return _emConstantSets[EMSetBolchini]
}

// EMConstantSet returns the named EM parameter set.
func EMConstantSet(name string) (EMConstants, error) {
	c, ok := _emConstantSets[name]
	if !ok {
		return EMConstants{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownConstants, name, EMConstantSetNames())
	}
	return c, nil
}

// EMConstantSetNames returns the known set names in sorted order.
func EMConstantSetNames() []string {
	names := make([]string, 0, len(_emConstantSets))
	for n := range _emConstantSets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultNBTIConstants returns the NBTI parameters from Moghaddasi (2018),
// Chen (2014) and Kleeberger (2013).
func DefaultNBTIConstants() NBTIConstants {
	return NBTIConstants{
		K:               0.98,
		E0:              0.1897,
		B:               0.075,
		N:               0.167,
		Ox:              1.4,
		VInit:           0.35,
		FailureFraction: 0.1,
		Boltzmann:       BoltzmannConstant,
	}
}
