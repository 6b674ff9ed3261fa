package wearout

import (
	"fmt"
	"math"
	"strings"
)

// Stress is one set of instantaneous stress conditions.
type Stress struct {
	Temperature float64 // °C
	Voltage     float64 // V, NBTI only
	Factor      float64 // NBTI stress (duty) factor, must be > 0
}

// Kind tags the wearout mechanism of a Mechanism.
type Kind int

const (
	Unknown Kind = iota
	Electromigration
	NBTI
)

func (k Kind) String() string {
	switch k {
	case Electromigration:
		return "em"
	case NBTI:
		return "nbti"
	default:
		return "unknown"
	}
}

// ParseKind maps "em" / "electromigration" / "nbti" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "em", "electromigration":
		return Electromigration, nil
	case "nbti":
		return NBTI, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownMechanism, s)
	}
}

// Mechanism is one of the two supported wearout mechanisms together with its
// physical constants. It is a plain value: copying it copies the constants.
type Mechanism struct {
	kind Kind
	em   EMConstants
	nbti NBTIConstants
}

// NewElectromigration returns an EM mechanism using c.
func NewElectromigration(c EMConstants) Mechanism {
	return Mechanism{kind: Electromigration, em: c}
}

// NewNBTI returns an NBTI mechanism using c.
func NewNBTI(c NBTIConstants) Mechanism {
	return Mechanism{kind: NBTI, nbti: c}
}

// Kind returns the mechanism tag.
func (m Mechanism) Kind() Kind { return m.kind }

// EM returns the EM constants. Only meaningful when Kind is Electromigration.
func (m Mechanism) EM() EMConstants { return m.em }

// NBTI returns the NBTI constants. Only meaningful when Kind is NBTI.
func (m Mechanism) NBTI() NBTIConstants { return m.nbti }

func (m Mechanism) String() string {
	if m.kind == Electromigration {
		return m.kind.String() + "/" + m.em.Name
	}
	return m.kind.String()
}

// Rate evaluates the mechanism's wearout function: alpha(T) in hours for EM,
// the activity factor adf(T, V, s) for NBTI.
func (m Mechanism) Rate(s Stress) (float64, error) {
	switch m.kind {
	case Electromigration:
		return m.em.Alpha(s.Temperature)
	case NBTI:
		return m.nbti.ADF(s.Temperature, s.Voltage, s.Factor)
	default:
		return 0, fmt.Errorf("%w: mechanism not set", ErrUnknownMechanism)
	}
}

// Alpha is the EM wearout scale function (Black's equation divided by
// Γ(1+1/β)), equation (3) of Bolchini et al. 2014. temp is in °C.
//
//	alpha(T) = A0 * Jcrit^(-n) * exp(Ea / (k*T)) / Γ(1 + 1/β)
func (c EMConstants) Alpha(temp float64) (float64, error) {
	tk, err := kelvin(temp)
	if err != nil {
		return 0, err
	}

	a := c.A0 * math.Pow(c.JCrit, -c.N) * math.Exp(c.Ea/(c.K*tk)) / math.Gamma(1+1/c.Beta)
	if math.IsInf(a, 0) || math.IsNaN(a) || a <= 0 {
		return 0, fmt.Errorf("%w: alpha(%g °C) = %g is out of range", ErrInvalidInput, temp, a)
	}
	return a, nil
}

// ADF is the NBTI activity factor, equation (7) of Moghaddasi 2018.
//
//	adf(T, V, s) = K * exp(-E0/(k*T)) * exp(B*V/(Ox*k*T)) * s^N
func (c NBTIConstants) ADF(temp, voltage, stress float64) (float64, error) {
	tk, err := kelvin(temp)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(voltage) || math.IsInf(voltage, 0) {
		return 0, fmt.Errorf("%w: voltage %g", ErrInvalidInput, voltage)
	}
	if !(stress > 0) || math.IsInf(stress, 0) {
		return 0, fmt.Errorf("%w: stress factor %g must be > 0", ErrInvalidInput, stress)
	}

	kt := c.Boltzmann * tk
	adf := c.K * math.Exp(-c.E0/kt) * math.Exp(c.B*voltage/(c.Ox*kt)) * math.Pow(stress, c.N)
	if math.IsInf(adf, 0) || math.IsNaN(adf) || adf <= 0 {
		return 0, fmt.Errorf("%w: adf(%g °C, %g V) = %g is out of range", ErrInvalidInput, temp, voltage, adf)
	}
	return adf, nil
}

// Shift advances the threshold voltage shift by dt hours under activity
// factor adf, equation (11) of Moghaddasi 2018:
//
//	ΔV' = adf * ((ΔV/adf)^(1/N) + dt)^N
//
// (ΔV/adf)^(1/N) is the stress time te that produces ΔV at the current adf.
// For ΔV > 0 it is evaluated as ΔV * exp(N * log1p(dt/te)), which never
// falls below ΔV in float64, even when dt is negligible next to te.
// A zero dt returns prev unchanged.
func (c NBTIConstants) Shift(prev, adf, dt float64) float64 {
	if dt == 0 {
		return prev
	}
	if prev <= 0 {
		return adf * math.Pow(dt, c.N)
	}
	te := math.Pow(prev/adf, 1/c.N)
	if te == 0 {
		return max(prev, adf*math.Pow(dt, c.N))
	}
	return prev * math.Exp(c.N*math.Log1p(dt/te))
}

// Critical returns the threshold voltage shift that counts as failure.
func (c NBTIConstants) Critical() float64 {
	return c.FailureFraction * c.VInit
}

func kelvin(temp float64) (float64, error) {
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return 0, fmt.Errorf("%w: temperature %g", ErrInvalidInput, temp)
	}
	tk := temp + ZeroCelsiusInKelvin
	if tk <= 0 {
		return 0, fmt.Errorf("%w: temperature %g °C is at or below absolute zero", ErrInvalidInput, temp)
	}
	return tk, nil
}
