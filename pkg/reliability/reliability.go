package reliability

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ja7ad/reliability/pkg/wearout"
)

// Precision is the mantissa size, in bits, of the damage and area
// accumulators (IEEE binary128).
const Precision = 113

// Model accumulates wearout damage for one component and derives R(t).
// A Model is updated by a single caller; use Clone for an independent copy.
type Model struct {
	mech      wearout.Mechanism
	r         float64
	timestamp float64 // hours
	damage    *big.Float
	area      *big.Float // hours
	recovery  float64    // NBTI threshold voltage shift, V
}

// State is the minimal state needed to resume a Model.
// For NBTI, Recovery is authoritative and Damage is derived from it.
type State struct {
	Damage   *big.Float // nil means zero
	Recovery float64
}

// Option configures a Model restored from persisted state.
type Option func(*options)

type options struct {
	damage      *big.Float
	damage64    float64
	hasDamage64 bool
	recovery    float64
	hasRecovery bool
	timestamp   float64
}

// WithDamage restores the accumulated damage.
func WithDamage(d float64) Option {
	return func(o *options) { o.damage64, o.hasDamage64 = d, true }
}

// WithRecoveryTerm restores the NBTI threshold voltage shift.
func WithRecoveryTerm(v float64) Option {
	return func(o *options) { o.recovery, o.hasRecovery = v, true }
}

// WithTimestamp sets the absolute time (hours) used by UpdateTimestamp.
func WithTimestamp(t float64) Option {
	return func(o *options) { o.timestamp = t }
}

// WithState restores a full State, typically read from a checkpoint.
func WithState(s State) Option {
	return func(o *options) {
		o.damage = s.Damage
		if s.Recovery != 0 {
			o.recovery, o.hasRecovery = s.Recovery, true
		}
	}
}

// New creates a model for mech. Without options the model is fresh: R = 1,
// damage = 0. Restored models derive R from the restored damage; the area
// under the curve always starts at zero.
//
// For NBTI the recovery term wins over a restored damage value; damage alone
// is converted back into a recovery term.
func New(mech wearout.Mechanism, opts ...Option) (*Model, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if math.IsNaN(o.timestamp) || math.IsInf(o.timestamp, 0) {
		return nil, fmt.Errorf("%w: initial timestamp %g", ErrInvalidInput, o.timestamp)
	}

	damage := newFloat()
	switch {
	case o.hasDamage64:
		if !finiteNonNegative(o.damage64) {
			return nil, fmt.Errorf("%w: initial damage %g", ErrInvalidInput, o.damage64)
		}
		damage.SetFloat64(o.damage64)
	case o.damage != nil:
		if o.damage.Sign() < 0 || o.damage.IsInf() {
			return nil, fmt.Errorf("%w: initial damage %s", ErrInvalidInput, o.damage.Text('g', 10))
		}
		damage.Set(o.damage)
	}
	if o.hasRecovery && !finiteNonNegative(o.recovery) {
		return nil, fmt.Errorf("%w: initial recovery term %g", ErrInvalidInput, o.recovery)
	}

	m := &Model{
		mech:      mech,
		timestamp: o.timestamp,
		damage:    damage,
		area:      newFloat(),
	}

	switch mech.Kind() {
	case wearout.Electromigration:
		if o.hasRecovery && o.recovery != 0 {
			return nil, fmt.Errorf("%w: recovery term applies to NBTI only", ErrInvalidInput)
		}
	case wearout.NBTI:
		crit := mech.NBTI().Critical()
		if o.hasRecovery {
			m.recovery = o.recovery
		} else {
			d, _ := damage.Float64()
			m.recovery = d * crit
		}
		m.damage.SetFloat64(m.recovery / crit)
	default:
		return nil, fmt.Errorf("%w: %v", wearout.ErrUnknownMechanism, mech.Kind())
	}

	d, _ := m.damage.Float64()
	m.r = m.survival(d)
	return m, nil
}

// step is a fully computed, not yet committed update.
type step struct {
	damage   *big.Float
	area     *big.Float
	recovery float64
	r        float64
}

// Update advances the model by dt hours under stress s.
//
// EM:   damage += dt / alpha(T);  R = exp(-damage^β)
// NBTI: ΔV = adf * ((ΔV/adf)^(1/N) + dt)^N;  damage = ΔV / (0.1*V_init);  R = exp(-damage)
//
// The area under the curve grows by R*dt (rectangle rule). On error nothing
// is committed.
func (m *Model) Update(dt float64, s wearout.Stress) error {
	next, err := m.advance(dt, s)
	if err != nil {
		return err
	}
	m.commit(next)
	return nil
}

// UpdateTimestamp advances the model to the absolute time t (hours). The
// timestamp is only moved when the update itself succeeds.
func (m *Model) UpdateTimestamp(t float64, s wearout.Stress) error {
	next, err := m.advance(t-m.timestamp, s)
	if err != nil {
		return err
	}
	m.commit(next)
	m.timestamp = t
	return nil
}

func (m *Model) advance(dt float64, s wearout.Stress) (step, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return step{}, fmt.Errorf("%w: delta_t %g", ErrInvalidInput, dt)
	}
	if dt < 0 {
		return step{}, fmt.Errorf("%w: time cannot move backward (delta_t = %g)", ErrInvalidInput, dt)
	}

	rate, err := m.mech.Rate(s)
	if err != nil {
		return step{}, err
	}

	next := step{damage: newFloat(), area: newFloat().Set(m.area)}

	switch m.mech.Kind() {
	case wearout.Electromigration:
		inc := newFloat().SetFloat64(dt)
		inc.Quo(inc, newFloat().SetFloat64(rate))
		next.damage.Add(m.damage, inc)
	case wearout.NBTI:
		c := m.mech.NBTI()
		next.recovery = c.Shift(m.recovery, rate, dt)
		if !finiteNonNegative(next.recovery) {
			return step{}, fmt.Errorf("%w: recovery term became %g", ErrInvariantViolation, next.recovery)
		}
		next.damage.SetFloat64(next.recovery / c.Critical())
	}

	d, _ := next.damage.Float64()
	next.r = m.survival(d)
	if next.r > m.r && next.damage.Cmp(m.damage) >= 0 && m.r == m.survival(m.Damage()) {
		// exp is not monotone to the last ulp; damage did not decrease
		next.r = m.r
	}
	if next.r > m.r {
		return step{}, fmt.Errorf("%w: R would increase from %g to %g", ErrInvariantViolation, m.r, next.r)
	}

	inc := newFloat().SetFloat64(next.r)
	inc.Mul(inc, newFloat().SetFloat64(dt))
	next.area.Add(next.area, inc)

	return next, nil
}

func (m *Model) commit(s step) {
	m.damage = s.damage
	m.area = s.area
	m.recovery = s.recovery
	m.r = s.r
}

// survival maps accumulated damage to R.
func (m *Model) survival(d float64) float64 {
	if m.mech.Kind() == wearout.NBTI {
		return math.Exp(-d)
	}
	return math.Exp(-math.Pow(d, m.mech.EM().Beta))
}

// R returns the current reliability.
func (m *Model) R() float64 { return m.r }

// Damage returns the accumulated damage rounded to float64.
func (m *Model) Damage() float64 {
	d, _ := m.damage.Float64()
	return d
}

// Area returns the running integral of R(t) dt, in hours.
func (m *Model) Area() float64 {
	a, _ := m.area.Float64()
	return a
}

// RecoveryTerm returns the NBTI threshold voltage shift (0 for EM).
func (m *Model) RecoveryTerm() float64 { return m.recovery }

// Timestamp returns the absolute time (hours) of the last UpdateTimestamp.
func (m *Model) Timestamp() float64 { return m.timestamp }

// Mechanism returns the model's wearout mechanism.
func (m *Model) Mechanism() wearout.Mechanism { return m.mech }

// State returns a copy of the resumable state at full precision.
func (m *Model) State() State {
	return State{
		Damage:   newFloat().Set(m.damage),
		Recovery: m.recovery,
	}
}

// Clone returns an independent deep copy of m.
func (m *Model) Clone() *Model {
	c := *m
	c.damage = newFloat().Set(m.damage)
	c.area = newFloat().Set(m.area)
	return &c
}

// SteadyState returns the closed-form R after hours of constant stress s,
// starting from a fresh device.
func SteadyState(mech wearout.Mechanism, s wearout.Stress, hours float64) (float64, error) {
	if !finiteNonNegative(hours) {
		return 0, fmt.Errorf("%w: hours %g", ErrInvalidInput, hours)
	}
	rate, err := mech.Rate(s)
	if err != nil {
		return 0, err
	}
	switch mech.Kind() {
	case wearout.Electromigration:
		return math.Exp(-math.Pow(hours/rate, mech.EM().Beta)), nil
	default:
		c := mech.NBTI()
		return math.Exp(-c.Shift(0, rate, hours) / c.Critical()), nil
	}
}

func newFloat() *big.Float {
	return new(big.Float).SetPrec(Precision)
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
