// Package reliability accumulates processor wearout damage from a sequence of
// stress samples and derives the reliability R(t) of one component.
//
// Overview
//
//   - Model: one per monitored component (e.g. per core). It owns its
//     wearout.Mechanism by value and is updated strictly in sample order:
//
//     Update(dt, stress)          dt in hours, must be >= 0
//     UpdateTimestamp(t, stress)  t is an absolute time in hours
//
//   - Lifecycle: a Model is fresh (R = 1, damage = 0) or restored from a
//     checkpoint with WithState / WithDamage / WithRecoveryTerm. Failure is not
//     a model state; drivers compare R against their own limit.
//
// Mechanisms
//
//	EM:   damage = Σ dt_j / alpha(T_j)          R = exp(-damage^β), β = 2
//	NBTI: ΔV' = adf * ((ΔV/adf)^(1/N) + dt)^N    R = exp(-ΔV / (0.1 * V_init))
//
// EM follows equation (5) of Bolchini et al. 2014 ("Lightweight and
// Open-source Framework for the Lifetime Estimation of Multicore Systems").
// NBTI uses the direct threshold-voltage-shift recurrence of Moghaddasi 2018;
// damage is reported as ΔV / (0.1 * V_init) so that R = exp(-damage).
//
// Errors
//
//   - ErrInvalidInput: negative or non-finite dt, non-positive NBTI stress
//     factor, temperature at or below absolute zero.
//   - ErrInvariantViolation: the computed R exceeds the previous R.
//
// Both are returned before anything is committed, so a failed Update or
// UpdateTimestamp leaves R, damage, area and timestamp untouched. Retrying
// with the same inputs fails the same way.
//
// Precision
//
// Damage and the area under the curve are accumulated in big.Float with a
// 113-bit mantissa. The formulas are evaluated in float64. Rounded addition
// of a non-negative increment never decreases the sum, which keeps damage
// monotonic over millions of tiny increments. State returns the full
// precision value; Damage rounds to float64.
//
// The area under the curve uses the rectangle rule (area += R*dt) and is not
// part of the checkpoint; restored models start with zero area.
package reliability
