package types

import (
	"fmt"
	"time"
)

const (
	hoursPerDay  = 24
	hoursPerYear = 24 * 365
	msPerHour    = 60 * 60 * 1000
	nsPerHour    = 60 * 60 * 1_000_000_000
)

// Hours is a float64 wrapper representing a duration in hours, the time unit
// of every reliability model.
type Hours float64

// FromMillis converts milliseconds to hours.
func FromMillis(ms float64) Hours { return Hours(ms / msPerHour) }

// FromNanos converts nanoseconds to hours.
func FromNanos(ns float64) Hours { return Hours(ns / nsPerHour) }

// FromDuration converts a time.Duration to hours.
func FromDuration(d time.Duration) Hours { return FromNanos(float64(d)) }

// Years returns the number of 365-day years.
func (h Hours) Years() float64 { return float64(h) / hoursPerYear }

// Days returns the number of days.
func (h Hours) Days() float64 { return float64(h) / hoursPerDay }

// Millis returns the number of milliseconds.
func (h Hours) Millis() float64 { return float64(h) * msPerHour }

// Humanized returns a human-readable string with automatic unit (s, min, h, d, y).
func (h Hours) Humanized() string {
	v := float64(h)
	switch {
	case v >= hoursPerYear:
		return fmt.Sprintf("%.2f y", h.Years())
	case v >= hoursPerDay:
		return fmt.Sprintf("%.2f d", h.Days())
	case v >= 1:
		return fmt.Sprintf("%.2f h", v)
	case v >= 1.0/60:
		return fmt.Sprintf("%.2f min", v*60)
	default:
		return fmt.Sprintf("%.2f s", v*3600)
	}
}
