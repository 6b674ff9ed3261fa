package driver

import "errors"

var (
	// ErrComponentCount indicates a sample whose size differs from the bank.
	ErrComponentCount = errors.New("driver: component count mismatch")

	// ErrEmptyTrace indicates a trace without rows or columns.
	ErrEmptyTrace = errors.New("driver: empty trace")

	// ErrBadParams indicates invalid run parameters (period, limit, interval).
	ErrBadParams = errors.New("driver: invalid parameters")
)
