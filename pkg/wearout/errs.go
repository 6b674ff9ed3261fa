package wearout

import "errors"

var (
	// ErrInvalidInput indicates stress conditions outside the model's valid
	// domain: temperature at or below absolute zero, a non-positive NBTI stress
	// factor, non-finite values, or a rate that overflowed or underflowed.
	ErrInvalidInput = errors.New("wearout: invalid input")

	// ErrUnknownConstants indicates an unknown EM constant set name.
	ErrUnknownConstants = errors.New("wearout: unknown constant set")

	// ErrUnknownMechanism indicates an unknown mechanism name.
	ErrUnknownMechanism = errors.New("wearout: unknown mechanism")
)
