package reliability

import (
	"errors"

	"github.com/ja7ad/reliability/pkg/wearout"
)

var (
	// ErrInvalidInput indicates a negative or non-finite time delta, a
	// non-positive NBTI stress factor, a temperature outside the wearout
	// function's domain, or an invalid initial state. It aliases
	// wearout.ErrInvalidInput so either can be matched with errors.Is.
	ErrInvalidInput = wearout.ErrInvalidInput

	// ErrInvariantViolation indicates that reliability would have increased.
	// Nothing is committed when it is returned.
	ErrInvariantViolation = errors.New("reliability: invariant violation")
)
