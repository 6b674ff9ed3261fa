package hotspot

import "errors"

var (
	// ErrMissingHeader indicates that the first line of a temperature file is
	// not the expected header.
	ErrMissingHeader = errors.New("hotspot: missing header in temperature file")

	// ErrNoData indicates a file with a header but no temperatures.
	ErrNoData = errors.New("hotspot: no temperatures")

	// ErrRaggedRow indicates a trace row whose column count differs from the header.
	ErrRaggedRow = errors.New("hotspot: row length does not match header")

	// ErrBadValue indicates a temperature that does not parse as a number.
	ErrBadValue = errors.New("hotspot: bad temperature value")
)
