package checkpoint

import "errors"

var (
	// ErrInconsistent indicates that the set of checkpoint files on disk is not
	// one a previous Save could have produced (e.g. R values without damage).
	ErrInconsistent = errors.New("checkpoint: inconsistent files")

	// ErrCountMismatch indicates that a checkpoint holds a different number of
	// values than there are components.
	ErrCountMismatch = errors.New("checkpoint: value count mismatch")

	// ErrMalformed indicates a value that does not parse as a decimal number,
	// or one that is negative or non-finite.
	ErrMalformed = errors.New("checkpoint: malformed value")
)
