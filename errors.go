package bisim

import (
	"github.com/jgkw/bisim/internal/engine"
	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when the supplied LTS violates a
// precondition (a transition referencing an out-of-range state, etc).
var ErrInvalidInput = engine.ErrInvalidInput

// ErrCapacityExceeded is returned when the state or transition count
// exceeds what the engine's int32 indices can address.
var ErrCapacityExceeded = engine.ErrCapacityExceeded

// ErrOutOfMemory is reserved for arena-exhaustion failures. The engine's
// slice-backed arenas grow instead of failing, so New never returns it
// today; it is exported for symmetry with the other sentinel categories.
var ErrOutOfMemory = engine.ErrOutOfMemory

// wrap adds op (the name of the failing call) as context, without
// hiding the original sentinel from errors.Is.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, op)
}
