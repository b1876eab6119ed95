package jobqueue

import "errors"

// ErrInvalidArgument is returned synchronously by Push when given a job
// with a nil body or a priority outside [1, 10], and by New when given
// an invalid Option.
var ErrInvalidArgument = errors.New("jobqueue: invalid argument")

// logicError panics on violation of an internal invariant that should
// be unreachable in correct operation.
func logicError(msg string) {
	panic("jobqueue: scheduler invariant violated: " + msg)
}
