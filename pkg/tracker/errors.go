package tracker

import "errors"

var (
	// Not found errors.
	ErrBoardNotFound = errors.New("tracker: board not found")
	ErrJobNotFound   = errors.New("tracker: job not found")
	ErrRunNotFound   = errors.New("tracker: run not found")
	ErrUserNotFound  = errors.New("tracker: user not found")

	// ErrLockHeld is the expected, frequent conflict outcome of CreateRun:
	// another agent already holds the apply lock for the job. Callers should
	// back off, not retry immediately.
	ErrLockHeld = errors.New("tracker: apply lock already held")

	// ErrInvalidState indicates the job's current status does not permit the
	// requested operation (for example, claiming an applied job).
	ErrInvalidState = errors.New("tracker: job status does not permit operation")

	// ErrInvalidInput indicates a missing required field or an unrecognized
	// enum value, caught at the boundary before any store mutation.
	ErrInvalidInput = errors.New("tracker: invalid input")
)

// IsNotFound returns true if the error is any of the entity not-found errors.
// Use this when the caller does not care which entity was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBoardNotFound) ||
		errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
