package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for fetch outcomes.
var (
	// ErrRateLimited signals the external channel rejected a call for pacing
	// reasons. It is the only transient fetch error.
	ErrRateLimited = errors.New("rate limited")
	// ErrAuthRejected signals bad or expired credentials. Terminal; never retried.
	ErrAuthRejected = errors.New("authentication rejected")
)

// PersistError marks a state write failure. Rotation and quota bookkeeping
// must not be silently lost, so these abort the whole run.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Persistf wraps err as a fatal PersistError.
func Persistf(op string, err error) error {
	return &PersistError{Op: op, Err: err}
}

// IsPersistError reports whether err carries a PersistError anywhere in its chain.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
