package platform

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the platform reports a resource does not exist.
// Callers must branch on this error only, other failures are not a license to create.
var ErrNotFound = errors.New("resource not found")

// TransientError marks a response worth retrying (5xx or broken connection).
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient platform error: %v", e.Err)
	}
	return fmt.Sprintf("transient platform error: status %d", e.Status)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the resource does not exist remotely.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
