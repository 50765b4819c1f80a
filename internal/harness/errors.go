package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeExited is returned for requests pending when a scope process
	// exits or closes its output.
	ErrScopeExited = errors.New("scope process exited")

	// ErrTimeout is returned when a scope does not answer within
	// Parameters.Timeout.
	ErrTimeout = errors.New("timed out waiting for scope")

	// ErrClosed is returned by requests made after Close.
	ErrClosed = errors.New("harness closed")

	// ErrNoActiveScope is returned by searches before SetActiveScope.
	ErrNoActiveScope = errors.New("no active scope")
)

// RemoteError is a failure reported by the scope in an error event.
type RemoteError struct {
	ScopeID string
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("scope %s: %s failed: %s", e.ScopeID, e.Method, e.Message)
}

// IsRemoteError reports whether err is or wraps a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
