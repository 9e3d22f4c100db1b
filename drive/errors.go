package drive

import (
	"fmt"
	"strings"
)

// InvariantError reports a command field outside of its wire range. It is only
// ever raised through a panic: the mixer clamps every field, so seeing one
// means a bug in this package rather than bad operator input.
type InvariantError struct {
	Field string
	Value int
	Max   int
}

func (err *InvariantError) Error() string {
	return fmt.Sprintf("invariant breach: %s=%d outside [0,%d]", err.Field, err.Value, err.Max)
}

// SessionError ends a control session. Cause is what stopped the loop (nil for
// a requested quit) and StopErr is the outcome of the final stop command.
type SessionError struct {
	Cause   error
	StopErr error
}

func (err *SessionError) Error() string {
	var parts []string
	if err.Cause != nil {
		parts = append(parts, "session aborted: "+err.Cause.Error())
	}
	if err.StopErr != nil {
		parts = append(parts, "final stop failed: "+err.StopErr.Error())
	}
	if len(parts) == 0 {
		return "session ended"
	}
	return strings.Join(parts, "; ")
}

func (err *SessionError) Unwrap() []error {
	var errs []error
	if err.Cause != nil {
		errs = append(errs, err.Cause)
	}
	if err.StopErr != nil {
		errs = append(errs, err.StopErr)
	}
	return errs
}
