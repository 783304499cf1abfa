package isolation

import (
	"fmt"
	"strings"
)

// MemberFailure records why one group member could not be rewritten.
type MemberFailure struct {
	InstanceID string
	Err        error
}

// RewireError reports the members of an isolation group whose rewrite
// failed. Members not listed were rewritten successfully.
type RewireError struct {
	MasterID string
	Failures []MemberFailure
}

func (e *RewireError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.InstanceID, f.Err))
	}
	return fmt.Sprintf("rewire of isolation group %s failed for %d member(s): %s",
		e.MasterID, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the member errors to errors.Is and errors.As.
func (e *RewireError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailedIDs returns the ids of the failed members.
func (e *RewireError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.InstanceID)
	}
	return ids
}
