package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error with contextual information.
// Graph operations return it when an instance id has no corresponding node, and
// directory lookups return it when no instance record matches.
type NotFoundError struct {
	// ResourceType categorizes the resource that was not found
	// (e.g., "instance", "graph node").
	ResourceType string

	// ResourceName is the identifier that was looked up.
	ResourceName string

	// Message overrides the default message when set.
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
//
// Example:
//
//	if err := deps.AddEdge(ctx, from, to, host); api.IsNotFound(err) {
//	    // one of the instances was deleted concurrently
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

var (
	// NewInstanceNotFoundError creates an instance not found error for directory lookups.
	NewInstanceNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("instance", id)
	}

	// NewNodeNotFoundError creates a not found error for a missing graph node.
	NewNodeNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("graph node", id)
	}
)

// ConflictError reports that an operation conflicts with the current state of a
// resource, e.g. rewiring a group around an instance that is not isolated.
// Callers raise it before calling into the rewire engine; the engine itself
// assumes the precondition holds and never returns it.
type ConflictError struct {
	ResourceType string
	ResourceName string
	Reason       string
}

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.ResourceType, e.ResourceName, e.Reason)
}

// NewConflictError creates a new ConflictError.
func NewConflictError(resourceType, resourceName, reason string) *ConflictError {
	return &ConflictError{ResourceType: resourceType, ResourceName: resourceName, Reason: reason}
}

// IsConflict checks if an error is or wraps a ConflictError.
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// StoreUnavailableError wraps a failure of the graph store transport, including
// request timeouts. It is propagated unchanged; callers decide whether to retry.
type StoreUnavailableError struct {
	// Op names the store operation that failed (e.g. "PutEdge").
	Op  string
	Err error
}

// Error implements the error interface for StoreUnavailableError.
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// NewStoreUnavailableError wraps err as a StoreUnavailableError for op.
func NewStoreUnavailableError(op string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Err: err}
}

// IsStoreUnavailable checks if an error is or wraps a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var storeErr *StoreUnavailableError
	return errors.As(err, &storeErr)
}
