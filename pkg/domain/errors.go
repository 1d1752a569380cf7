// Package domain holds the core types, validation rules, and error
// taxonomy shared by every component of the context graph: the event
// envelope, graph node/edge kinds, and the error kinds each layer above
// (event store, graph store, consumers, API) maps to its own concerns.
package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies a domain error independently of which component
// raised it, so the API layer can map it to a transport status without
// importing net/http into core packages.
type ErrKind string

const (
	// ErrValidationFailed marks a malformed or out-of-bounds input.
	ErrValidationFailed ErrKind = "validation_failed"
	// ErrDuplicate marks a write that was rejected, or silently
	// absorbed, because it collided with an existing event_id.
	ErrDuplicate ErrKind = "duplicate"
	// ErrNotFound marks a lookup for a node, edge, or event that does
	// not exist.
	ErrNotFound ErrKind = "not_found"
	// ErrBoundsExceeded marks a request that exceeds a configured
	// traversal/size bound (hop count, node budget, payload size).
	ErrBoundsExceeded ErrKind = "bounds_exceeded"
	// ErrUnavailable marks a transient dependency failure (storage,
	// cache, upstream service) that a caller may retry.
	ErrUnavailable ErrKind = "unavailable"
	// ErrExtractionFailed marks a failure specific to the LLM
	// extraction pipeline (schema violation, refusal, timeout).
	ErrExtractionFailed ErrKind = "extraction_failed"
	// ErrDependencyFailed marks a failure in a collaborating internal
	// component (e.g. embedding service) distinct from storage.
	ErrDependencyFailed ErrKind = "dependency_failed"
	// ErrPoisonMessage marks a queue entry that has exceeded its retry
	// budget and must be routed to the dead-letter path instead of
	// retried again.
	ErrPoisonMessage ErrKind = "poison_message"
)

// Error is the wrapped error type returned by every domain-layer
// operation. Callers inspect Kind with errors.As/Is; the API layer is
// the only place that maps Kind to an HTTP status.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a domain error of the given kind.
func NewError(kind ErrKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrKind from err if it (or something it wraps) is
// a *domain.Error, otherwise returns "" and false.
func KindOf(err error) (ErrKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given ErrKind.
func Is(err error, kind ErrKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
