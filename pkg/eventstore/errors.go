package eventstore

import "errors"

var (
	// ErrDuplicateEvent is returned by Append when event_id has already
	// been ingested; the caller should treat this as success, not failure.
	ErrDuplicateEvent = errors.New("eventstore: duplicate event_id")

	// ErrEventNotFound is returned when a lookup by event_id has no match.
	ErrEventNotFound = errors.New("eventstore: event not found")

	// ErrInvalidCursor is returned when ReadRange is given a cursor that
	// does not parse as a global_position.
	ErrInvalidCursor = errors.New("eventstore: invalid cursor")
)
