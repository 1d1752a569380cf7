package domain

import (
	"fmt"
	"regexp"
	"time"
)

// eventTypePattern enforces the dot-namespaced, two-or-more-level grammar
// event types must follow: lowercase segments joined by dots, at least
// one dot.
var eventTypePattern = regexp.MustCompile(`^[a-z]+(\.[a-z_]+)+$`)

// MaxFutureDrift is the maximum amount an event's occurred_at may exceed
// the current time before it is rejected.
const MaxFutureDrift = 5 * time.Minute

// MaxPayloadRefLen is the maximum length of an opaque payload_ref pointer.
const MaxPayloadRefLen = 256

// SessionEndedEventType is the canonical session-end event type (Open
// Question 1: session.ended is canonical, system.session_end is a legacy
// alias mapped on ingest).
const SessionEndedEventType = "session.ended"

// SessionEndedLegacyAlias is remapped to SessionEndedEventType on ingest.
const SessionEndedLegacyAlias = "system.session_end"

// PreferenceStatedEventType is the explicit structured knowledge event
// type the projection consumer recognizes and parses directly.
const PreferenceStatedEventType = "user.preference.stated"

// Event is the episodic unit: an immutable record of an occurrence in an
// agent/tool/LLM interaction. RawEvent carries what a producer supplies;
// GlobalPosition is assigned by the Event Store on append and is never
// client-supplied.
type Event struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	SessionID      string    `json:"session_id"`
	AgentID        string    `json:"agent_id"`
	TraceID        string    `json:"trace_id"`
	PayloadRef     string    `json:"payload_ref,omitempty"`
	GlobalPosition string    `json:"global_position"`

	ToolName       *string      `json:"tool_name,omitempty"`
	ParentEventID  *string      `json:"parent_event_id,omitempty"`
	EndedAt        *time.Time   `json:"ended_at,omitempty"`
	Status         *EventStatus `json:"status,omitempty"`
	SchemaVersion  int          `json:"schema_version"`
	ImportanceHint *int         `json:"importance_hint,omitempty"`
}

// ValidationError describes one invariant violation on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEvent checks an Event against every ingestion invariant and
// returns every violation found (not just the first), so a
// caller batching events can report all problems at once. now is injected
// so future-drift rejection is deterministically testable.
func ValidateEvent(e *Event, now time.Time) []ValidationError {
	var errs []ValidationError

	if e.EventID == "" {
		errs = append(errs, ValidationError{"event_id", "required"})
	}
	if e.EventType == "" {
		errs = append(errs, ValidationError{"event_type", "required"})
	} else if !eventTypePattern.MatchString(e.EventType) {
		errs = append(errs, ValidationError{"event_type", "must match ^[a-z]+(\\.[a-z_]+)+$"})
	}
	if e.OccurredAt.IsZero() {
		errs = append(errs, ValidationError{"occurred_at", "required"})
	} else if e.OccurredAt.After(now.Add(MaxFutureDrift)) {
		errs = append(errs, ValidationError{"occurred_at", "exceeds future drift tolerance of 5m"})
	}
	if e.SessionID == "" {
		errs = append(errs, ValidationError{"session_id", "required"})
	}
	if e.AgentID == "" {
		errs = append(errs, ValidationError{"agent_id", "required"})
	}
	if e.TraceID == "" {
		errs = append(errs, ValidationError{"trace_id", "required"})
	}
	if e.PayloadRef == "" {
		errs = append(errs, ValidationError{"payload_ref", "required"})
	} else if len(e.PayloadRef) > MaxPayloadRefLen {
		errs = append(errs, ValidationError{"payload_ref", fmt.Sprintf("exceeds max length of %d", MaxPayloadRefLen)})
	}
	if e.ParentEventID != nil && *e.ParentEventID == e.EventID {
		errs = append(errs, ValidationError{"parent_event_id", "must not equal event_id"})
	}
	if e.EndedAt != nil && e.EndedAt.Before(e.OccurredAt) {
		errs = append(errs, ValidationError{"ended_at", "must be >= occurred_at"})
	}
	if e.Status != nil && !e.Status.Valid() {
		errs = append(errs, ValidationError{"status", "unknown enum value"})
	}
	if e.ImportanceHint != nil && (*e.ImportanceHint < 1 || *e.ImportanceHint > 10) {
		errs = append(errs, ValidationError{"importance_hint", "must be in [1,10]"})
	}

	return errs
}

// NormalizeEventType maps the legacy session-end alias to the canonical
// type. Called once on ingest, before validation.
func NormalizeEventType(eventType string) string {
	if eventType == SessionEndedLegacyAlias {
		return SessionEndedEventType
	}
	return eventType
}

// IsSessionEnd reports whether this event type signals the end of a
// session, after normalization.
func IsSessionEnd(eventType string) bool {
	return NormalizeEventType(eventType) == SessionEndedEventType
}
