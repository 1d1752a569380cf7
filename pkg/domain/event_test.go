package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validEvent() *Event {
	return &Event{
		EventID:    "e1",
		EventType:  "observation.input",
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SessionID:  "s1",
		AgentID:    "a1",
		TraceID:    "t1",
		PayloadRef: "p1",
	}
}

func TestValidateEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr string
	}{
		{
			name:   "valid event",
			mutate: func(e *Event) {},
		},
		{
			name:    "missing event_id",
			mutate:  func(e *Event) { e.EventID = "" },
			wantErr: "event_id",
		},
		{
			name:    "bad event_type format",
			mutate:  func(e *Event) { e.EventType = "singleword" },
			wantErr: "event_type",
		},
		{
			name:    "future drift rejected",
			mutate:  func(e *Event) { e.OccurredAt = now.Add(6 * time.Minute) },
			wantErr: "occurred_at",
		},
		{
			name:    "self-parent rejected",
			mutate:  func(e *Event) { e.ParentEventID = ptr(e.EventID) },
			wantErr: "parent_event_id",
		},
		{
			name: "ended_at before occurred_at rejected",
			mutate: func(e *Event) {
				before := e.OccurredAt.Add(-time.Minute)
				e.EndedAt = &before
			},
			wantErr: "ended_at",
		},
		{
			name:    "unknown status enum rejected",
			mutate:  func(e *Event) { s := EventStatus("bogus"); e.Status = &s },
			wantErr: "status",
		},
		{
			name:    "importance_hint out of range rejected",
			mutate:  func(e *Event) { e.ImportanceHint = ptr(11) },
			wantErr: "importance_hint",
		},
		{
			name:    "payload_ref over max length rejected",
			mutate:  func(e *Event) { e.PayloadRef = string(make([]byte, MaxPayloadRefLen+1)) },
			wantErr: "payload_ref",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			// self-parent case needs EventID set before ParentEventID derives from it
			if tt.name == "self-parent rejected" {
				e.ParentEventID = ptr(e.EventID)
			} else {
				tt.mutate(e)
			}

			errs := ValidateEvent(e, now)
			if tt.wantErr == "" {
				require.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			found := false
			for _, verr := range errs {
				if verr.Field == tt.wantErr {
					found = true
				}
			}
			assert.True(t, found, "expected a validation error on field %q, got %+v", tt.wantErr, errs)
		})
	}
}

func TestNormalizeEventType(t *testing.T) {
	assert.Equal(t, SessionEndedEventType, NormalizeEventType("system.session_end"))
	assert.Equal(t, "tool.invoked", NormalizeEventType("tool.invoked"))
	assert.True(t, IsSessionEnd("system.session_end"))
	assert.True(t, IsSessionEnd("session.ended"))
	assert.False(t, IsSessionEnd("tool.invoked"))
}
