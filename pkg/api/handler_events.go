package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/domain"
)

const maxBatchEvents = 500

// appendEventHandler handles POST /v1/events.
func (s *Server) appendEventHandler(c *gin.Context) {
	var ev domain.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, domain.NewError(domain.ErrValidationFailed, "malformed request body", err))
		return
	}

	ev.EventType = domain.NormalizeEventType(ev.EventType)
	if errs := domain.ValidateEvent(&ev, time.Now()); len(errs) > 0 {
		writeError(c, domain.NewError(domain.ErrValidationFailed, validationMessage(errs), nil))
		return
	}

	appended, err := s.events.Append(c.Request.Context(), &ev)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "append event", err))
		return
	}

	c.JSON(http.StatusAccepted, appendResponse{
		EventID:        ev.EventID,
		GlobalPosition: ev.GlobalPosition,
		Appended:       appended,
	})
}

// appendEventBatchHandler handles POST /v1/events/batch.
func (s *Server) appendEventBatchHandler(c *gin.Context) {
	var events []*domain.Event
	if err := c.ShouldBindJSON(&events); err != nil {
		writeError(c, domain.NewError(domain.ErrValidationFailed, "malformed request body", err))
		return
	}
	if len(events) == 0 {
		writeError(c, domain.NewError(domain.ErrValidationFailed, "batch must contain at least one event", nil))
		return
	}
	if len(events) > maxBatchEvents {
		writeError(c, domain.NewError(domain.ErrBoundsExceeded, "batch exceeds max size", nil))
		return
	}

	now := time.Now()
	for _, ev := range events {
		ev.EventType = domain.NormalizeEventType(ev.EventType)
		if errs := domain.ValidateEvent(ev, now); len(errs) > 0 {
			writeError(c, domain.NewError(domain.ErrValidationFailed, validationMessage(errs), nil))
			return
		}
	}

	n, err := s.events.AppendBatch(c.Request.Context(), events)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "append event batch", err))
		return
	}

	c.JSON(http.StatusAccepted, appendBatchResponse{Appended: n, Received: len(events)})
}

func validationMessage(errs []domain.ValidationError) string {
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return msg
}
