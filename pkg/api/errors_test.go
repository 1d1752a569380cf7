package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ctxatlas/atlas/pkg/domain"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "validation failed maps to 400",
			err:        domain.NewError(domain.ErrValidationFailed, "missing field", nil),
			expectCode: http.StatusBadRequest,
			expectMsg:  "missing field",
		},
		{
			name:       "not found maps to 404",
			err:        domain.NewError(domain.ErrNotFound, "entity not found", nil),
			expectCode: http.StatusNotFound,
			expectMsg:  "entity not found",
		},
		{
			name:       "duplicate maps to 409",
			err:        domain.NewError(domain.ErrDuplicate, "event_id already appended", nil),
			expectCode: http.StatusConflict,
			expectMsg:  "event_id already appended",
		},
		{
			name:       "unavailable maps to 503",
			err:        domain.NewError(domain.ErrUnavailable, "graph store unreachable", nil),
			expectCode: http.StatusServiceUnavailable,
			expectMsg:  "graph store unreachable",
		},
		{
			name:       "unwrapped error maps to 500",
			err:        errors.New("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal error",
		},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			writeError(c, tt.err)

			assert.Equal(t, tt.expectCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectMsg)
		})
	}
}
