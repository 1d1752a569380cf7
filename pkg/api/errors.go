package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a domain error to an HTTP status and writes it,
// aborting the gin context. Errors that don't carry a domain.ErrKind
// are logged and surfaced as a generic 500, never echoing the raw
// error string back to the caller.
func writeError(c *gin.Context, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		slog.Error("unexpected error", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		slog.Error("unexpected error", "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error()})
}

func statusForKind(kind domain.ErrKind) int {
	switch kind {
	case domain.ErrValidationFailed, domain.ErrBoundsExceeded:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrDuplicate:
		return http.StatusConflict
	case domain.ErrUnavailable, domain.ErrDependencyFailed:
		return http.StatusServiceUnavailable
	case domain.ErrExtractionFailed, domain.ErrPoisonMessage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
