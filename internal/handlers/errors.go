package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"gig-booking/internal/status"

	"github.com/pocketbase/pocketbase/core"
)

type errorResponse struct {
	Kind    status.Kind `json:"kind"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

func httpStatus(kind status.Kind) int {
	switch kind {
	case status.KindUnauthenticated:
		return http.StatusUnauthorized
	case status.KindForbidden:
		return http.StatusForbidden
	case status.KindNotFound:
		return http.StatusNotFound
	case status.KindConflict:
		return http.StatusConflict
	case status.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"kind","code","message"}. Internal causes are
// logged and never echoed to the client.
func respondError(e *core.RequestEvent, err error) error {
	var se *status.Error
	if !errors.As(err, &se) {
		se = status.ErrInternal.Wrap(err)
	}

	if se.Kind == status.KindInternal {
		slog.Error("request failed",
			"error", err,
			"method", e.Request.Method,
			"path", e.Request.URL.Path,
		)
	}

	// se.Message never includes the wrapped cause
	return e.JSON(httpStatus(se.Kind), errorResponse{
		Kind:    se.Kind,
		Code:    se.Code,
		Message: se.Message,
	})
}
