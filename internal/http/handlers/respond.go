package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Kind      string      `json:"kind,omitempty"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

// RespondAppError translates a service-layer typed error to its transport
// shape. Anything that is not an *apperr.Error becomes a plain 500.
func RespondAppError(ctx *gin.Context, err error) {
	var appErr *apperr.Error

	if !errors.As(err, &appErr) {
		RespondInternal(ctx, "Something went wrong")
		return
	}

	ctx.JSON(appErr.HTTPStatus(), gin.H{
		"error": APIError{
			Code:      appErr.Code(),
			Kind:      string(appErr.Kind),
			Message:   appErr.Message,
			RequestID: requestIDFrom(ctx),
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}
