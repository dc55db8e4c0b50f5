package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/resobyte/ambar-hub-sub004/internal/pkg/errors"
)

// APIErrorResponse is the standard error response body
type APIErrorResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
}

// ErrorResponder writes error responses in the standard shape
type ErrorResponder struct {
	ctx    *gin.Context
	logger *slog.Logger
}

// NewErrorResponder creates an error responder for the current request
func NewErrorResponder(ctx *gin.Context, logger *slog.Logger) *ErrorResponder {
	return &ErrorResponder{ctx: ctx, logger: logger}
}

// Respond maps any error to the standard response shape
func (r *ErrorResponder) Respond(err error) {
	appErr := apperrors.FromError(err)
	r.RespondWithAppError(appErr)
}

// RespondWithAppError writes an AppError response
func (r *ErrorResponder) RespondWithAppError(appErr *apperrors.AppError) {
	r.logError(appErr)

	requestID, _ := r.ctx.Get(ContextKeyRequestID)
	requestIDStr, _ := requestID.(string)

	r.ctx.JSON(appErr.HTTPStatus, APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestIDStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.ctx.Request.URL.Path,
	})
}

// RespondBadRequest writes a 400 response
func (r *ErrorResponder) RespondBadRequest(message string) {
	r.RespondWithAppError(apperrors.ErrBadRequest(message))
}

// RespondNotFound writes a 404 response
func (r *ErrorResponder) RespondNotFound(resource, id string) {
	r.RespondWithAppError(apperrors.ErrNotFound(resource).WithDetail("id", id))
}

// RespondInternalError writes a 500 response
func (r *ErrorResponder) RespondInternalError(err error) {
	r.RespondWithAppError(apperrors.ErrInternal("").Wrap(err))
}

func (r *ErrorResponder) logError(appErr *apperrors.AppError) {
	if r.logger == nil {
		return
	}

	attrs := []any{
		"code", appErr.Code,
		"message", appErr.Message,
		"path", r.ctx.Request.URL.Path,
		"method", r.ctx.Request.Method,
	}
	if appErr.Err != nil {
		attrs = append(attrs, "cause", appErr.Err.Error())
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		r.logger.Error("Request failed", attrs...)
		return
	}
	r.logger.Warn("Request rejected", attrs...)
}
