package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/pkg/apperror"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// Success writes a successful envelope and returns it.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
	ctx.JSON(status, resp)
	return resp
}

// Error writes a failed envelope and returns it.
func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Error:     err,
	}
	ctx.JSON(status, resp)
	return resp
}

// FromError maps err to its status through apperror. Messages of server-side
// failures are replaced and the cause is logged instead.
func FromError(ctx *gin.Context, err error, logger *logrus.Logger) {
	kind := apperror.KindOf(err)
	status := kind.HTTPStatus()
	if !kind.Public() {
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": ctx.GetString("request_id"),
				"path":       ctx.FullPath(),
			}).Error("request failed")
		}
		Error[any](ctx, status, "internal server error", gin.H{"code": kind})
		return
	}
	msg := err.Error()
	if ae := apperror.As(err); ae != nil && ae.Message != "" {
		msg = ae.Message
	}
	Error[any](ctx, status, msg, gin.H{"code": kind})
}
