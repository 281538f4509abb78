package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// respondError writes err as {"error": {code, message, details}}. Errors
// that are not AppErrors become INTERNAL_ERROR.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		appErr = apperrors.InternalWrap(err, "internal server error")
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": appErr})
}
