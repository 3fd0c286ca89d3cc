package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
	"liyu1981.xyz/sos-safety-service/pkg/sos"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, safety.ErrNotFound),
		errors.Is(err, remote.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrInvalidDocument),
		errors.Is(err, safety.ErrInvalidContact),
		errors.Is(err, safety.ErrInvalidEvent),
		errors.Is(err, location.ErrInvalidFix),
		errors.Is(err, sos.ErrInvalidTrigger):
		return http.StatusBadRequest
	case errors.Is(err, sos.ErrBusy),
		errors.Is(err, sos.ErrInvalidTransition),
		errors.Is(err, safety.ErrAlreadyResolved),
		errors.Is(err, location.ErrTrackingActive):
		return http.StatusConflict
	case errors.Is(err, location.ErrPermissionDenied),
		errors.Is(err, remote.ErrAuth):
		return http.StatusForbidden
	case errors.Is(err, location.ErrLocationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, remote.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger().Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
