package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error onto the HTTP status and the message shown
// to the client. ok is false for errors that must not leak.
func statusFor(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, common.ErrBadRequest):
		return http.StatusBadRequest, clientMessage(err, common.ErrBadRequest), true
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, clientMessage(err, common.ErrorUnauthorized), true
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, clientMessage(err, common.ErrForbidden), true
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, clientMessage(err, common.ErrorNotFound), true
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, clientMessage(err, common.ErrConflict), true
	case errors.Is(err, common.ErrUploadFailed):
		return http.StatusBadGateway, "file upload failed", false
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, common.ErrRateLimited.Error(), true
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error(), false
	}
}

// clientMessage strips the sentinel text the services wrap around the detail.
func clientMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, msg, ok := statusFor(err)
	if !ok {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}
	writeErrorMessage(c, status, msg)
}

func writeErrorMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
