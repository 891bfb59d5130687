package http

import (
	"context"
	"errors"
	"net/http"

	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError maps service and repository errors to responses.
func HandleServiceError(c *gin.Context, err error) {
	var decErr *repository.DecodeError
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, repository.ErrUnauthorized):
		RedirectResponse(c, http.StatusUnauthorized, "Login required", service.RouteLogin)
	case errors.Is(err, service.ErrRegistrationFailed), errors.Is(err, service.ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotParticipant):
		ErrorResponse(c, http.StatusForbidden, service.MsgNotParticipant)
	case errors.Is(err, service.ErrNotCreator), errors.Is(err, service.ErrNotTaskOwner),
		errors.Is(err, repository.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, service.MsgRoomNotFound)
	case errors.Is(err, service.ErrTaskBusy):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRoomNotLoaded):
		ErrorResponse(c, http.StatusServiceUnavailable, service.MsgLoadFailed)
	case errors.Is(err, service.ErrClosed):
		ErrorResponse(c, http.StatusServiceUnavailable, "Bridge is shutting down")
	case errors.Is(err, repository.ErrRejected):
		ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrUnavailable), errors.As(err, &decErr):
		logrus.WithError(err).Warn("Upstream API failure")
		ErrorResponse(c, http.StatusBadGateway, "Study room service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(c, http.StatusGatewayTimeout, "Request timed out")
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// handleOpError answers a failed task or room operation. Upstream failures
// get the operation's user message instead of a generic one.
func handleOpError(c *gin.Context, err error, msg string) {
	switch service.Classify(err) {
	case service.KindNetwork, service.KindDecode:
		ErrorResponse(c, http.StatusBadGateway, msg)
	default:
		HandleServiceError(c, err)
	}
}
