package handler

import (
	"errors"
	"net/http"

	"colab-review-server/internal/service"
	"colab-review-server/pkg/response"

	"go.uber.org/zap"
)

// writeServiceError maps service sentinels to status codes. Anything else is
// logged and reported as fallback with a 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrNotSignedIn):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrOrgRequired),
		errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrOrganizationUnresolved):
		response.UnprocessableEntity(w, err.Error())
	default:
		logger.Error(fallback, zap.Error(err))
		response.InternalError(w, fallback)
	}
}
