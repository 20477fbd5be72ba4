package handler

import (
	"context"
	"net/http"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/middleware"
	"colab-review-server/pkg/response"

	"go.uber.org/zap"
)

type OrganizationResolver interface {
	Resolve(ctx context.Context, user *domain.User) (string, error)
}

type OrganizationHandler struct {
	resolver OrganizationResolver
	logger   *zap.Logger
}

func NewOrganizationHandler(resolver OrganizationResolver, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		resolver: resolver,
		logger:   logger,
	}
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationOf(w, r, h.resolver, h.logger)
	if !ok {
		return
	}

	response.Success(w, map[string]string{"org_id": orgID})
}

// organizationOf resolves the caller's organization, writing the error
// response itself when it cannot.
func organizationOf(w http.ResponseWriter, r *http.Request, resolver OrganizationResolver, logger *zap.Logger) (string, bool) {
	session := middleware.GetSession(r)
	if !session.Active() {
		response.Unauthorized(w, "Unauthorized")
		return "", false
	}

	orgID, err := resolver.Resolve(r.Context(), session.User)
	if err != nil {
		writeServiceError(w, logger, err, "Failed to resolve organization")
		return "", false
	}
	return orgID, true
}
