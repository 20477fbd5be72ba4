package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/middleware"
	"colab-review-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RevisionService interface {
	Submit(ctx context.Context, user *domain.User, documentID string, status domain.RevisionStatus, comments string) (*domain.Revision, error)
	History(ctx context.Context, documentID string, viewer *domain.User) (*domain.RevisionHistory, error)
}

type RevisionHandler struct {
	revisions RevisionService
	documents DocumentService
	resolver  OrganizationResolver
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewRevisionHandler(revisions RevisionService, documents DocumentService, resolver OrganizationResolver, logger *zap.Logger) *RevisionHandler {
	return &RevisionHandler{
		revisions: revisions,
		documents: documents,
		resolver:  resolver,
		validate:  validator.New(),
		logger:    logger,
	}
}

// documentInScope checks that the routed document belongs to the caller's
// organization and returns its id.
func (h *RevisionHandler) documentInScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	orgID, ok := organizationOf(w, r, h.resolver, h.logger)
	if !ok {
		return "", false
	}

	doc, err := h.documents.Get(r.Context(), orgID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load document")
		return "", false
	}
	return doc.ID, true
}

func (h *RevisionHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.documentInScope(w, r)
	if !ok {
		return
	}

	history, err := h.revisions.History(r.Context(), documentID, middleware.GetSession(r).User)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load revisions")
		return
	}
	if history.Revisions == nil {
		history.Revisions = []*domain.Revision{}
	}

	response.Success(w, history)
}

func (h *RevisionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	documentID, ok := h.documentInScope(w, r)
	if !ok {
		return
	}

	rev, err := h.revisions.Submit(r.Context(), middleware.GetSession(r).User, documentID, req.Status, req.Comments)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to submit revision")
		return
	}

	response.Created(w, rev)
}
