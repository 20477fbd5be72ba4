package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"colab-review-server/internal/domain"
	"colab-review-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type DocumentService interface {
	List(ctx context.Context, orgID string) ([]*domain.Document, error)
	Get(ctx context.Context, orgID, id string) (*domain.Document, error)
	Create(ctx context.Context, orgID, title, content string) (*domain.Document, error)
	CreateDefault(ctx context.Context, orgID string, existing int) (*domain.Document, error)
	Update(ctx context.Context, orgID, id, title, content string) (*domain.Document, error)
}

type DocumentHandler struct {
	documents DocumentService
	resolver  OrganizationResolver
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewDocumentHandler(documents DocumentService, resolver OrganizationResolver, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		resolver:  resolver,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationOf(w, r, h.resolver, h.logger)
	if !ok {
		return
	}

	docs, err := h.documents.List(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	response.Success(w, docs)
}

// Create inserts a document. Without a title it gets the next placeholder
// title and content.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDocumentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	orgID, ok := organizationOf(w, r, h.resolver, h.logger)
	if !ok {
		return
	}

	var (
		doc *domain.Document
		err error
	)
	if req.Title == "" {
		var existing []*domain.Document
		existing, err = h.documents.List(r.Context(), orgID)
		if err == nil {
			doc, err = h.documents.CreateDefault(r.Context(), orgID, len(existing))
		}
	} else {
		doc, err = h.documents.Create(r.Context(), orgID, req.Title, req.Content)
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create document")
		return
	}

	response.Created(w, doc)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationOf(w, r, h.resolver, h.logger)
	if !ok {
		return
	}

	doc, err := h.documents.Get(r.Context(), orgID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load document")
		return
	}

	response.Success(w, doc)
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	orgID, ok := organizationOf(w, r, h.resolver, h.logger)
	if !ok {
		return
	}

	doc, err := h.documents.Update(r.Context(), orgID, mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update document")
		return
	}

	response.Success(w, doc)
}
