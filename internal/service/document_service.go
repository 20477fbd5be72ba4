package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/repository"

	"github.com/google/uuid"
)

const NewDocumentContent = "Document content goes here..."

// NewDocumentTitle names the document created after existing ones.
func NewDocumentTitle(existing int) string {
	return fmt.Sprintf("New Document %d", existing+1)
}

type DocumentService struct {
	repo repository.DocumentRepository
	now  func() time.Time
}

func NewDocumentService(repo repository.DocumentRepository) *DocumentService {
	return &DocumentService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *DocumentService) List(ctx context.Context, orgID string) ([]*domain.Document, error) {
	return s.repo.ListByOrg(ctx, orgID)
}

// Get returns the document only when it belongs to orgID.
func (s *DocumentService) Get(ctx context.Context, orgID, id string) (*domain.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	if doc.OrgID != orgID {
		return nil, ErrDocumentNotFound
	}

	return doc, nil
}

// Create inserts a document. Titles are not checked for uniqueness.
func (s *DocumentService) Create(ctx context.Context, orgID, title, content string) (*domain.Document, error) {
	now := s.now()
	doc := &domain.Document{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		OrgID:     orgID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// CreateDefault inserts the placeholder document that follows existing ones.
func (s *DocumentService) CreateDefault(ctx context.Context, orgID string, existing int) (*domain.Document, error) {
	return s.Create(ctx, orgID, NewDocumentTitle(existing), NewDocumentContent)
}

// Update replaces title and content. updated_at always moves forward, even when
// the clock has not ticked since the last write.
func (s *DocumentService) Update(ctx context.Context, orgID, id, title, content string) (*domain.Document, error) {
	doc, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !now.After(doc.UpdatedAt) {
		now = doc.UpdatedAt.Add(time.Microsecond)
	}

	doc.Title = title
	doc.Content = content
	doc.UpdatedAt = now

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}
