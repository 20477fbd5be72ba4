package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"colab-review-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	FindByID(ctx context.Context, id string) (*domain.Document, error)
	// ListByOrg returns the organization's documents, newest first.
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Document, error)
	// Update writes title, content and updated_at. The organization is kept.
	Update(ctx context.Context, doc *domain.Document) error
}

type documentRepository struct {
	client *kivik.Client
	dbName string
}

func NewDocumentRepository(client *kivik.Client, dbName string) DocumentRepository {
	return &documentRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.Document) error {
	db := r.client.DB(r.dbName)

	_, err := db.Put(ctx, docID("document", doc.ID), doc)
	return translate(err, "failed to create document")
}

func (r *documentRepository) FindByID(ctx context.Context, id string) (*domain.Document, error) {
	db := r.client.DB(r.dbName)

	var doc domain.Document
	if err := db.Get(ctx, docID("document", id)).ScanDoc(&doc); err != nil {
		return nil, translate(err, "failed to find document")
	}

	return &doc, nil
}

func (r *documentRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Document, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"_id":    kindRange("document"),
			"org_id": orgID,
		},
		"limit": queryLimit,
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	SortDocumentsNewestFirst(docs)
	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *domain.Document) error {
	db := r.client.DB(r.dbName)
	id := docID("document", doc.ID)

	var existingDoc map[string]interface{}
	if err := db.Get(ctx, id).ScanDoc(&existingDoc); err != nil {
		return translate(err, "failed to fetch existing document for update")
	}

	existingDoc["title"] = doc.Title
	existingDoc["content"] = doc.Content
	existingDoc["updated_at"] = doc.UpdatedAt.UTC().Format(time.RFC3339Nano)

	if _, err := db.Put(ctx, id, existingDoc); err != nil {
		return translate(err, "failed to update document")
	}

	return nil
}

// SortDocumentsNewestFirst orders by created_at descending, ties by id.
func SortDocumentsNewestFirst(docs []*domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
}
