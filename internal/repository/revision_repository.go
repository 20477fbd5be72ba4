package repository

import (
	"context"
	"fmt"
	"sort"

	"colab-review-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// RevisionRepository is append-only: revisions are never updated or deleted.
type RevisionRepository interface {
	Create(ctx context.Context, rev *domain.Revision) error
	// ListByDocument returns the document's revisions, newest first.
	ListByDocument(ctx context.Context, documentID string) ([]*domain.Revision, error)
}

type revisionRepository struct {
	client *kivik.Client
	dbName string
}

func NewRevisionRepository(client *kivik.Client, dbName string) RevisionRepository {
	return &revisionRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *revisionRepository) Create(ctx context.Context, rev *domain.Revision) error {
	db := r.client.DB(r.dbName)

	_, err := db.Put(ctx, docID("revision", rev.ID), rev)
	return translate(err, "failed to save revision")
}

func (r *revisionRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Revision, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"_id":         kindRange("revision"),
			"document_id": documentID,
		},
		"limit": queryLimit,
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	var revisions []*domain.Revision
	for rows.Next() {
		var rev domain.Revision
		if err := rows.ScanDoc(&rev); err != nil {
			continue
		}
		revisions = append(revisions, &rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}

	SortRevisionsNewestFirst(revisions)
	return revisions, nil
}

// SortRevisionsNewestFirst orders by created_at descending, ties by id.
func SortRevisionsNewestFirst(revisions []*domain.Revision) {
	sort.SliceStable(revisions, func(i, j int) bool {
		if !revisions[i].CreatedAt.Equal(revisions[j].CreatedAt) {
			return revisions[i].CreatedAt.After(revisions[j].CreatedAt)
		}
		return revisions[i].ID > revisions[j].ID
	})
}
