package repository

import (
	"context"
	"fmt"

	"colab-review-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type ProfileRepository interface {
	// Create fails with ErrConflict when the identity already has a profile.
	Create(ctx context.Context, profile *domain.Profile) error
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	// FindByIDs returns the profiles that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error)
}

type profileRepository struct {
	client *kivik.Client
	dbName string
}

func NewProfileRepository(client *kivik.Client, dbName string) ProfileRepository {
	return &profileRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	db := r.client.DB(r.dbName)

	_, err := db.Put(ctx, docID("profile", profile.ID), profile)
	return translate(err, "failed to create profile")
}

func (r *profileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	db := r.client.DB(r.dbName)

	var profile domain.Profile
	if err := db.Get(ctx, docID("profile", id)).ScanDoc(&profile); err != nil {
		return nil, translate(err, "failed to find profile")
	}

	return &profile, nil
}

func (r *profileRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docID("profile", id)
	}

	db := r.client.DB(r.dbName)
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"_id": map[string]interface{}{"$in": keys},
		},
		"limit": len(keys),
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.ScanDoc(&profile); err != nil {
			continue
		}
		profiles = append(profiles, &profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to look up profiles: %w", err)
	}

	return profiles, nil
}
