package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/repository"

	"go.uber.org/zap"
)

// OrganizationResolver derives the organization an identity works in. The first
// source that yields an id wins: the stored profile, the identity metadata, then
// the part of the email before '@'. The last two also backfill the profile in
// the background.
type OrganizationResolver struct {
	profiles      repository.ProfileRepository
	logger        *zap.Logger
	insertTimeout time.Duration
	wg            sync.WaitGroup
}

func NewOrganizationResolver(profiles repository.ProfileRepository, logger *zap.Logger) *OrganizationResolver {
	return &OrganizationResolver{
		profiles:      profiles,
		logger:        logger,
		insertTimeout: 10 * time.Second,
	}
}

// Resolve returns the organization id for user. A profile lookup that fails
// for any reason other than "not found" is returned as an error rather than
// falling through to the fallbacks.
func (r *OrganizationResolver) Resolve(ctx context.Context, user *domain.User) (string, error) {
	if user == nil {
		return "", ErrNotSignedIn
	}

	profile, err := r.profiles.FindByID(ctx, user.ID)
	if err == nil {
		return profile.OrgID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to look up profile: %w", err)
	}

	if orgID := user.Metadata.OrgID; orgID != "" {
		r.logger.Debug("organization from metadata", zap.String("user_id", user.ID), zap.String("org_id", orgID))
		r.backfill(ctx, &domain.Profile{ID: user.ID, FullName: user.Metadata.FullName, OrgID: orgID})
		return orgID, nil
	}

	orgID := EmailOrganization(user.Email)
	if orgID == "" {
		return "", ErrOrganizationUnresolved
	}

	r.logger.Debug("organization from email prefix", zap.String("user_id", user.ID), zap.String("org_id", orgID))
	r.backfill(ctx, &domain.Profile{ID: user.ID, FullName: user.Email, OrgID: orgID})
	return orgID, nil
}

func (r *OrganizationResolver) backfill(ctx context.Context, profile *domain.Profile) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.insertTimeout)
		defer cancel()

		if err := r.profiles.Create(insertCtx, profile); err != nil {
			r.logger.Error("failed to create profile",
				zap.String("user_id", profile.ID), zap.String("org_id", profile.OrgID), zap.Error(err))
		}
	}()
}

// Wait blocks until every background profile insert has finished.
func (r *OrganizationResolver) Wait() {
	r.wg.Wait()
}

// EmailOrganization is the substring of email before its first '@', or the
// whole string when there is none.
func EmailOrganization(email string) string {
	prefix, _, _ := strings.Cut(email, "@")
	return strings.TrimSpace(prefix)
}
