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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	FallbackSelfName    = "You"
	FallbackUnknownName = "Unknown User"
)

type RevisionService struct {
	revisions repository.RevisionRepository
	profiles  repository.ProfileRepository
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.RWMutex
	names map[string]string
}

func NewRevisionService(
	revisions repository.RevisionRepository,
	profiles repository.ProfileRepository,
	logger *zap.Logger,
) *RevisionService {
	return &RevisionService{
		revisions: revisions,
		profiles:  profiles,
		logger:    logger,
		now:       time.Now,
		names:     make(map[string]string),
	}
}

// SubmissionOrganization resolves the organization stamped on a new revision:
// the profile's, else the identity metadata's. Unlike OrganizationResolver it
// never derives one from the email address.
func (s *RevisionService) SubmissionOrganization(ctx context.Context, user *domain.User) (string, error) {
	profile, err := s.profiles.FindByID(ctx, user.ID)
	if err == nil && profile.OrgID != "" {
		return profile.OrgID, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to look up profile: %w", err)
	}

	if orgID := user.Metadata.OrgID; orgID != "" {
		return orgID, nil
	}
	return "", ErrOrganizationUnresolved
}

// Submit appends a revision authored by user. An empty status means pending.
func (s *RevisionService) Submit(
	ctx context.Context,
	user *domain.User,
	documentID string,
	status domain.RevisionStatus,
	comments string,
) (*domain.Revision, error) {
	if user == nil || user.ID == "" {
		return nil, ErrNotSignedIn
	}
	if status == "" {
		status = domain.RevisionStatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	orgID, err := s.SubmissionOrganization(ctx, user)
	if err != nil {
		return nil, err
	}

	rev := &domain.Revision{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		OrgID:      orgID,
		Status:     status,
		ReviewerID: user.ID,
		Comments:   comments,
		CreatedAt:  s.now(),
	}

	if err := s.revisions.Create(ctx, rev); err != nil {
		return nil, err
	}

	return rev, nil
}

// History lists a document's revisions newest first and names every reviewer
// as seen by viewer.
func (s *RevisionService) History(ctx context.Context, documentID string, viewer *domain.User) (*domain.RevisionHistory, error) {
	revisions, err := s.revisions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &domain.RevisionHistory{
		Revisions: revisions,
		Names:     s.reviewerNames(ctx, revisions, viewer),
	}, nil
}

func (s *RevisionService) reviewerNames(ctx context.Context, revisions []*domain.Revision, viewer *domain.User) map[string]string {
	names := make(map[string]string)
	var missing []string

	s.mu.RLock()
	for _, rev := range revisions {
		if _, seen := names[rev.ReviewerID]; seen {
			continue
		}
		if name, ok := s.names[rev.ReviewerID]; ok {
			names[rev.ReviewerID] = name
			continue
		}
		names[rev.ReviewerID] = ""
		missing = append(missing, rev.ReviewerID)
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return names
	}

	profiles, err := s.profiles.FindByIDs(ctx, missing)
	if err != nil {
		s.logger.Warn("reviewer lookup failed", zap.Int("reviewers", len(missing)), zap.Error(err))
	}

	s.mu.Lock()
	for _, p := range profiles {
		if p.FullName == "" {
			continue
		}
		names[p.ID] = p.FullName
		s.names[p.ID] = p.FullName
	}
	s.mu.Unlock()

	for _, id := range missing {
		if names[id] == "" {
			names[id] = fallbackName(id, viewer)
		}
	}

	return names
}

func fallbackName(reviewerID string, viewer *domain.User) string {
	if viewer == nil || reviewerID != viewer.ID {
		return FallbackUnknownName
	}
	if name := strings.TrimSpace(viewer.Metadata.FullName); name != "" {
		return name
	}
	if viewer.Email != "" {
		return viewer.Email
	}
	return FallbackSelfName
}

// InvalidateName drops the cached display name of an identity.
func (s *RevisionService) InvalidateName(userID string) {
	s.mu.Lock()
	delete(s.names, userID)
	s.mu.Unlock()
}

// FollowProfileChanges invalidates cached names as profile changes arrive,
// until changes is closed.
func (s *RevisionService) FollowProfileChanges(changes <-chan domain.Change) {
	for change := range changes {
		if _, id, ok := strings.Cut(change.DocID, ":"); ok {
			s.InvalidateName(id)
		}
	}
}
