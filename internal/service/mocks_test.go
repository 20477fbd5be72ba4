package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/repository"
	"colab-review-server/internal/session"
)

var errStoreDown = errors.New("store unreachable")

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

type mockProfileRepository struct {
	mu        sync.Mutex
	profiles  map[string]*domain.Profile
	findErr   error
	createErr error
	batches   [][]string
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{profiles: make(map[string]*domain.Profile)}
}

func (m *mockProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.profiles[profile.ID]; exists {
		return fmt.Errorf("profile %s: %w", profile.ID, repository.ErrConflict)
	}
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *mockProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("profile %s: %w", id, repository.ErrNotFound)
}

func (m *mockProfileRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), ids...))
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []*domain.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProfileRepository) get(id string) (*domain.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

type mockDocumentRepository struct {
	docs      map[string]*domain.Document
	updateErr error
}

func newMockDocumentRepository() *mockDocumentRepository {
	return &mockDocumentRepository{docs: make(map[string]*domain.Document)}
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *mockDocumentRepository) FindByID(ctx context.Context, id string) (*domain.Document, error) {
	if d, ok := m.docs[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, fmt.Errorf("document %s: %w", id, repository.ErrNotFound)
}

func (m *mockDocumentRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	for _, d := range m.docs {
		if d.OrgID == orgID {
			cp := *d
			docs = append(docs, &cp)
		}
	}
	repository.SortDocumentsNewestFirst(docs)
	return docs, nil
}

func (m *mockDocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.docs[doc.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, repository.ErrNotFound)
	}
	existing.Title = doc.Title
	existing.Content = doc.Content
	existing.UpdatedAt = doc.UpdatedAt
	return nil
}

type mockRevisionRepository struct {
	revisions []*domain.Revision
	createErr error
}

func (m *mockRevisionRepository) Create(ctx context.Context, rev *domain.Revision) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *rev
	m.revisions = append(m.revisions, &cp)
	return nil
}

func (m *mockRevisionRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Revision, error) {
	var out []*domain.Revision
	for _, r := range m.revisions {
		if r.DocumentID == documentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	repository.SortRevisionsNewestFirst(out)
	return out, nil
}

type mockSessionStore struct {
	sessions map[string]string
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]string)}
}

func (m *mockSessionStore) Save(ctx context.Context, token, userID string, expiresAt time.Time) error {
	m.sessions[token] = userID
	return nil
}

func (m *mockSessionStore) Lookup(ctx context.Context, token string) (string, error) {
	if id, ok := m.sessions[token]; ok {
		return id, nil
	}
	return "", session.ErrSessionNotFound
}

func (m *mockSessionStore) Revoke(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

type steppingClock struct {
	t time.Time
}

func (c *steppingClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}
