package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/service"
)

type fakeResolver struct {
	orgs map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, user *domain.User) (string, error) {
	if user == nil {
		return "", service.ErrNotSignedIn
	}
	if org, ok := f.orgs[user.ID]; ok {
		return org, nil
	}
	return "", service.ErrOrganizationUnresolved
}

type fakeDocumentService struct {
	mu    sync.Mutex
	docs  map[string]*domain.Document
	clock time.Time
	next  int
}

func newFakeDocumentService() *fakeDocumentService {
	return &fakeDocumentService{
		docs:  make(map[string]*domain.Document),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDocumentService) List(ctx context.Context, orgID string) ([]*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Document
	for _, d := range f.docs {
		if d.OrgID == orgID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDocumentService) Get(ctx context.Context, orgID, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.OrgID != orgID {
		return nil, service.ErrDocumentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocumentService) Create(ctx context.Context, orgID, title, content string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.clock = f.clock.Add(time.Second)
	d := &domain.Document{
		ID:        fmt.Sprintf("doc-%d", f.next),
		Title:     title,
		Content:   content,
		OrgID:     orgID,
		CreatedAt: f.clock,
		UpdatedAt: f.clock,
	}
	f.docs[d.ID] = d
	cp := *d
	return &cp, nil
}

func (f *fakeDocumentService) CreateDefault(ctx context.Context, orgID string, existing int) (*domain.Document, error) {
	return f.Create(ctx, orgID, service.NewDocumentTitle(existing), service.NewDocumentContent)
}

func (f *fakeDocumentService) Update(ctx context.Context, orgID, id, title, content string) (*domain.Document, error) {
	if _, err := f.Get(ctx, orgID, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	d := f.docs[id]
	d.Title, d.Content, d.UpdatedAt = title, content, f.clock
	cp := *d
	return &cp, nil
}

type fakeRevisionService struct {
	mu        sync.Mutex
	revisions []*domain.Revision
}

func (f *fakeRevisionService) Submit(ctx context.Context, user *domain.User, documentID string, status domain.RevisionStatus, comments string) (*domain.Revision, error) {
	if user == nil {
		return nil, service.ErrNotSignedIn
	}
	if status == "" {
		status = domain.RevisionStatusPending
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rev := &domain.Revision{
		ID:         fmt.Sprintf("rev-%d", len(f.revisions)+1),
		DocumentID: documentID,
		Status:     status,
		ReviewerID: user.ID,
		Comments:   comments,
		CreatedAt:  time.Now(),
	}
	f.revisions = append(f.revisions, rev)
	return rev, nil
}

func (f *fakeRevisionService) History(ctx context.Context, documentID string, viewer *domain.User) (*domain.RevisionHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := &domain.RevisionHistory{Names: make(map[string]string)}
	for i := len(f.revisions) - 1; i >= 0; i-- {
		if rev := f.revisions[i]; rev.DocumentID == documentID {
			history.Revisions = append(history.Revisions, rev)
			history.Names[rev.ReviewerID] = "Ada"
		}
	}
	return history, nil
}

func (f *fakeRevisionService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.revisions)
}
