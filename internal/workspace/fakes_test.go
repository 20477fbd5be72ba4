package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/realtime"
)

var errStoreDown = errors.New("store unreachable")

type resolverFunc func(ctx context.Context, user *domain.User) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, user *domain.User) (string, error) {
	return f(ctx, user)
}

func staticOrg(orgID string) resolverFunc {
	return func(ctx context.Context, user *domain.User) (string, error) {
		return orgID, nil
	}
}

type fakeDocuments struct {
	mu        sync.Mutex
	docs      []*domain.Document
	clock     time.Time
	nextID    int
	updateErr error
	createErr error

	block   chan struct{}
	started chan struct{}
}

func (f *fakeDocuments) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeDocuments) add(orgID, title, content string) *domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := f.tick()
	doc := &domain.Document{
		ID:        fmt.Sprintf("doc-%d", f.nextID),
		Title:     title,
		Content:   content,
		OrgID:     orgID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.docs = append(f.docs, doc)
	return doc
}

func (f *fakeDocuments) List(ctx context.Context, orgID string) ([]*domain.Document, error) {
	f.mu.Lock()
	var out []*domain.Document
	for _, d := range f.docs {
		if d.OrgID == orgID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	block, started := f.block, f.started
	f.block, f.started = nil, nil
	f.mu.Unlock()

	if block != nil {
		close(started)
		<-block
	}
	return out, nil
}

func (f *fakeDocuments) Create(ctx context.Context, orgID, title, content string) (*domain.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.add(orgID, title, content), nil
}

func (f *fakeDocuments) Update(ctx context.Context, orgID, id, title, content string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, d := range f.docs {
		if d.ID == id && d.OrgID == orgID {
			d.Title = title
			d.Content = content
			d.UpdatedAt = f.tick()
			cp := *d
			return &cp, nil
		}
	}
	return nil, errors.New("document not found")
}

func (f *fakeDocuments) get(id string) domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id {
			return *d
		}
	}
	return domain.Document{}
}

type fakeRevisions struct {
	mu        sync.Mutex
	revisions []*domain.Revision
	names     map[string]string
	clock     time.Time
	nextID    int
	submitErr error
}

func newFakeRevisions() *fakeRevisions {
	return &fakeRevisions{names: map[string]string{"u1": "ada lovelace"}}
}

func (f *fakeRevisions) add(documentID, reviewerID string, status domain.RevisionStatus, comments string) *domain.Revision {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	rev := &domain.Revision{
		ID:         fmt.Sprintf("rev-%d", f.nextID),
		DocumentID: documentID,
		Status:     status,
		ReviewerID: reviewerID,
		Comments:   comments,
		CreatedAt:  f.clock,
	}
	f.revisions = append(f.revisions, rev)
	return rev
}

func (f *fakeRevisions) Submit(ctx context.Context, user *domain.User, documentID string, status domain.RevisionStatus, comments string) (*domain.Revision, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.add(documentID, user.ID, status, comments), nil
}

func (f *fakeRevisions) History(ctx context.Context, documentID string, viewer *domain.User) (*domain.RevisionHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Revision
	for _, r := range f.revisions {
		if r.DocumentID == documentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	names := make(map[string]string)
	for _, r := range out {
		names[r.ReviewerID] = f.names[r.ReviewerID]
	}
	return &domain.RevisionHistory{Revisions: out, Names: names}, nil
}

func (f *fakeRevisions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.revisions)
}

type recorder struct {
	mu      sync.Mutex
	views   []*View
	notices []Notice
}

func (r *recorder) PublishState(view *View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
}

func (r *recorder) PublishNotice(notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recorder) lastNotice() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) active() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every pending timer as if its duration had elapsed.
func (c *fakeClock) fire() {
	for _, t := range c.active() {
		t.stopped = true
		t.f()
	}
}

type harness struct {
	ws        *Workspace
	docs      *fakeDocuments
	revisions *fakeRevisions
	hub       *realtime.Hub
	rec       *recorder
	clock     *fakeClock
	user      *domain.User
}

func newHarness(resolver OrganizationResolver) *harness {
	h := &harness{
		docs:      &fakeDocuments{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		revisions: newFakeRevisions(),
		hub:       realtime.NewHub(nil),
		rec:       &recorder{},
		clock:     &fakeClock{},
		user:      &domain.User{ID: "u1", Email: "ada@example.com"},
	}
	sess := &domain.Session{User: h.user, AccessToken: "token"}
	h.ws = New(sess, resolver, h.docs, h.revisions, h.hub, h.rec, Options{
		HighlightWindow: 3 * time.Second,
		afterFunc:       h.clock.afterFunc,
	})
	return h
}
