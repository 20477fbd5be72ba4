// Package workspace holds the live state of one signed-in connection: the
// resolved organization, the document board, the revision form and the
// revision history of the selected document.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/realtime"

	"go.uber.org/zap"
)

const DefaultHighlightWindow = 3 * time.Second

var (
	ErrClosed           = errors.New("workspace closed")
	ErrNoOrganization   = errors.New("organization not resolved")
	ErrNoSelection      = errors.New("no document selected")
	ErrUnknownDocument  = errors.New("document not in list")
	ErrSubmitInProgress = errors.New("revision submission already in progress")
)

type OrganizationResolver interface {
	Resolve(ctx context.Context, user *domain.User) (string, error)
}

type DocumentStore interface {
	List(ctx context.Context, orgID string) ([]*domain.Document, error)
	Create(ctx context.Context, orgID, title, content string) (*domain.Document, error)
	Update(ctx context.Context, orgID, id, title, content string) (*domain.Document, error)
}

type RevisionStore interface {
	Submit(ctx context.Context, user *domain.User, documentID string, status domain.RevisionStatus, comments string) (*domain.Revision, error)
	History(ctx context.Context, documentID string, viewer *domain.User) (*domain.RevisionHistory, error)
}

// ChangeSource hands out change subscriptions. *realtime.Hub satisfies it.
type ChangeSource interface {
	Subscribe(filter realtime.Filter) *realtime.Subscription
}

// Publisher receives every state snapshot and notice. Calls are made with the
// workspace lock held and must not block.
type Publisher interface {
	PublishState(view *View)
	PublishNotice(notice Notice)
}

type stopper interface {
	Stop() bool
}

type Options struct {
	HighlightWindow time.Duration
	Logger          *zap.Logger

	afterFunc func(time.Duration, func()) stopper
}

type Workspace struct {
	session   *domain.Session
	resolver  OrganizationResolver
	docs      DocumentStore
	revisions RevisionStore
	changes   ChangeSource
	publisher Publisher
	logger    *zap.Logger

	highlightWindow time.Duration
	afterFunc       func(time.Duration, func()) stopper

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	seq    *sequencer

	orgID  string
	docSub *realtime.Subscription

	documents []*domain.Document
	selected  *domain.Document
	editing   bool
	title     string
	content   string

	status     domain.RevisionStatus
	comments   string
	submitting bool

	revSub       *realtime.Subscription
	history      []*domain.Revision
	names        map[string]string
	newIDs       map[string]bool
	highlight    stopper
	highlightGen uint64
}

func New(
	session *domain.Session,
	resolver OrganizationResolver,
	docs DocumentStore,
	revisions RevisionStore,
	changes ChangeSource,
	publisher Publisher,
	opts Options,
) *Workspace {
	if opts.HighlightWindow <= 0 {
		opts.HighlightWindow = DefaultHighlightWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.afterFunc == nil {
		opts.afterFunc = func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Workspace{
		session:         session,
		resolver:        resolver,
		docs:            docs,
		revisions:       revisions,
		changes:         changes,
		publisher:       publisher,
		logger:          opts.Logger.With(zap.String("user_id", session.UserID())),
		highlightWindow: opts.HighlightWindow,
		afterFunc:       opts.afterFunc,
		ctx:             ctx,
		cancel:          cancel,
		seq:             newSequencer(),
		status:          domain.RevisionStatusPending,
		newIDs:          make(map[string]bool),
	}
}

// Start resolves the organization, subscribes to its documents and loads the
// first list.
func (w *Workspace) Start(ctx context.Context) error {
	var user *domain.User
	if w.session.Active() {
		user = w.session.User
	}

	orgID, err := w.resolver.Resolve(ctx, user)
	if err != nil {
		w.logger.Error("failed to resolve organization", zap.Error(err))
		w.mu.Lock()
		w.notifyLocked(NoticeError, MsgOrganizationUnresolved)
		w.mu.Unlock()
		return err
	}

	if err := w.setOrganization(orgID); err != nil {
		return err
	}
	return w.ListDocuments(ctx)
}

func (w *Workspace) setOrganization(orgID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.orgID == orgID && w.docSub != nil {
		return nil
	}

	if w.docSub != nil {
		w.docSub.Close()
	}
	w.orgID = orgID
	w.docSub = w.changes.Subscribe(realtime.Filter{
		Kind:  domain.KindDocuments,
		Field: "org_id",
		Value: orgID,
	})
	w.followLocked(w.docSub, w.ListDocuments)

	w.logger.Info("workspace organization resolved", zap.String("org_id", orgID))
	w.publishLocked()
	return nil
}

// followLocked runs refresh for every change delivered on sub until the
// subscription is closed.
func (w *Workspace) followLocked(sub *realtime.Subscription, refresh func(context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for range sub.C() {
			if err := refresh(w.ctx); err != nil && !isCanceled(err) {
				w.logger.Debug("change-triggered refresh failed",
					zap.Stringer("filter", sub.Filter()), zap.Error(err))
			}
		}
	}()
}

// Close releases subscriptions and the highlight timer and waits for change
// listeners to exit.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.docSub != nil {
		w.docSub.Close()
	}
	if w.revSub != nil {
		w.revSub.Close()
	}
	if w.highlight != nil {
		w.highlight.Stop()
	}
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Debug("workspace closed")
}

// Organization returns the resolved organization id, empty until Start succeeds.
func (w *Workspace) Organization() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orgID
}

func (w *Workspace) Session() *domain.Session {
	return w.session
}

// Snapshot returns the current view.
func (w *Workspace) Snapshot() *View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// Publish pushes the current view to the publisher.
func (w *Workspace) Publish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.publishLocked()
}

func (w *Workspace) publishLocked() {
	if w.publisher == nil || w.closed {
		return
	}
	w.publisher.PublishState(w.viewLocked())
}

func (w *Workspace) notifyLocked(level NoticeLevel, message string) {
	if w.publisher == nil || w.closed {
		return
	}
	w.publisher.PublishNotice(Notice{Level: level, Message: message})
}
