package workspace

import (
	"context"
	"errors"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/realtime"
	"colab-review-server/internal/service"

	"go.uber.org/zap"
)

// ListDocuments reloads the organization's documents. A response overtaken by
// a newer request, or by an organization change, is dropped.
func (w *Workspace) ListDocuments(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	orgID := w.orgID
	if orgID == "" {
		w.mu.Unlock()
		return ErrNoOrganization
	}
	key := documentsKey(orgID)
	n := w.seq.next(key)
	w.mu.Unlock()

	docs, err := w.docs.List(ctx, orgID)

	w.mu.Lock()
	if w.closed || w.orgID != orgID || !w.seq.isLatest(key, n) {
		w.mu.Unlock()
		return nil
	}
	if err != nil {
		w.logger.Error("failed to list documents", zap.String("org_id", orgID), zap.Error(err))
		w.notifyLocked(NoticeError, MsgListFailed)
		w.mu.Unlock()
		return err
	}

	w.documents = docs
	var selectedID string
	switch {
	case w.selected == nil && len(docs) > 0:
		w.selectLocked(docs[0])
		selectedID = docs[0].ID
	case w.selected != nil:
		if current := findDocument(docs, w.selected.ID); current != nil {
			w.selected = current
			if !w.editing {
				w.title = current.Title
				w.content = current.Content
			}
		} else {
			w.logger.Debug("selected document missing from list", zap.String("document_id", w.selected.ID))
		}
	}
	w.publishLocked()
	w.mu.Unlock()

	if selectedID != "" {
		return w.watchRevisions(ctx, selectedID)
	}
	return nil
}

// Select makes id the selected document, resets the edit buffers to it and
// leaves edit mode.
func (w *Workspace) Select(ctx context.Context, id string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	doc := findDocument(w.documents, id)
	if doc == nil {
		w.mu.Unlock()
		return ErrUnknownDocument
	}
	w.selectLocked(doc)
	w.publishLocked()
	w.mu.Unlock()

	return w.watchRevisions(ctx, id)
}

func (w *Workspace) selectLocked(doc *domain.Document) {
	changed := w.selected == nil || w.selected.ID != doc.ID

	w.selected = doc
	w.title = doc.Title
	w.content = doc.Content
	w.editing = false

	if changed {
		w.history = nil
		w.names = nil
		w.clearHighlightLocked()
	}
}

func (w *Workspace) BeginEdit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == nil {
		return ErrNoSelection
	}
	w.editing = true
	w.publishLocked()
	return nil
}

// SetBuffers replaces the edit buffers given. A nil argument leaves that
// buffer untouched.
func (w *Workspace) SetBuffers(title, content *string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == nil {
		return ErrNoSelection
	}
	if title != nil {
		w.title = *title
	}
	if content != nil {
		w.content = *content
	}
	w.publishLocked()
	return nil
}

// CancelEdit leaves edit mode and restores the buffers from the selected
// document.
func (w *Workspace) CancelEdit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == nil {
		return ErrNoSelection
	}
	w.editing = false
	w.title = w.selected.Title
	w.content = w.selected.Content
	w.publishLocked()
	return nil
}

// Save writes the edit buffers to the selected document. On failure edit mode
// and the buffers are kept.
func (w *Workspace) Save(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.selected == nil {
		w.mu.Unlock()
		return ErrNoSelection
	}
	orgID, id, title, content := w.orgID, w.selected.ID, w.title, w.content
	w.mu.Unlock()

	_, err := w.docs.Update(ctx, orgID, id, title, content)

	w.mu.Lock()
	if err != nil {
		w.logger.Error("failed to update document", zap.String("document_id", id), zap.Error(err))
		w.notifyLocked(NoticeError, MsgUpdateFailed)
		w.mu.Unlock()
		return err
	}
	if w.selected != nil && w.selected.ID == id {
		w.editing = false
	}
	w.notifyLocked(NoticeSuccess, MsgDocumentSaved)
	w.publishLocked()
	w.mu.Unlock()

	return w.ListDocuments(ctx)
}

// CreateDocument inserts a placeholder document into the organization and
// reloads the list.
func (w *Workspace) CreateDocument(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	orgID := w.orgID
	if orgID == "" || !w.session.Active() {
		w.mu.Unlock()
		return ErrNoOrganization
	}
	title := service.NewDocumentTitle(len(w.documents))
	w.mu.Unlock()

	doc, err := w.docs.Create(ctx, orgID, title, service.NewDocumentContent)
	if err != nil {
		w.logger.Error("failed to create document", zap.String("org_id", orgID), zap.Error(err))
		w.mu.Lock()
		w.notifyLocked(NoticeError, MsgCreateFailed)
		w.mu.Unlock()
		return err
	}

	w.logger.Info("document created", zap.String("document_id", doc.ID), zap.String("org_id", orgID))
	return w.ListDocuments(ctx)
}

// watchRevisions moves the revision subscription to documentID and loads its
// history. It does nothing once documentID is no longer selected.
func (w *Workspace) watchRevisions(ctx context.Context, documentID string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.selected == nil || w.selected.ID != documentID {
		w.mu.Unlock()
		return nil
	}
	if w.revSub != nil {
		if w.revSub.Filter().Value == documentID {
			w.mu.Unlock()
			return w.RefreshHistory(ctx)
		}
		w.revSub.Close()
	}
	w.revSub = w.changes.Subscribe(realtime.Filter{
		Kind:  domain.KindRevisions,
		Field: "document_id",
		Value: documentID,
	})
	w.followLocked(w.revSub, w.RefreshHistory)
	w.mu.Unlock()

	return w.RefreshHistory(ctx)
}

func findDocument(docs []*domain.Document, id string) *domain.Document {
	for _, doc := range docs {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
