package workspace

import (
	"context"
	"errors"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/service"

	"go.uber.org/zap"
)

func (w *Workspace) SetRevisionStatus(status domain.RevisionStatus) error {
	if !status.Valid() {
		return service.ErrInvalidStatus
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.publishLocked()
	return nil
}

func (w *Workspace) SetRevisionComments(comments string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.comments = comments
	w.publishLocked()
}

// SubmitRevision records the form's verdict on the selected document. On
// success the comments are cleared and the history is re-fetched; on failure
// the form is left as it was.
func (w *Workspace) SubmitRevision(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if !w.session.Active() {
		w.notifyLocked(NoticeError, MsgNotSignedIn)
		w.mu.Unlock()
		return service.ErrNotSignedIn
	}
	if w.selected == nil {
		w.mu.Unlock()
		return ErrNoSelection
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInProgress
	}
	documentID, status, comments := w.selected.ID, w.status, w.comments
	w.submitting = true
	w.publishLocked()
	w.mu.Unlock()

	rev, err := w.revisions.Submit(ctx, w.session.User, documentID, status, comments)

	w.mu.Lock()
	w.submitting = false
	if err != nil {
		w.logger.Error("failed to submit revision", zap.String("document_id", documentID), zap.Error(err))
		w.notifyLocked(NoticeError, submitFailureMessage(err))
		w.publishLocked()
		w.mu.Unlock()
		return err
	}
	w.comments = ""
	w.notifyLocked(NoticeSuccess, MsgSubmitSucceeded)
	w.publishLocked()
	w.mu.Unlock()

	w.logger.Info("revision submitted",
		zap.String("revision_id", rev.ID), zap.String("document_id", documentID), zap.String("status", string(status)))

	return w.RefreshHistory(ctx)
}

func submitFailureMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotSignedIn):
		return MsgNotSignedIn
	case errors.Is(err, service.ErrOrganizationUnresolved):
		return MsgOrganizationUnresolved
	case errors.Is(err, service.ErrInvalidStatus):
		return MsgInvalidStatus
	default:
		return MsgSubmitFailed
	}
}

// RefreshHistory re-fetches the selected document's revisions. Revisions absent
// from the previous fetch are flagged new until the highlight window elapses.
func (w *Workspace) RefreshHistory(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.selected == nil {
		w.mu.Unlock()
		return ErrNoSelection
	}
	documentID := w.selected.ID
	key := revisionsKey(documentID)
	n := w.seq.next(key)
	var viewer *domain.User
	if w.session.Active() {
		viewer = w.session.User
	}
	w.mu.Unlock()

	history, err := w.revisions.History(ctx, documentID, viewer)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.selected == nil || w.selected.ID != documentID || !w.seq.isLatest(key, n) {
		return nil
	}
	if err != nil {
		w.logger.Error("failed to fetch revisions", zap.String("document_id", documentID), zap.Error(err))
		return err
	}

	previous := make(map[string]bool, len(w.history))
	for _, rev := range w.history {
		previous[rev.ID] = true
	}
	fresh := make(map[string]bool)
	for _, rev := range history.Revisions {
		if !previous[rev.ID] {
			fresh[rev.ID] = true
		}
	}

	w.history = history.Revisions
	w.names = history.Names
	w.setHighlightLocked(fresh)
	w.publishLocked()
	return nil
}

// setHighlightLocked replaces the new-revision set and restarts the single
// highlight timer. An empty set needs no timer.
func (w *Workspace) setHighlightLocked(ids map[string]bool) {
	w.clearHighlightLocked()
	if len(ids) == 0 {
		return
	}

	w.newIDs = ids
	gen := w.highlightGen
	w.highlight = w.afterFunc(w.highlightWindow, func() {
		w.expireHighlight(gen)
	})
}

func (w *Workspace) clearHighlightLocked() {
	if w.highlight != nil {
		w.highlight.Stop()
		w.highlight = nil
	}
	w.highlightGen++
	w.newIDs = make(map[string]bool)
}

func (w *Workspace) expireHighlight(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || gen != w.highlightGen {
		return
	}
	w.highlight = nil
	w.newIDs = make(map[string]bool)
	w.publishLocked()
}
