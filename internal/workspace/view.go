package workspace

import (
	"time"

	"colab-review-server/internal/domain"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

const (
	MsgOrganizationUnresolved = "Could not determine your organization"
	MsgNotSignedIn            = "You must be signed in to submit a revision"
	MsgSubmitFailed           = "Failed to submit revision"
	MsgSubmitSucceeded        = "Revision submitted successfully!"
	MsgInvalidStatus          = "Invalid revision status"
	MsgUpdateFailed           = "Failed to update document"
	MsgDocumentSaved          = "Document saved"
	MsgCreateFailed           = "Failed to create document"
	MsgListFailed             = "Failed to load documents"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// View is a point-in-time copy of everything a client renders.
type View struct {
	Organization string           `json:"organization"`
	Documents    []DocumentItem   `json:"documents"`
	Selected     *domain.Document `json:"selected,omitempty"`
	Editor       EditorView       `json:"editor"`
	RevisionForm RevisionFormView `json:"revision_form"`
	History      []HistoryEntry   `json:"history"`
}

type DocumentItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Selected bool   `json:"selected"`
}

type EditorView struct {
	Editing bool   `json:"editing"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type RevisionFormView struct {
	Status     domain.RevisionStatus `json:"status"`
	Comments   string                `json:"comments"`
	Submitting bool                  `json:"submitting"`
}

type HistoryEntry struct {
	ID          string                `json:"id"`
	Status      domain.RevisionStatus `json:"status"`
	StatusLabel string                `json:"status_label"`
	Comments    string                `json:"comments"`
	ReviewerID  string                `json:"reviewer_id"`
	AuthorName  string                `json:"author_name"`
	Initial     string                `json:"initial"`
	CreatedAt   time.Time             `json:"created_at"`
	IsNew       bool                  `json:"is_new"`
}

func (w *Workspace) viewLocked() *View {
	view := &View{
		Organization: w.orgID,
		Documents:    make([]DocumentItem, 0, len(w.documents)),
		Editor: EditorView{
			Editing: w.editing,
			Title:   w.title,
			Content: w.content,
		},
		RevisionForm: RevisionFormView{
			Status:     w.status,
			Comments:   w.comments,
			Submitting: w.submitting,
		},
		History: make([]HistoryEntry, 0, len(w.history)),
	}

	for _, doc := range w.documents {
		view.Documents = append(view.Documents, DocumentItem{
			ID:       doc.ID,
			Title:    doc.Title,
			Selected: w.selected != nil && w.selected.ID == doc.ID,
		})
	}

	if w.selected != nil {
		doc := *w.selected
		view.Selected = &doc
	}

	for _, rev := range w.history {
		name := w.names[rev.ReviewerID]
		if name == "" {
			name = "Unknown User"
		}
		view.History = append(view.History, HistoryEntry{
			ID:          rev.ID,
			Status:      rev.Status,
			StatusLabel: rev.Status.Label(),
			Comments:    rev.Comments,
			ReviewerID:  rev.ReviewerID,
			AuthorName:  name,
			Initial:     domain.Initial(name),
			CreatedAt:   rev.CreatedAt,
			IsNew:       w.newIDs[rev.ID],
		})
	}

	return view
}
