package domain

import "time"

type RevisionStatus string

const (
	RevisionStatusPending   RevisionStatus = "pending"
	RevisionStatusReviewing RevisionStatus = "reviewing"
	RevisionStatusApproved  RevisionStatus = "approved"
	RevisionStatusRejected  RevisionStatus = "rejected"
)

var revisionStatusLabels = map[RevisionStatus]string{
	RevisionStatusPending:   "Pending",
	RevisionStatusReviewing: "In Review",
	RevisionStatusApproved:  "Approved",
	RevisionStatusRejected:  "Rejected",
}

func (s RevisionStatus) Valid() bool {
	_, ok := revisionStatusLabels[s]
	return ok
}

func (s RevisionStatus) Label() string {
	if label, ok := revisionStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Revision is an append-only review verdict on a document.
type Revision struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	OrgID      string         `json:"org_id"`
	Status     RevisionStatus `json:"status"`
	ReviewerID string         `json:"reviewer_id"`
	Comments   string         `json:"comments"`
	CreatedAt  time.Time      `json:"created_at"`
}

type SubmitRevisionRequest struct {
	Status   RevisionStatus `json:"status" validate:"omitempty,oneof=pending reviewing approved rejected"`
	Comments string         `json:"comments"`
}

// RevisionHistory is a fetch of a document's revisions with resolved author names.
type RevisionHistory struct {
	Revisions []*Revision       `json:"revisions"`
	Names     map[string]string `json:"names"`
}
