package domain

// RecordKind names a record collection in the store.
type RecordKind string

const (
	KindProfiles  RecordKind = "profiles"
	KindDocuments RecordKind = "documents"
	KindRevisions RecordKind = "revisions"
)

// Change signals that records of Kind matching a subscription's filter were
// inserted, updated or deleted. It carries no diff.
type Change struct {
	Kind  RecordKind `json:"kind"`
	DocID string     `json:"-"`
}
