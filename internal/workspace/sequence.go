package workspace

// sequencer numbers fetches per scope key so that only the response to the
// most recent request for a key is applied. It is guarded by the workspace
// mutex.
type sequencer struct {
	latest map[string]uint64
}

func newSequencer() *sequencer {
	return &sequencer{latest: make(map[string]uint64)}
}

func (s *sequencer) next(key string) uint64 {
	s.latest[key]++
	return s.latest[key]
}

func (s *sequencer) isLatest(key string, n uint64) bool {
	return s.latest[key] == n
}

func documentsKey(orgID string) string {
	return "documents:" + orgID
}

func revisionsKey(documentID string) string {
	return "revisions:" + documentID
}
