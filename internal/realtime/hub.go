// Package realtime fans store change notifications out to scoped subscriptions.
package realtime

import (
	"fmt"
	"sync"

	"colab-review-server/internal/domain"

	"go.uber.org/zap"
)

// Filter selects changes of one record kind whose Field equals Value. An empty
// Field matches every change of the kind.
type Filter struct {
	Kind  domain.RecordKind
	Field string
	Value string
}

func (f Filter) String() string {
	if f.Field == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s:%s=eq.%s", f.Kind, f.Field, f.Value)
}

// Record is one row of the change feed.
type Record struct {
	ID      string
	Kind    domain.RecordKind
	Fields  map[string]interface{}
	Deleted bool
}

func (f Filter) matches(rec Record) bool {
	if rec.Kind != f.Kind {
		return false
	}
	// Deletions carry no fields, so every subscriber of the kind is told.
	if f.Field == "" || rec.Deleted {
		return true
	}
	v, ok := rec.Fields[f.Field]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == f.Value
}

// Subscription delivers changes for a single filter. Its channel has room for
// one pending change: while a notification is waiting, further ones coalesce
// into it since receivers re-fetch instead of reading payloads.
type Subscription struct {
	id     uint64
	filter Filter
	ch     chan domain.Change
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) C() <-chan domain.Change {
	return s.ch
}

func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close unregisters the subscription and closes its channel. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		filter: filter,
		ch:     make(chan domain.Change, 1),
		hub:    h,
	}
	h.subs[sub.id] = sub

	h.logger.Debug("subscription opened", zap.Uint64("id", sub.id), zap.Stringer("filter", filter))
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)

	h.logger.Debug("subscription closed", zap.Uint64("id", sub.id), zap.Stringer("filter", sub.filter))
}

// Publish notifies every subscription whose filter matches rec. It never blocks.
func (h *Hub) Publish(rec Record) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	change := domain.Change{Kind: rec.Kind, DocID: rec.ID}
	delivered := 0
	for _, sub := range h.subs {
		if !sub.filter.matches(rec) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
		delivered++
	}
	return delivered
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
