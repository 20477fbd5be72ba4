package realtime

import (
	"context"
	"strings"
	"time"

	"colab-review-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
	"go.uber.org/zap"
)

var kindPrefixes = map[string]domain.RecordKind{
	"profile":  domain.KindProfiles,
	"document": domain.KindDocuments,
	"revision": domain.KindRevisions,
}

// KindOf maps a store document id ("document:<uuid>") to its record kind.
func KindOf(docID string) (domain.RecordKind, bool) {
	prefix, _, ok := strings.Cut(docID, ":")
	if !ok {
		return "", false
	}
	kind, ok := kindPrefixes[prefix]
	return kind, ok
}

// CouchFeed follows the CouchDB _changes feed and publishes each row to a Hub.
type CouchFeed struct {
	client      *kivik.Client
	dbName      string
	hub         *Hub
	logger      *zap.Logger
	pollTimeout time.Duration
	retryWait   time.Duration
}

func NewCouchFeed(client *kivik.Client, dbName string, hub *Hub, logger *zap.Logger) *CouchFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CouchFeed{
		client:      client,
		dbName:      dbName,
		hub:         hub,
		logger:      logger,
		pollTimeout: 60 * time.Second,
		retryWait:   5 * time.Second,
	}
}

// Run long-polls the feed from "now" until ctx is done. Each poll resumes from
// the last_seq of the previous one, so quiet polls do not reset the position.
// A broken poll is logged and resumed from the last sequence seen.
func (f *CouchFeed) Run(ctx context.Context) {
	since := "now"
	f.logger.Info("change feed started", zap.String("db", f.dbName))

	for {
		next, err := f.poll(ctx, since)
		if ctx.Err() != nil {
			f.logger.Info("change feed stopped")
			return
		}
		if err != nil {
			f.logger.Warn("change feed interrupted", zap.Error(err), zap.Duration("retry_in", f.retryWait))
			select {
			case <-time.After(f.retryWait):
			case <-ctx.Done():
				return
			}
		}
		since = next
	}
}

func (f *CouchFeed) poll(ctx context.Context, since string) (string, error) {
	db := f.client.DB(f.dbName)

	changes := db.Changes(ctx, kivik.Params(map[string]interface{}{
		"feed":         "longpoll",
		"since":        since,
		"include_docs": true,
		"timeout":      f.pollTimeout.Milliseconds(),
	}))
	defer changes.Close()

	for changes.Next() {
		since = changes.Seq()

		kind, ok := KindOf(changes.ID())
		if !ok {
			continue
		}

		rec := Record{ID: changes.ID(), Kind: kind, Deleted: changes.Deleted()}
		if !rec.Deleted {
			if err := changes.ScanDoc(&rec.Fields); err != nil {
				f.logger.Warn("undecodable change row", zap.String("id", rec.ID), zap.Error(err))
				continue
			}
		}

		n := f.hub.Publish(rec)
		f.logger.Debug("change published", zap.String("id", rec.ID), zap.String("kind", string(kind)), zap.Int("subscribers", n))
	}

	if err := changes.Err(); err != nil {
		return since, err
	}
	if meta, err := changes.Metadata(); err == nil && meta.LastSeq != "" {
		since = meta.LastSeq
	}
	return since, nil
}
