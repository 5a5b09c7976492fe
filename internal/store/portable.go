package store

import (
	"context"
	"time"

	"peerscout/internal/model"
)

// Document is the portable JSON shape for export and import of all
// user-owned state.
type Document struct {
	Sessions   []model.WatchSession  `json:"sessions"`
	Metadata   []model.VideoMetadata `json:"metadata"`
	SeenUUIDs  []string              `json:"seenUUIDs"`
	ExportedAt time.Time             `json:"exportedAt"`
}

// Export snapshots sessions, metadata, and the seen list.
func (d *DB) Export(ctx context.Context) (Document, error) {
	var doc Document
	var err error
	if doc.Sessions, err = d.ListSessions(ctx); err != nil {
		return doc, err
	}
	if doc.Metadata, err = d.ListMetadata(ctx); err != nil {
		return doc, err
	}
	if doc.SeenUUIDs, err = d.ListSeen(ctx); err != nil {
		return doc, err
	}
	doc.ExportedAt = time.Now().UTC()
	return doc, nil
}

// Import merges a document into the store. Records are keyed upserts, so
// importing the same document twice is a no-op.
func (d *DB) Import(ctx context.Context, doc Document) error {
	for _, s := range doc.Sessions {
		if s.URL == "" {
			continue
		}
		if err := d.UpsertSession(ctx, s); err != nil {
			return err
		}
	}
	for _, m := range doc.Metadata {
		if m.ShortUUID == "" {
			continue
		}
		if err := d.UpsertMetadata(ctx, m); err != nil {
			return err
		}
	}
	for _, id := range doc.SeenUUIDs {
		if err := d.AddSeen(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
