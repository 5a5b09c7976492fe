package jobs

import (
	"context"
	"time"

	"peerscout/internal/config"
	"peerscout/internal/logging"
	"peerscout/internal/metrics"
	"peerscout/internal/peertube"
	"peerscout/internal/resolve"
	"peerscout/internal/store"
)

const discoverCursorKey = "discover:last_run"

// sortKeys are the listing orders crawled per instance. The newest-first key
// is paged; the rest contribute only their first page.
var sortKeys = []string{"-publishedAt", "-createdAt", "-views", "-likes", "-trending", ""}

// RunDiscoveryOnce pages the listing endpoints of every configured instance
// and resolves each unseen identifier into the metadata store. Individual
// source failures are logged and skipped; the crawl itself never fails on
// them.
func RunDiscoveryOnce(ctx context.Context, db *store.DB, client peertube.Client, cfg config.Config) error {
	count := cfg.Discovery.Count
	if count <= 0 {
		count = 10
	}
	maxPages := cfg.Discovery.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	r := resolve.New(client, db, cfg.Sources.Preferred, cfg.Sources.Instances)
	discovered := 0
	for _, base := range r.Candidates("") {
		for _, sortKey := range sortKeys {
			pages := 1
			if sortKey == "-publishedAt" {
				pages = maxPages
			}
			for page := 0; page < pages; page++ {
				summaries, err := client.ListVideos(ctx, base, sortKey, count, page*count)
				if err != nil {
					logging.Info("discover_list_error", map[string]any{"source": base, "sort": sortKey, "error": err.Error()})
					break
				}
				if len(summaries) == 0 {
					break
				}
				for _, v := range summaries {
					id := v.ShortUUID
					if id == "" {
						id = v.UUID
					}
					if id == "" {
						continue
					}
					if ok, err := db.HasMetadata(ctx, id); err != nil {
						return err
					} else if ok {
						continue
					}
					if _, err := r.Resolve(ctx, id, base+"/w/"+id); err != nil {
						continue
					}
					discovered++
					metrics.VideosDiscovered.Inc()
				}
			}
		}
	}
	_ = db.SaveCursor(ctx, discoverCursorKey, time.Now().UTC().Format(time.RFC3339Nano))
	logging.Info("discover_once", map[string]any{"new": discovered})
	return nil
}
