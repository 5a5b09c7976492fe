package jobs

import (
	"context"
	"time"

	"peerscout/internal/config"
	"peerscout/internal/logging"
	"peerscout/internal/metrics"
	"peerscout/internal/peertube"
	"peerscout/internal/profile"
	"peerscout/internal/rank"
	"peerscout/internal/resolve"
	"peerscout/internal/store"
)

const refreshCursorKey = "refresh:last_run"

// RunRefreshOnce resolves any session-referenced video missing from the
// metadata store, rebuilds the profile, ranks every candidate, and caches the
// ranked list. A failure anywhere leaves the previous cached list in place.
func RunRefreshOnce(ctx context.Context, db *store.DB, client peertube.Client, cfg config.Config) error {
	start := time.Now()
	metrics.RefreshRuns.Inc()

	r := resolve.New(client, db, cfg.Sources.Preferred, cfg.Sources.Instances)
	prof, err := profile.Build(ctx, db, r)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return err
	}

	sessions, err := db.ListSessions(ctx)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return err
	}
	explicit, err := db.ListSeen(ctx)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return err
	}
	candidates, err := db.ListMetadata(ctx)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return err
	}

	results := rank.Rank(prof, candidates, rank.SeenSet(explicit, sessions), rank.Options{
		SeenDecay:   cfg.Ranking.SeenDecay,
		ChannelCap:  cfg.Ranking.ChannelCap,
		MaxResults:  cfg.Ranking.MaxResults,
		Sensitivity: cfg.Ranking.Sensitivity,
	})
	now := time.Now().UTC()
	if err := db.SaveRanking(ctx, results, now); err != nil {
		metrics.RefreshErrors.Inc()
		return err
	}
	_ = db.SaveCursor(ctx, refreshCursorKey, now.Format(time.RFC3339Nano))
	logging.Info("refresh_once", map[string]any{
		"sessions": len(sessions), "candidates": len(candidates), "ranked": len(results),
	})
	metrics.ObserveRefreshDuration(start)
	return nil
}

// RunRefreshLoop runs RunRefreshOnce on a ticker until ctx is cancelled.
func RunRefreshLoop(ctx context.Context, db *store.DB, client peertube.Client, cfg config.Config, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if err := RunRefreshOnce(ctx, db, client, cfg); err != nil {
		logging.Error("refresh_once_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("refresh_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if err := RunRefreshOnce(ctx, db, client, cfg); err != nil {
				logging.Error("refresh_once_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
