package track

import (
	"context"
	"time"

	"peerscout/internal/logging"
	"peerscout/internal/store"
)

// Run samples the player on a drift-corrected timer and persists the session
// record after every tick. It returns when ctx is cancelled, after a final
// synchronous close and best-effort save.
func Run(ctx context.Context, t *Tracker, player Player, db *store.DB) error {
	nominal := time.Duration(t.cfg.SampleInterval * float64(time.Second))
	if nominal <= 0 {
		nominal = time.Second
	}
	corr := NewDriftCorrector(nominal)
	timer := time.NewTimer(nominal)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			final := t.Close(time.Now())
			// Final save is best effort; the view is already gone.
			saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := db.UpsertSession(saveCtx, final); err != nil {
				logging.Error("session_final_save_error", map[string]any{"url": final.URL, "error": err.Error()})
			}
			return ctx.Err()
		case <-timer.C:
			started := time.Now()
			state, err := player.Sample(ctx)
			if err != nil {
				logging.Error("player_sample_error", map[string]any{"url": t.Session().URL, "error": err.Error()})
				timer.Reset(corr.NextDelay())
				continue
			}
			rec := t.Observe(ctx, state, started)
			if err := db.UpsertSession(ctx, rec); err != nil {
				logging.Error("session_save_error", map[string]any{"url": rec.URL, "error": err.Error()})
			}
			corr.Record(time.Since(started))
			timer.Reset(corr.NextDelay())
		}
	}
}
