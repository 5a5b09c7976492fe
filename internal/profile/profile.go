package profile

import (
	"context"

	"peerscout/internal/logging"
	"peerscout/internal/model"
	"peerscout/internal/resolve"
	"peerscout/internal/store"
)

// Build accumulates the user profile from all stored sessions. The vector is
// rebuilt from scratch on every call so it always reflects the current
// session set exactly. Sessions whose video has no metadata yet trigger a
// resolver call; a session that still cannot be resolved is skipped, never
// fatal.
func Build(ctx context.Context, db *store.DB, r *resolve.Resolver) (model.ProfileVector, error) {
	p := model.ProfileVector{
		TimeEngagement: make(map[string]float64),
		LikeEngagement: make(map[string]float64),
	}
	sessions, err := db.ListSessions(ctx)
	if err != nil {
		return p, err
	}
	for _, s := range sessions {
		if s.IsLive {
			continue
		}
		id := model.VideoIDFromURL(s.URL)
		if id == "" {
			continue
		}
		meta, err := r.Resolve(ctx, id, s.URL)
		if err != nil {
			logging.Info("profile_skip_session", map[string]any{"url": s.URL, "error": err.Error()})
			continue
		}
		wTime := s.OverlapWatchTime
		wLike := likeWeight(s)
		if wTime <= 0 && wLike == 0 {
			continue
		}
		for _, tok := range meta.Tokens {
			if wTime > 0 {
				p.TimeEngagement[tok] += wTime
			}
			if wLike != 0 {
				p.LikeEngagement[tok] += wLike
			}
		}
	}
	return p, nil
}

func likeWeight(s model.WatchSession) float64 {
	switch {
	case s.Liked:
		return 1
	case s.Disliked:
		return -1
	default:
		return 0
	}
}
