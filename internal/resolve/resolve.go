package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"peerscout/internal/logging"
	"peerscout/internal/metrics"
	"peerscout/internal/model"
	"peerscout/internal/peertube"
	"peerscout/internal/store"
	"peerscout/internal/token"
)

// placeholderTokens fill the token list of a synthesized record so downstream
// vector math never sees an empty document.
var placeholderTokens = []string{"unavailable", "unresolved"}

// Resolver looks up video metadata across an ordered list of content sources
// and persists normalized records. Not safe for concurrent use; each
// resolution pass owns its Resolver.
type Resolver struct {
	client    peertube.Client
	db        *store.DB
	preferred []string
	known     []string

	// identifiers that failed transiently in this pass; skipped until the
	// next pass so one bad source does not stall a refresh
	failed map[string]struct{}
}

func New(client peertube.Client, db *store.DB, preferred, known []string) *Resolver {
	return &Resolver{
		client:    client,
		db:        db,
		preferred: preferred,
		known:     known,
		failed:    make(map[string]struct{}),
	}
}

// Resolve returns the metadata record for videoID, fetching and persisting it
// on first sight. hintedSourceURL, when non-empty, is a watch URL whose host
// is tried first. A record already in the store is never re-fetched.
func (r *Resolver) Resolve(ctx context.Context, videoID, hintedSourceURL string) (model.VideoMetadata, error) {
	if m, err := r.db.GetMetadata(ctx, videoID); err == nil {
		return m, nil
	} else if !errors.Is(err, store.ErrNoRow) {
		return model.VideoMetadata{}, fmt.Errorf("metadata lookup %s: %w", videoID, err)
	}
	if _, ok := r.failed[videoID]; ok {
		return model.VideoMetadata{}, fmt.Errorf("resolve %s: skipped after earlier failure this pass", videoID)
	}

	metrics.ResolveRuns.Inc()
	sawNotFound := false
	for _, base := range r.Candidates(hintedSourceURL) {
		raw, err := r.client.GetVideo(ctx, base, videoID)
		if err != nil {
			if errors.Is(err, peertube.ErrNotFound) {
				sawNotFound = true
			} else {
				logging.Info("resolve_source_error", map[string]any{"id": videoID, "source": base, "error": err.Error()})
			}
			continue
		}
		m := normalize(raw, videoID, base)
		if err := r.db.UpsertMetadata(ctx, m); err != nil {
			return model.VideoMetadata{}, fmt.Errorf("persist metadata %s: %w", videoID, err)
		}
		return m, nil
	}

	metrics.ResolveErrors.Inc()
	if sawNotFound {
		// Absent from every source that answered: write a placeholder so the
		// identifier is never retried.
		m := placeholder(videoID)
		if err := r.db.UpsertMetadata(ctx, m); err != nil {
			return model.VideoMetadata{}, fmt.Errorf("persist placeholder %s: %w", videoID, err)
		}
		logging.Info("resolve_placeholder", map[string]any{"id": videoID})
		return m, nil
	}
	// Only transient failures: leave the identifier unresolved for a later
	// pass, but do not hit the sources again within this one.
	r.failed[videoID] = struct{}{}
	return model.VideoMetadata{}, fmt.Errorf("resolve %s: all sources failed transiently", videoID)
}

// Candidates builds the ordered, deduplicated source list: hinted instance
// first, then preferred, then the known list.
func (r *Resolver) Candidates(hintedSourceURL string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(base string) {
		base = strings.TrimRight(base, "/")
		if base == "" {
			return
		}
		if _, ok := seen[base]; ok {
			return
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}
	if h := hintedBase(hintedSourceURL); h != "" {
		add(h)
	}
	for _, b := range r.preferred {
		add(b)
	}
	for _, b := range r.known {
		add(b)
	}
	return out
}

func hintedBase(watchURL string) string {
	if watchURL == "" {
		return ""
	}
	u, err := url.Parse(watchURL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

func normalize(m model.VideoMetadata, videoID, sourceBase string) model.VideoMetadata {
	if m.ShortUUID == "" {
		m.ShortUUID = videoID
	}
	m.SourceInstance = sourceBase
	m.Tokens = token.FromMetadata(m.Name, m.Tags, m.Description)
	return m
}

func placeholder(videoID string) model.VideoMetadata {
	return model.VideoMetadata{
		ShortUUID:   videoID,
		Name:        "unavailable",
		Unavailable: true,
		Tokens:      append([]string(nil), placeholderTokens...),
	}
}
