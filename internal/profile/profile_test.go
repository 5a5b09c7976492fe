package profile

import (
	"context"
	"math"
	"testing"
	"time"

	"peerscout/internal/model"
	"peerscout/internal/peertube"
	"peerscout/internal/resolve"
	"peerscout/internal/store"
)

type fakeSource struct {
	videos map[string]model.VideoMetadata
}

func (f *fakeSource) ListVideos(ctx context.Context, base, sort string, count, start int) ([]peertube.VideoSummary, error) {
	return nil, nil
}

func (f *fakeSource) GetVideo(ctx context.Context, base, id string) (model.VideoMetadata, error) {
	if m, ok := f.videos[id]; ok {
		return m, nil
	}
	return model.VideoMetadata{}, peertube.ErrNotFound
}

func setup(t *testing.T, src *fakeSource) (*store.DB, *resolve.Resolver) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, resolve.New(src, db, nil, []string{"https://src.one"})
}

func TestBuildAccumulatesBothVectors(t *testing.T) {
	src := &fakeSource{videos: map[string]model.VideoMetadata{
		"v1": {ShortUUID: "v1", Name: "cats forever"},
		"v2": {ShortUUID: "v2", Name: "dogs daily"},
	}}
	db, r := setup(t, src)
	ctx := context.Background()
	_ = db.UpsertSession(ctx, model.WatchSession{
		URL: "https://src.one/w/v1", OverlapWatchTime: 10, Liked: true, LastUpdate: time.Now().UTC(),
	})
	_ = db.UpsertSession(ctx, model.WatchSession{
		URL: "https://src.one/w/v2", OverlapWatchTime: 0, Disliked: true, LastUpdate: time.Now().UTC(),
	})
	p, err := Build(ctx, db, r)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.TimeEngagement["cats"]-10) > 1e-9 {
		t.Fatalf("time engagement wrong: %v", p.TimeEngagement)
	}
	if _, ok := p.TimeEngagement["dogs"]; ok {
		t.Fatalf("zero watch time must not contribute to time vector: %v", p.TimeEngagement)
	}
	if p.LikeEngagement["cats"] != 1 || p.LikeEngagement["dogs"] != -1 {
		t.Fatalf("like engagement wrong: %v", p.LikeEngagement)
	}
}

func TestBuildSkipsLiveAndUnparsableURLs(t *testing.T) {
	src := &fakeSource{videos: map[string]model.VideoMetadata{"v1": {ShortUUID: "v1", Name: "cats"}}}
	db, r := setup(t, src)
	ctx := context.Background()
	_ = db.UpsertSession(ctx, model.WatchSession{
		URL: "https://src.one/w/v1", IsLive: true, WatchedLiveSeconds: 500, LastUpdate: time.Now().UTC(),
	})
	_ = db.UpsertSession(ctx, model.WatchSession{
		URL: "https://src.one/about", OverlapWatchTime: 50, LastUpdate: time.Now().UTC(),
	})
	p, err := Build(ctx, db, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.TimeEngagement) != 0 || len(p.LikeEngagement) != 0 {
		t.Fatalf("expected empty profile, got %+v", p)
	}
}

func TestBuildResolvesMissingMetadata(t *testing.T) {
	src := &fakeSource{videos: map[string]model.VideoMetadata{"v9": {ShortUUID: "v9", Name: "space opera"}}}
	db, r := setup(t, src)
	ctx := context.Background()
	_ = db.UpsertSession(ctx, model.WatchSession{
		URL: "https://src.one/w/v9", OverlapWatchTime: 3, LastUpdate: time.Now().UTC(),
	})
	if _, err := Build(ctx, db, r); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.HasMetadata(ctx, "v9"); !ok {
		t.Fatalf("profile pass should have backfilled metadata")
	}
}

func TestBuildIsFullRebuild(t *testing.T) {
	src := &fakeSource{videos: map[string]model.VideoMetadata{"v1": {ShortUUID: "v1", Name: "cats"}}}
	db, r := setup(t, src)
	ctx := context.Background()
	_ = db.UpsertSession(ctx, model.WatchSession{URL: "https://src.one/w/v1", OverlapWatchTime: 10, LastUpdate: time.Now().UTC()})
	p1, _ := Build(ctx, db, r)
	p2, _ := Build(ctx, db, r)
	if p1.TimeEngagement["cats"] != p2.TimeEngagement["cats"] {
		t.Fatalf("rebuild must be deterministic, got %v then %v", p1.TimeEngagement, p2.TimeEngagement)
	}
}
