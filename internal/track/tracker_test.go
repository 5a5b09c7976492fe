package track

import (
	"context"
	"math"
	"testing"
	"time"

	"peerscout/internal/config"
)

func trackingCfg() config.TrackingConfig {
	return config.Default().Tracking
}

func vodCheck(ctx context.Context) (bool, error) { return false, nil }
func liveCheck(ctx context.Context) (bool, error) { return true, nil }

func TestContinuousPlaybackYieldsOneSegment(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/v1", nil, vodCheck)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	for i := 0; i <= 30; i++ {
		tr.Observe(ctx, PlayerState{CurrentTime: float64(i), Duration: 100, PlaybackRate: 1}, now.Add(time.Duration(i)*time.Second))
	}
	final := tr.Close(now.Add(31 * time.Second))
	if len(final.Segments) != 1 {
		t.Fatalf("expected one segment for continuous playback, got %v", final.Segments)
	}
	if final.Segments[0].Start != 0 || math.Abs(final.Segments[0].End-30) > 1e-9 {
		t.Fatalf("segment bounds wrong: %+v", final.Segments[0])
	}
}

func TestForwardSeekSplitsSegment(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/v1", nil, vodCheck)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i <= 5; i++ {
		tr.Observe(ctx, PlayerState{CurrentTime: float64(i), Duration: 100, PlaybackRate: 1}, now.Add(time.Duration(i)*time.Second))
	}
	// jump well past the (interval+slack)*rate tolerance
	tr.Observe(ctx, PlayerState{CurrentTime: 50, Duration: 100, PlaybackRate: 1}, now.Add(6*time.Second))
	tr.Observe(ctx, PlayerState{CurrentTime: 51, Duration: 100, PlaybackRate: 1}, now.Add(7*time.Second))
	final := tr.Close(now.Add(8 * time.Second))
	if len(final.Segments) != 2 {
		t.Fatalf("expected split into two segments, got %v", final.Segments)
	}
	if final.Segments[1].Start != 50 {
		t.Fatalf("second segment should start at seek target: %+v", final.Segments[1])
	}
}

func TestSeekBackLowersOpenStart(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/v1", nil, vodCheck)
	ctx := context.Background()
	now := time.Now()
	tr.Observe(ctx, PlayerState{CurrentTime: 20, Duration: 100, PlaybackRate: 1}, now)
	tr.Observe(ctx, PlayerState{CurrentTime: 21, Duration: 100, PlaybackRate: 1}, now.Add(time.Second))
	// rewind: the open interval's start drops instead of splitting
	tr.Observe(ctx, PlayerState{CurrentTime: 10, Duration: 100, PlaybackRate: 1}, now.Add(2*time.Second))
	tr.Observe(ctx, PlayerState{CurrentTime: 22, Duration: 100, PlaybackRate: 1}, now.Add(3*time.Second))
	final := tr.Close(now.Add(4 * time.Second))
	if len(final.Segments) != 1 {
		t.Fatalf("rewind fragmented the segment: %v", final.Segments)
	}
	if final.Segments[0].Start != 10 {
		t.Fatalf("expected lowered start 10, got %+v", final.Segments[0])
	}
}

func TestPauseClosesSegmentAndNoiseFloor(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/v1", nil, vodCheck)
	ctx := context.Background()
	now := time.Now()
	// sub-noise-floor playback then pause: nothing emitted
	tr.Observe(ctx, PlayerState{CurrentTime: 5, Duration: 100, PlaybackRate: 1}, now)
	tr.Observe(ctx, PlayerState{CurrentTime: 5.05, Duration: 100, PlaybackRate: 1}, now.Add(50*time.Millisecond))
	got := tr.Observe(ctx, PlayerState{CurrentTime: 5.05, Duration: 100, Paused: true, PlaybackRate: 1}, now.Add(100*time.Millisecond))
	if len(got.Segments) != 0 {
		t.Fatalf("noise-floor segment emitted: %v", got.Segments)
	}
	// real playback then pause: one segment
	for i := 0; i <= 5; i++ {
		tr.Observe(ctx, PlayerState{CurrentTime: 6 + float64(i), Duration: 100, PlaybackRate: 1}, now.Add(time.Duration(i+1)*time.Second))
	}
	got = tr.Observe(ctx, PlayerState{CurrentTime: 11, Duration: 100, Paused: true, PlaybackRate: 1}, now.Add(7*time.Second))
	if len(got.Segments) != 1 {
		t.Fatalf("expected one segment after pause, got %v", got.Segments)
	}
}

func TestPercentWatchedAndFinished(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/v1", nil, vodCheck)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i <= 96; i++ {
		tr.Observe(ctx, PlayerState{CurrentTime: float64(i), Duration: 100, PlaybackRate: 1}, now.Add(time.Duration(i)*time.Second))
	}
	final := tr.Close(now.Add(97 * time.Second))
	if !final.Finished {
		t.Fatalf("expected finished at 96/100, got %+v", final)
	}
	if final.PercentWatched < 90 || final.PercentWatched > 100 {
		t.Fatalf("percent watched out of range: %v", final.PercentWatched)
	}
	if final.OverlapWatchTime > final.TotalSegDuration+1e-9 {
		t.Fatalf("overlap exceeds raw total: %+v", final)
	}
}

func TestLiveAccumulatesWallClock(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/live1", nil, liveCheck)
	ctx := context.Background()
	now := time.Now()
	tr.Observe(ctx, PlayerState{PlaybackRate: 1}, now)
	tr.Observe(ctx, PlayerState{PlaybackRate: 1}, now.Add(2*time.Second))
	got := tr.Observe(ctx, PlayerState{PlaybackRate: 1}, now.Add(4*time.Second))
	if math.Abs(got.WatchedLiveSeconds-4) > 0.01 {
		t.Fatalf("expected ~4s live watch, got %v", got.WatchedLiveSeconds)
	}
	if len(got.Segments) != 0 {
		t.Fatalf("live session must not record segments: %v", got.Segments)
	}
	// paused ticks do not accumulate
	got = tr.Observe(ctx, PlayerState{Paused: true, PlaybackRate: 1}, now.Add(6*time.Second))
	if math.Abs(got.WatchedLiveSeconds-4) > 0.01 {
		t.Fatalf("paused live tick accumulated: %v", got.WatchedLiveSeconds)
	}
}

func TestLiveHintFallbackWhenCheckFails(t *testing.T) {
	failing := func(ctx context.Context) (bool, error) { return false, context.DeadlineExceeded }
	tr := New(trackingCfg(), "https://a/w/v1", nil, failing)
	got := tr.Observe(context.Background(), PlayerState{LiveHint: true, PlaybackRate: 1}, time.Now())
	if !got.IsLive {
		t.Fatalf("expected fallback to player live hint")
	}
}

func TestDurationChangeResetsSession(t *testing.T) {
	tr := New(trackingCfg(), "https://a/w/v1", nil, vodCheck)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i <= 5; i++ {
		tr.Observe(ctx, PlayerState{CurrentTime: float64(i), Duration: 100, PlaybackRate: 1}, now.Add(time.Duration(i)*time.Second))
	}
	got := tr.Observe(ctx, PlayerState{CurrentTime: 0, Duration: 200, PlaybackRate: 1}, now.Add(6*time.Second))
	if len(got.Segments) != 0 || got.Duration != 200 {
		t.Fatalf("expected reset on duration change, got %+v", got)
	}
}

func TestDriftCorrectorClampsAdjustment(t *testing.T) {
	d := NewDriftCorrector(time.Second)
	if d.NextDelay() != time.Second {
		t.Fatalf("no samples should mean nominal delay")
	}
	for i := 0; i < 10; i++ {
		d.Record(500 * time.Millisecond)
	}
	if got := d.NextDelay(); got != 900*time.Millisecond {
		t.Fatalf("expected clamp to nominal-100ms, got %v", got)
	}
	d2 := NewDriftCorrector(time.Second)
	for i := 0; i < 10; i++ {
		d2.Record(20 * time.Millisecond)
	}
	if got := d2.NextDelay(); got != 980*time.Millisecond {
		t.Fatalf("expected 980ms, got %v", got)
	}
}
