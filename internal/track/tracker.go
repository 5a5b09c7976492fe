package track

import (
	"context"
	"math"
	"time"

	"peerscout/internal/config"
	"peerscout/internal/logging"
	"peerscout/internal/metrics"
	"peerscout/internal/model"
)

// PlayerState is one sample of the observed player.
type PlayerState struct {
	Title        string
	CurrentTime  float64
	Duration     float64
	Paused       bool
	PlaybackRate float64
	Liked        bool
	Disliked     bool
	// LiveHint is the player-side live guess, used only when the source's
	// authoritative flag cannot be fetched.
	LiveHint bool
}

// Player exposes the observed video view to the sampling loop.
type Player interface {
	Sample(ctx context.Context) (PlayerState, error)
}

// LiveCheckFunc asks the content source whether the video is a live stream.
type LiveCheckFunc func(ctx context.Context) (bool, error)

// interval is the currently open stretch of confirmed playback.
type interval struct {
	start        float64
	lastRecorded float64
}

// Tracker converts noisy player samples for one video view into a clean
// session record. All state lives on the struct; one Tracker per open view.
type Tracker struct {
	cfg       config.TrackingConfig
	session   model.WatchSession
	open      *interval
	liveCheck LiveCheckFunc

	liveKnown   bool
	sampleCount int
	lastTick    time.Time
}

// New creates a tracker for url. prior, when non-nil, resumes an earlier
// persisted session for the same URL.
func New(cfg config.TrackingConfig, url string, prior *model.WatchSession, liveCheck LiveCheckFunc) *Tracker {
	t := &Tracker{cfg: cfg, liveCheck: liveCheck}
	if prior != nil {
		t.session = *prior
	} else {
		t.session = model.WatchSession{URL: url}
	}
	t.session.URL = url
	return t
}

// Observe processes one sample at the given wall-clock time and returns the
// updated session record.
func (t *Tracker) Observe(ctx context.Context, state PlayerState, now time.Time) model.WatchSession {
	metrics.SamplesTaken.Inc()
	defer func() { t.lastTick = now }()

	t.maybeRecheckLive(ctx, state)

	// A different reported duration means the URL now serves different
	// content; start over rather than mixing two timelines.
	if !t.session.IsLive && t.session.Duration > 0 && state.Duration > 0 &&
		math.Abs(t.session.Duration-state.Duration) > fuzz {
		logging.Info("session_reset", map[string]any{"url": t.session.URL, "old": t.session.Duration, "new": state.Duration})
		t.session = model.WatchSession{URL: t.session.URL, IsLive: t.session.IsLive}
		t.open = nil
	}

	if t.session.IsLive {
		t.observeLive(state, now)
	} else {
		t.observeOnDemand(state, now)
	}

	t.session.Title = state.Title
	t.session.CurrentTime = state.CurrentTime
	if state.Duration > 0 {
		t.session.Duration = state.Duration
	}
	t.session.Liked = state.Liked
	t.session.Disliked = state.Disliked
	t.session.LastUpdate = now.UTC()
	t.recompute()
	return t.session
}

// Close finalizes the open interval, if any, and returns the final record.
// Called synchronously when the view is closed or navigated away.
func (t *Tracker) Close(now time.Time) model.WatchSession {
	t.closeInterval(now)
	t.session.LastUpdate = now.UTC()
	t.recompute()
	return t.session
}

// Session returns the current record without mutating tracker state.
func (t *Tracker) Session() model.WatchSession { return t.session }

func (t *Tracker) maybeRecheckLive(ctx context.Context, state PlayerState) {
	recheck := t.cfg.LiveRecheckSamples
	if recheck <= 0 {
		recheck = 60
	}
	if t.liveKnown && t.sampleCount%recheck != 0 {
		t.sampleCount++
		return
	}
	t.sampleCount++
	if t.liveCheck != nil {
		if live, err := t.liveCheck(ctx); err == nil {
			t.session.IsLive = live
			t.liveKnown = true
			return
		}
	}
	if !t.liveKnown {
		t.session.IsLive = state.LiveHint
	}
}

func (t *Tracker) observeLive(state PlayerState, now time.Time) {
	if state.Paused || t.lastTick.IsZero() {
		return
	}
	elapsed := now.Sub(t.lastTick).Seconds()
	if elapsed > 0 {
		t.session.WatchedLiveSeconds += elapsed
	}
}

func (t *Tracker) observeOnDemand(state PlayerState, now time.Time) {
	time_ := state.CurrentTime

	if state.Paused {
		t.closeInterval(now)
		return
	}

	if t.open == nil {
		t.open = &interval{start: time_, lastRecorded: time_}
		return
	}

	// A rewind lowers the open start so replaying does not fragment the
	// segment.
	if time_ < t.open.start {
		t.open.start = time_
	}

	rate := state.PlaybackRate
	if rate <= 0 {
		rate = 1
	}
	tolerance := (t.cfg.SampleInterval + t.cfg.JumpSlack) * rate
	gap := time_ - t.open.lastRecorded
	if gap > tolerance && gap > 1 {
		// Forward seek: close out the interval and open a new one at the
		// landing position.
		t.emitSegment(t.open.start, t.open.lastRecorded, now)
		t.session.SessionStart = t.open.start
		t.open = &interval{start: time_, lastRecorded: time_}
		return
	}
	if time_ > t.open.lastRecorded {
		t.open.lastRecorded = time_
	}
}

func (t *Tracker) closeInterval(now time.Time) {
	if t.open == nil {
		return
	}
	t.emitSegment(t.open.start, t.open.lastRecorded, now)
	t.session.SessionStart = t.open.start
	t.open = nil
}

func (t *Tracker) emitSegment(start, end float64, now time.Time) {
	d := end - start
	if d <= t.minSegment() {
		return
	}
	for _, s := range t.session.Segments {
		if math.Abs(s.Start-start) < fuzz && math.Abs(s.End-end) < fuzz {
			return
		}
	}
	t.session.Segments = append(t.session.Segments, model.Segment{
		Start:     start,
		End:       end,
		Duration:  d,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
	metrics.SegmentsEmitted.Inc()
}

func (t *Tracker) minSegment() float64 {
	if t.cfg.MinSegmentSeconds > 0 {
		return t.cfg.MinSegmentSeconds
	}
	return 0.1
}

func (t *Tracker) recompute() {
	t.session.Segments = Dedupe(t.session.Segments)
	t.session.TotalSegDuration = RawTotal(t.session.Segments)
	_, overlap := MergeOverlap(t.session.Segments)
	t.session.OverlapWatchTime = overlap
	if t.session.Duration > 0 {
		t.session.PercentWatched = math.Round(100*overlap/t.session.Duration*100) / 100
		t.session.Finished = t.session.CurrentTime/t.session.Duration > 0.95
	} else {
		t.session.PercentWatched = 0
		t.session.Finished = false
	}
}
