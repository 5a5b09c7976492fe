package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"peerscout/internal/logging"
	"peerscout/internal/track"
)

// playerSample is one line of player state on stdin. A bridge process
// (browser extension, mpv IPC shim) emits one JSON object per line
// whenever the player state changes.
type playerSample struct {
	Title        string  `json:"title"`
	CurrentTime  float64 `json:"currentTime"`
	Duration     float64 `json:"duration"`
	Paused       bool    `json:"paused"`
	PlaybackRate float64 `json:"playbackRate"`
	Liked        bool    `json:"liked"`
	Disliked     bool    `json:"disliked"`
	Live         bool    `json:"live"`
}

// stdinPlayer holds the most recent state pushed by the bridge and serves
// it to the sampling loop. The loop polls on its own timer, so a slow or
// bursty bridge never blocks tracking.
type stdinPlayer struct {
	mu     sync.Mutex
	latest track.PlayerState
	ready  bool
	done   chan struct{}
	in     io.Reader
}

func newStdinPlayer(in io.Reader) *stdinPlayer {
	return &stdinPlayer{in: in, done: make(chan struct{})}
}

// Start consumes stdin until EOF or ctx cancellation. Malformed lines are
// logged and skipped.
func (p *stdinPlayer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			var s playerSample
			if err := json.Unmarshal(line, &s); err != nil {
				logging.Error("player_input_parse_error", map[string]any{"error": err.Error()})
				continue
			}
			state := track.PlayerState{
				Title:        s.Title,
				CurrentTime:  s.CurrentTime,
				Duration:     s.Duration,
				Paused:       s.Paused,
				PlaybackRate: s.PlaybackRate,
				Liked:        s.Liked,
				Disliked:     s.Disliked,
				LiveHint:     s.Live,
			}
			if state.PlaybackRate == 0 {
				state.PlaybackRate = 1
			}
			p.mu.Lock()
			p.latest = state
			p.ready = true
			p.mu.Unlock()
		}
	}()
}

// Done closes when the bridge hangs up, which ends the view.
func (p *stdinPlayer) Done() <-chan struct{} { return p.done }

func (p *stdinPlayer) Sample(ctx context.Context) (track.PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return track.PlayerState{}, errNoSampleYet
	}
	return p.latest, nil
}

var errNoSampleYet = errors.New("no player state received yet")
