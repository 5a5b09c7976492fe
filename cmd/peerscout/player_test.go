package main

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestStdinPlayerServesLatestState(t *testing.T) {
	in := strings.NewReader(
		`{"title":"a","currentTime":1,"duration":100,"paused":false}` + "\n" +
			`not json` + "\n" +
			`{"title":"a","currentTime":5,"duration":100,"paused":true,"playbackRate":1.5}` + "\n")
	p := newStdinPlayer(in)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not drain input")
	}

	state, err := p.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if state.CurrentTime != 5 || !state.Paused || state.PlaybackRate != 1.5 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestStdinPlayerDefaultsPlaybackRate(t *testing.T) {
	in := strings.NewReader(`{"currentTime":1,"duration":10}` + "\n")
	p := newStdinPlayer(in)
	ctx := context.Background()
	p.Start(ctx)
	<-p.Done()
	state, err := p.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if state.PlaybackRate != 1 {
		t.Fatalf("rate = %v, want 1", state.PlaybackRate)
	}
}

func TestStdinPlayerBeforeFirstSample(t *testing.T) {
	p := newStdinPlayer(strings.NewReader(""))
	if _, err := p.Sample(context.Background()); err == nil {
		t.Fatal("expected error before first state line")
	}
}
