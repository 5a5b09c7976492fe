package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	ResolveRuns.Inc()
	RefreshRuns.Inc()
	SamplesTaken.Inc()
	SegmentsEmitted.Inc()
	VideosDiscovered.Inc()
	IncCommandRun("refresh")
	IncCommandError("refresh")
	ObserveRefreshDuration(time.Now().Add(-1500 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"peerscout_resolve_runs_total",
		"peerscout_refresh_runs_total",
		"peerscout_refresh_duration_seconds",
		"peerscout_player_samples_total",
		"peerscout_segments_emitted_total",
		"peerscout_videos_discovered_total",
		"peerscout_command_runs_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
