package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolveRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_resolve_runs_total",
		Help: "Total metadata resolution attempts",
	})
	ResolveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_resolve_errors_total",
		Help: "Total metadata resolutions with no answering source",
	})
	RefreshRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_refresh_runs_total",
		Help: "Total recommendation refresh runs",
	})
	RefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_refresh_errors_total",
		Help: "Total recommendation refresh errors",
	})
	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "peerscout_refresh_duration_seconds",
		Help:    "Recommendation refresh duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	SamplesTaken = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_player_samples_total",
		Help: "Total player state samples observed",
	})
	SegmentsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_segments_emitted_total",
		Help: "Total playback segments closed into sessions",
	})
	VideosDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerscout_videos_discovered_total",
		Help: "Total videos newly resolved by the discovery crawl",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peerscout_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peerscout_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		ResolveRuns, ResolveErrors,
		RefreshRuns, RefreshErrors, RefreshDuration,
		SamplesTaken, SegmentsEmitted, VideosDiscovered,
		CommandRuns, CommandErrors,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRefreshDuration records a refresh run duration.
func ObserveRefreshDuration(start time.Time) {
	RefreshDuration.Observe(time.Since(start).Seconds())
}

// IncCommandRun counts one CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts one CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
