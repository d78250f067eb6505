// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	RunsStarted         prometheus.Counter
	RunsCompleted       prometheus.Counter
	RunsFailed          prometheus.Counter
	VideosProcessed     prometheus.Counter
	VideosSkipped       prometheus.Counter
	VideosFailed        prometheus.Counter
	SuperChatsCollected prometheus.Counter

	// Histograms (seconds)
	RunDuration     prometheus.Observer
	ChannelDuration prometheus.Observer

	// Gauges
	LastRunUnixGauge prometheus.Gauge
	DoneVideosGauge  prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		RunsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_collection_runs_started_total", Help: "Number of collection runs started"})
		RunsCompleted = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_collection_runs_completed_total", Help: "Number of collection runs completed"})
		RunsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_collection_runs_failed_total", Help: "Number of collection runs aborted by an error"})
		VideosProcessed = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_videos_processed_total", Help: "Number of videos fully extracted and marked done"})
		VideosSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_videos_skipped_total", Help: "Number of videos skipped (already done or no replay yet)"})
		VideosFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_videos_failed_total", Help: "Number of per-video extraction failures"})
		SuperChatsCollected = promauto.NewCounter(prometheus.CounterOpts{Name: "scstats_super_chats_collected_total", Help: "Number of super chat events persisted"})
		RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "scstats_collection_run_duration_seconds", Help: "Full collection run duration seconds", Buckets: prometheus.ExponentialBuckets(1, 2, 12)})
		ChannelDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "scstats_channel_collect_duration_seconds", Help: "Per-channel collection duration seconds", Buckets: prometheus.ExponentialBuckets(0.5, 2, 12)})
		LastRunUnixGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "scstats_last_run_start_unix", Help: "Start time of the most recent collection run (unix seconds)"})
		DoneVideosGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "scstats_done_videos", Help: "Size of the processed-video marker set at run start"})
	})
}

// Inc bumps a counter if registered.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Add adds n to a counter if registered.
func Add(c prometheus.Counter, n float64) {
	if c != nil {
		c.Add(n)
	}
}

// SetLastRunStart records the wall-clock start of the most recent run.
func SetLastRunStart(t time.Time) {
	if LastRunUnixGauge != nil {
		LastRunUnixGauge.Set(float64(t.Unix()))
	}
}

// SetDoneVideos records the size of the done-video set loaded for a run.
func SetDoneVideos(n int) {
	if DoneVideosGauge != nil {
		DoneVideosGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
