// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_events_dropped_total", Help: "Room events dropped before mutating the ledger (unrecognized, unresolvable, or duplicate)"})
	ReactionsRecorded = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_reactions_recorded_total", Help: "Vote reactions applied to the ledger"})
	ReactionsRemoved  = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_reactions_removed_total", Help: "Vote reactions removed after a redaction"})
	MessagesTracked   = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_messages_tracked_total", Help: "Messages first tracked on the scoreboard"})
	MessagesRemoved   = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_messages_removed_total", Help: "Tracked messages removed after a redaction"})
	SnapshotSaves        = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_snapshot_saves_total", Help: "Successful snapshot writes"})
	SnapshotSaveFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "qna_snapshot_save_failures_total", Help: "Failed snapshot writes"})

	// Histograms (seconds)
	SnapshotSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "qna_snapshot_save_duration_seconds", Help: "Snapshot write duration seconds", Buckets: prometheus.DefBuckets})

	// Gauges
	trackedRoomsGauge    = promauto.NewGauge(prometheus.GaugeOpts{Name: "qna_tracked_rooms", Help: "Rooms currently tracked"})
	trackedMessagesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "qna_tracked_messages", Help: "Messages currently on a scoreboard"})
)

// SetTrackedRooms records the current tracked room count.
func SetTrackedRooms(n int) { trackedRoomsGauge.Set(float64(n)) }

// SetTrackedMessages records the current tracked message count across rooms.
func SetTrackedMessages(n int) { trackedMessagesGauge.Set(float64(n)) }

// TimeFunc measures the duration of fn and records it in obs if non-nil.
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

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
