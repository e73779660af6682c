// Package metrics records scan outcomes for Prometheus scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan outcome metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_scans_total",
			Help: "Total number of scan requests",
		},
		[]string{"outcome", "level"}, // outcome: found, miss, error
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrscan_scan_duration_seconds",
			Help:    "End-to-end scan duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"outcome", "level"},
	)

	// Per-attempt metrics
	decodeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_decode_attempts_total",
			Help: "Total number of decoder attempts",
		},
		[]string{"decoder", "status"}, // status: hit, miss
	)

	imageSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrscan_image_size_bytes",
			Help:    "Size of scanned images in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)
)

// Recorder receives scan events. The prometheus implementation is process
// global; Nop exists for tests and library embedding.
type Recorder interface {
	ObserveScan(outcome, level string, duration time.Duration, imageBytes int)
	ObserveAttempt(decoder string, hit bool)
}

type promRecorder struct{}

// NewPrometheus returns a Recorder backed by the package's promauto
// collectors on the default registry.
func NewPrometheus() Recorder {
	return promRecorder{}
}

func (promRecorder) ObserveScan(outcome, level string, duration time.Duration, imageBytes int) {
	scansTotal.WithLabelValues(outcome, level).Inc()
	scanDuration.WithLabelValues(outcome, level).Observe(duration.Seconds())
	if imageBytes > 0 {
		imageSizeBytes.Observe(float64(imageBytes))
	}
}

func (promRecorder) ObserveAttempt(decoder string, hit bool) {
	status := "miss"
	if hit {
		status = "hit"
	}
	decodeAttemptsTotal.WithLabelValues(decoder, status).Inc()
}

type nopRecorder struct{}

// Nop returns a Recorder that discards everything.
func Nop() Recorder {
	return nopRecorder{}
}

func (nopRecorder) ObserveScan(string, string, time.Duration, int) {}
func (nopRecorder) ObserveAttempt(string, bool)                   {}
