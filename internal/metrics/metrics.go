// Package metrics holds the run counters. They are registered on Registry
// and exported as a prometheus text file at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every lane_ metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	FramesProcessedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "lane_frames_processed_total",
		Help: "Total number of frames processed, by result",
	}, []string{"result"})

	FrameDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lane_frame_duration_seconds",
		Help:    "Time spent in Process per frame",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"mode"})

	TraceArtifactsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "lane_trace_artifacts_total",
		Help: "Total number of trace artifacts recorded",
	})

	PipelineResetsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "lane_pipeline_resets_total",
		Help: "Total number of continuity resets",
	})
)

// Result labels for FramesProcessedTotal.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Mode labels for FrameDuration.
const (
	ModeFast  = "fast"
	ModeTrace = "trace"
)

// WriteTextfile writes the current values in the prometheus text format,
// for the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
