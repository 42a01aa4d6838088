// Package metrics collects Prometheus metrics for a facescan run and writes
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Image outcomes.
const (
	StatusOK          = "ok"
	StatusDecodeError = "decode_error"
)

// Metrics holds the collectors for one run on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	imagesProcessed    *prometheus.CounterVec
	attributeFailures  *prometheus.CounterVec
	estimatorLatency   *prometheus.HistogramVec
	facesDetected      prometheus.Counter
	annotationFailures prometheus.Counter
	runDuration        prometheus.Gauge
	lastRun            prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		imagesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facescan_images_processed_total",
				Help: "Total number of images processed",
			},
			[]string{"status"},
		),
		attributeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facescan_attribute_failures_total",
				Help: "Attribute estimations that fell back to a sentinel",
			},
			[]string{"attribute"},
		),
		estimatorLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "facescan_estimator_duration_seconds",
				Help:    "Attribute estimation duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"attribute"},
		),
		facesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "facescan_faces_detected_total",
			Help: "Faces found by the localizer during annotation",
		}),
		annotationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "facescan_annotation_failures_total",
			Help: "Images whose annotation did not complete",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "facescan_run_duration_seconds",
			Help: "Wall time of the last batch run",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "facescan_last_run_timestamp_seconds",
			Help: "Unix time the last batch run finished",
		}),
	}
	reg.MustRegister(collectors.NewGoCollector())
	return m
}

// ObserveImage counts a processed image by outcome.
func (m *Metrics) ObserveImage(status string) {
	if m == nil {
		return
	}
	m.imagesProcessed.WithLabelValues(status).Inc()
}

// ObserveEstimate records the latency of one attribute call and counts it as
// a failure when err is set.
func (m *Metrics) ObserveEstimate(attribute string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.estimatorLatency.WithLabelValues(attribute).Observe(d.Seconds())
	if err != nil {
		m.attributeFailures.WithLabelValues(attribute).Inc()
	}
}

// ObserveAttributeFailure counts a failure without a latency sample.
func (m *Metrics) ObserveAttributeFailure(attribute string) {
	if m == nil {
		return
	}
	m.attributeFailures.WithLabelValues(attribute).Inc()
}

// ObserveAnnotation records the faces found for one image and whether
// annotation failed.
func (m *Metrics) ObserveAnnotation(faces int, err error) {
	if m == nil {
		return
	}
	m.facesDetected.Add(float64(faces))
	if err != nil {
		m.annotationFailures.Inc()
	}
}

// ObserveRun records the run duration and completion time.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Set(d.Seconds())
	m.lastRun.SetToCurrentTime()
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
