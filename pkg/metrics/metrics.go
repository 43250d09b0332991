// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-frcvision/pkg/pipeline"
)

const namespace = "frcvision"

// Metrics holds the Prometheus collectors for one process. It implements
// pipeline.Observer.
type Metrics struct {
	registry *prometheus.Registry

	frames     prometheus.Counter
	detections prometheus.Counter
	fps        prometheus.Gauge
	objects    prometheus.Gauge
	stage      *prometheus.HistogramVec
	errors     *prometheus.CounterVec
}

// New creates a registry with pipeline and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed by the pipeline",
		}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Objects detected across all frames",
		}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fps",
			Help:      "Smoothed pipeline frame rate",
		}),
		objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objects",
			Help:      "Objects detected in the last frame",
		}),
		stage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{.001, .0025, .005, .01, .02, .04, .08, .16, .32},
		}, []string{"stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Stage failures",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.frames, m.detections, m.fps, m.objects, m.stage, m.errors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFrame records one completed iteration.
func (m *Metrics) ObserveFrame(s pipeline.FrameStats) {
	m.frames.Inc()
	m.detections.Add(float64(s.Detections))
	m.fps.Set(s.FPS)
	m.objects.Set(float64(s.Detections))

	m.stage.WithLabelValues(pipeline.StageDetect).Observe(s.Detect.Seconds())
	m.stage.WithLabelValues(pipeline.StageAnnotate).Observe(s.Annotate.Seconds())
	m.stage.WithLabelValues(pipeline.StageDisplay).Observe(s.Display.Seconds())
	m.stage.WithLabelValues(pipeline.StagePublish).Observe(s.Publish.Seconds())
}

// ObserveError counts a stage failure.
func (m *Metrics) ObserveError(stage string) {
	m.errors.WithLabelValues(stage).Inc()
}

// GaugeFunc registers a gauge read from fn at scrape time, for values
// owned by other components such as stream clients or publish drops.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
