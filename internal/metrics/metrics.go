// Package metrics exposes Prometheus instrumentation for the capture core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Capture holds the capture-side collectors on a private registry, so the
// /metrics endpoint only carries what this process owns.
type Capture struct {
	registry *prometheus.Registry

	FramesTotal      *prometheus.CounterVec
	CaptureErrors    *prometheus.CounterVec
	CorruptFrames    *prometheus.CounterVec
	ControlRollbacks *prometheus.CounterVec
	OpenDevices      prometheus.Gauge
}

// NewCapture creates and registers the capture collectors.
func NewCapture() *Capture {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Capture{
		registry: registry,
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motion",
			Subsystem: "capture",
			Name:      "frames_total",
			Help:      "Frames delivered to consumers, per device.",
		}, []string{"device"}),
		CaptureErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motion",
			Subsystem: "capture",
			Name:      "errors_total",
			Help:      "Frame acquisition failures that ended a stream, per device.",
		}, []string{"device"}),
		CorruptFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motion",
			Subsystem: "capture",
			Name:      "corrupt_frames_total",
			Help:      "Frames discarded as damaged or truncated, per device.",
		}, []string{"device"}),
		ControlRollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motion",
			Subsystem: "capture",
			Name:      "control_rollbacks_total",
			Help:      "Control values the device rejected and were rolled back.",
		}, []string{"device"}),
		OpenDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "motion",
			Subsystem: "capture",
			Name:      "open_devices",
			Help:      "Devices currently held open by the registry.",
		}),
	}
	registry.MustRegister(
		c.FramesTotal,
		c.CaptureErrors,
		c.CorruptFrames,
		c.ControlRollbacks,
		c.OpenDevices,
	)
	return c
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format.
func (c *Capture) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
