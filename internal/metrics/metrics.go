package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "captr",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process launches.",
		},
	)
	launchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "captr",
			Subsystem: "process",
			Name:      "launch_failures_total",
			Help:      "Number of launch attempts that failed before registration.",
		},
	)
	processStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "captr",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of termination sequences that signalled a process.",
		},
	)
	capturedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "captr",
			Subsystem: "capture",
			Name:      "lines_total",
			Help:      "Captured output lines per stream.",
		}, []string{"stream"},
	)
	boundedRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "captr",
			Subsystem: "run",
			Name:      "bounded_total",
			Help:      "Bounded run results per outcome kind.",
		}, []string{"outcome"},
	)
	trackedProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "captr",
			Subsystem: "process",
			Name:      "tracked",
			Help:      "Currently tracked process records.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{processStarts, launchFailures, processStops, capturedLines, boundedRuns, trackedProcesses}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the default
// gatherer. The caller wires the route and server.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op until Register
// has been called so embedding the engine never requires metrics.

func IncStart() {
	if regOK.Load() {
		processStarts.Inc()
	}
}

func IncLaunchFailure() {
	if regOK.Load() {
		launchFailures.Inc()
	}
}

func IncStop() {
	if regOK.Load() {
		processStops.Inc()
	}
}

func IncCapturedLines(stream string) {
	if regOK.Load() {
		capturedLines.WithLabelValues(stream).Inc()
	}
}

func IncBoundedRun(outcome string) {
	if regOK.Load() {
		boundedRuns.WithLabelValues(outcome).Inc()
	}
}

func SetTracked(n int) {
	if regOK.Load() {
		trackedProcesses.Set(float64(n))
	}
}
