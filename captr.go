// Package captr captures stdout/stderr from background processes while they
// are still running: start a process, drain its streams concurrently, query
// partial output at any time, stop it with escalating force, or run it with
// a bounded checkpoint that reports partial progress instead of blocking.
package captr

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/captr/internal/capture"
	cfg "github.com/loykin/captr/internal/config"
	"github.com/loykin/captr/internal/history"
	"github.com/loykin/captr/internal/history/factory"
	"github.com/loykin/captr/internal/logger"
	"github.com/loykin/captr/internal/metrics"
	iapi "github.com/loykin/captr/internal/server"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type LaunchSpec = capture.LaunchSpec

type StartResult = capture.StartResult

type StopResult = capture.StopResult

type CaptureView = capture.CaptureView

type Status = capture.Status

type Summary = capture.Summary

type Line = capture.Line

type Outcome = capture.Outcome

type OutcomeKind = capture.OutcomeKind

const (
	OutcomeCompleted      = capture.OutcomeCompleted
	OutcomeFailed         = capture.OutcomeFailed
	OutcomePartialTimeout = capture.OutcomePartialTimeout
	OutcomeStillRunning   = capture.OutcomeStillRunning
)

// Named engine defaults; the daemon exposes both through its config file.
const (
	DefaultCheckpointInterval = capture.DefaultCheckpointInterval
	DefaultGracefulTimeout    = capture.DefaultGracefulTimeout
)

type MirrorConfig = logger.MirrorConfig

type HistorySink = history.Sink

// Manager is a thin facade over the internal capture engine. It provides a
// stable public API for embedding.
type Manager struct{ inner *capture.Manager }

func New() *Manager { return &Manager{inner: capture.NewManager()} }

func (m *Manager) SetMirror(c MirrorConfig)            { m.inner.SetMirror(c) }
func (m *Manager) SetCheckpoint(d time.Duration)       { m.inner.SetCheckpoint(d) }
func (m *Manager) SetGrace(d time.Duration)            { m.inner.SetGrace(d) }
func (m *Manager) SetHistorySinks(s ...HistorySink)    { m.inner.SetHistorySinks(s...) }
func (m *Manager) Start(s LaunchSpec) (StartResult, error) { return m.inner.Start(s) }
func (m *Manager) Capture(pid, maxLines int) (CaptureView, error) {
	return m.inner.Capture(pid, maxLines)
}
func (m *Manager) Stop(pid int) (StopResult, error) { return m.inner.Stop(pid) }
func (m *Manager) List() []Summary                  { return m.inner.List() }
func (m *Manager) Status(pid int) (Status, error)   { return m.inner.Status(pid) }
func (m *Manager) RunBounded(s LaunchSpec, timeout time.Duration) (Outcome, error) {
	return m.inner.RunBounded(s, timeout)
}
func (m *Manager) Cleanup() int { return m.inner.Cleanup() }
func (m *Manager) Shutdown()    { m.inner.Shutdown() }

// TrackedProcs lists live processes for a metrics sampler snapshot.
func (m *Manager) TrackedProcs() []metrics.TrackedProc { return m.inner.TrackedProcs() }

// LoadConfig reads the daemon TOML configuration.
func LoadConfig(path string) (*cfg.Config, error) { return cfg.Load(path) }

// NewHistorySink creates a history sink from a DSN
// (sqlite://, postgres://, clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts an HTTP server exposing the capture API using the
// given manager.
func NewHTTPServer(addr, basePath string, m *Manager) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner)
}

// NewHTTPHandler returns a mountable handler for embedding the API into an
// existing server (gin, echo, net/http).
func NewHTTPHandler(basePath string, m *Manager) http.Handler {
	return iapi.NewRouter(m.inner, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics serves /metrics on addr using the default registry, blocking
// in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
