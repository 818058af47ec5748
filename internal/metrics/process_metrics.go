package metrics

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// TrackedProc identifies one live process the sampler should observe.
type TrackedProc struct {
	PID  int
	Name string
}

// Sampler periodically publishes CPU and memory gauges for the processes the
// registry currently tracks. Observation only; nothing here enforces limits.
type Sampler struct {
	interval time.Duration
	snapshot func() []TrackedProc

	cpuPercent *prometheus.GaugeVec
	memoryMB   *prometheus.GaugeVec

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSampler creates a sampler polling snapshot() every interval.
func NewSampler(interval time.Duration, snapshot func() []TrackedProc) *Sampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Sampler{
		interval: interval,
		snapshot: snapshot,
		cpuPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "captr",
			Subsystem: "process",
			Name:      "cpu_percent",
			Help:      "CPU usage percent of a tracked process.",
		}, []string{"name", "pid"}),
		memoryMB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "captr",
			Subsystem: "process",
			Name:      "memory_mb",
			Help:      "Resident memory of a tracked process in MB.",
		}, []string{"name", "pid"}),
		stopCh: make(chan struct{}),
	}
}

// Register registers the sampler gauges.
func (s *Sampler) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{s.cpuPercent, s.memoryMB} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the sampling loop.
func (s *Sampler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-t.C:
				s.collect()
			}
		}
	}()
}

// Stop ends the sampling loop and waits for it to finish.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Sampler) collect() {
	s.cpuPercent.Reset()
	s.memoryMB.Reset()
	for _, tp := range s.snapshot() {
		p, err := process.NewProcess(int32(tp.PID))
		if err != nil {
			continue // exited between snapshot and sample
		}
		pidLabel := strconv.Itoa(tp.PID)
		if cpu, err := p.CPUPercent(); err == nil {
			s.cpuPercent.WithLabelValues(tp.Name, pidLabel).Set(cpu)
		}
		mi, err := p.MemoryInfo()
		if err != nil {
			slog.Debug("process memory sample failed", "pid", tp.PID, "error", err)
			continue
		}
		s.memoryMB.WithLabelValues(tp.Name, pidLabel).Set(float64(mi.RSS) / (1024 * 1024))
	}
}
