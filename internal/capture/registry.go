package capture

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// Registry is the thread-safe pid -> Record store. It is constructed once
// per hosting program and owns record creation naming and removal; there is
// no package-level state.
type Registry struct {
	mu      sync.Mutex
	procs   map[int]*Record
	counter atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{procs: make(map[int]*Record)}
}

// nextName generates an auto name for processes started without one.
func (g *Registry) nextName() string {
	return "process_" + strconv.FormatUint(g.counter.Add(1), 10)
}

// Register inserts a record. A pid that is still tracked is an invariant
// violation (see DuplicateProcessError).
func (g *Registry) Register(r *Record) error {
	pid := r.PID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.procs[pid]; ok {
		return &DuplicateProcessError{PID: pid}
	}
	g.procs[pid] = r
	return nil
}

// Get returns the record for pid.
func (g *Registry) Get(pid int) (*Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.procs[pid]
	if !ok {
		return nil, &NotFoundError{PID: pid}
	}
	return r, nil
}

// List returns a point-in-time snapshot of tracked records ordered by pid.
func (g *Registry) List() []*Record {
	g.mu.Lock()
	out := make([]*Record, 0, len(g.procs))
	for _, r := range g.procs {
		out = append(out, r)
	}
	g.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PID() < out[j].PID() })
	return out
}

// Len reports the number of tracked records.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.procs)
}

// Remove deletes a record, but only once its process has exited and both
// stream readers have finished. Removing earlier would drop in-flight
// output.
func (g *Registry) Remove(pid int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.procs[pid]
	if !ok {
		return &NotFoundError{PID: pid}
	}
	if !removable(r) {
		return &ProcessStillActiveError{PID: pid}
	}
	delete(g.procs, pid)
	return nil
}

// CleanupCompleted removes every record eligible for removal and returns how
// many were dropped.
func (g *Registry) CleanupCompleted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for pid, r := range g.procs {
		if removable(r) {
			delete(g.procs, pid)
			n++
		}
	}
	return n
}

func removable(r *Record) bool {
	if _, exited := r.ExitCode(); !exited {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captureDone
}
