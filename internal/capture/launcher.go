package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loykin/captr/internal/logger"
	"github.com/loykin/captr/internal/metrics"
)

// LaunchSpec describes one process to start.
type LaunchSpec struct {
	Path    string            `json:"path"`
	Args    []string          `json:"args"`
	WorkDir string            `json:"work_dir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Name    string            `json:"name,omitempty"`
}

// Launcher spawns processes and wires their lifecycle into the registry:
// two independent stream readers plus one monitor goroutine per process.
type Launcher struct {
	reg    *Registry
	mirror logger.MirrorConfig
	onExit func(*Record)
}

func NewLauncher(reg *Registry) *Launcher {
	return &Launcher{reg: reg}
}

// SetMirror enables rotating per-process copies of the raw streams.
func (l *Launcher) SetMirror(cfg logger.MirrorConfig) { l.mirror = cfg }

// SetExitHook installs a callback invoked by the monitor after the exit code
// has been recorded on the record.
func (l *Launcher) SetExitHook(fn func(*Record)) { l.onExit = fn }

// Launch validates the spec, starts the process and registers its record.
// The record is fully constructed and registered before the pid is returned,
// so a caller can query it immediately. Any failure before that point is a
// LaunchError and leaves nothing behind.
func (l *Launcher) Launch(spec LaunchSpec) (*Record, error) {
	path, err := resolveExecutable(spec.Path)
	if err != nil {
		metrics.IncLaunchFailure()
		return nil, &LaunchError{Path: spec.Path, Err: err}
	}
	cwd, err := resolveWorkDir(spec.WorkDir, path)
	if err != nil {
		metrics.IncLaunchFailure()
		return nil, &LaunchError{Path: spec.Path, Err: err}
	}

	command := append([]string{path}, spec.Args...)
	// #nosec G204 -- executing caller-supplied commands is the purpose here
	cmd := exec.Command(path, spec.Args...)
	cmd.Dir = cwd
	env := mergedEnv(spec.Env)
	cmd.Env = env
	configureSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		metrics.IncLaunchFailure()
		return nil, &LaunchError{Path: spec.Path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		metrics.IncLaunchFailure()
		return nil, &LaunchError{Path: spec.Path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		metrics.IncLaunchFailure()
		return nil, &LaunchError{Path: spec.Path, Err: err}
	}

	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = l.reg.nextName()
	}
	rec := newRecord(cmd, name, command, cwd, env)
	if err := l.reg.Register(rec); err != nil {
		// Should not happen while the pid is alive; reap the orphan so it
		// does not linger untracked.
		_ = cmd.Process.Kill()
		go func() { _ = cmd.Wait() }()
		return nil, err
	}

	outW, errW := l.mirror.Writers(name)
	go (&streamReader{rec: rec, stream: streamStdout, r: stdout, mirror: outW}).run()
	go (&streamReader{rec: rec, stream: streamStderr, r: stderr, mirror: errW}).run()
	go l.monitor(rec)

	slog.Info("process started", "name", name, "pid", rec.PID(), "path", path, "work_dir", cwd)
	metrics.IncStart()
	metrics.SetTracked(l.reg.Len())
	return rec, nil
}

// monitor owns cmd.Wait for the process. It must not run before both stream
// readers hit end-of-stream: Wait closes the pipes and would race the drain.
func (l *Launcher) monitor(rec *Record) {
	<-rec.captureDoneChan()
	err := rec.cmd.Wait()
	code := exitCodeOf(err)
	rec.markExited(code)
	slog.Info("process exited", "name", rec.Name(), "pid", rec.PID(), "exit_code", code)
	if l.onExit != nil {
		l.onExit(rec)
	}
}

// exitCodeOf maps a cmd.Wait error to an exit code; a signal death reports
// -1, matching exec.ExitError.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// resolveExecutable makes the path absolute and requires an existing regular
// file, so spawn failures surface synchronously instead of from the child.
func resolveExecutable(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("executable path is required")
	}
	if !filepath.IsAbs(p) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		p = abs
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("executable not found: %s", p)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("path is not a regular file: %s", p)
	}
	return p, nil
}

// resolveWorkDir validates the requested working directory, defaulting to
// the executable's directory like the standalone tool behavior.
func resolveWorkDir(dir, exePath string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return filepath.Dir(exePath), nil
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("invalid working directory: %s", dir)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("working directory is not a directory: %s", dir)
	}
	return dir, nil
}

// mergedEnv layers the overrides on top of the ambient environment. Sorted
// for determinism; later duplicates would win in exec, but the map form
// guarantees there are none.
func mergedEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return os.Environ()
	}
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range overrides {
		m[k] = v
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
