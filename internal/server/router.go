package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/captr/internal/capture"
)

// Router provides embeddable HTTP handlers for the capture engine.
// Endpoints:
//
//	POST {basePath}/start    body: LaunchSpec JSON
//	GET  {basePath}/capture  query: pid=...&lines=50
//	POST {basePath}/stop     query: pid=...
//	GET  {basePath}/list
//	GET  {basePath}/status   query: pid=...
//	POST {basePath}/run      body: RunRequest JSON
//	POST {basePath}/cleanup
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	mgr      *capture.Manager
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(mgr *capture.Manager, basePath string) *Router {
	return &Router{mgr: mgr, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.GET("/capture", r.handleCapture)
	group.POST("/stop", r.handleStop)
	group.GET("/list", r.handleList)
	group.GET("/status", r.handleStatus)
	group.POST("/run", r.handleRun)
	group.POST("/cleanup", r.handleCleanup)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, mgr *capture.Manager) (*http.Server, error) {
	r := NewRouter(mgr, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Bounded runs block up to the checkpoint interval plus the stop
		// escalation, so the write timeout must exceed both.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type cleanupResp struct {
	Removed int `json:"removed"`
}

// RunRequest is the body of a bounded run. Timeout accepts a Go duration
// string; empty means the checkpoint interval itself (which terminates the
// process if it is still alive at the checkpoint).
type RunRequest struct {
	capture.LaunchSpec
	Timeout string `json:"timeout,omitempty"`
}

func (r *Router) handleStart(c *gin.Context) {
	var spec capture.LaunchSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !validateSpec(c, spec) {
		return
	}
	res, err := r.mgr.Start(spec)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (r *Router) handleCapture(c *gin.Context) {
	pid, ok := pidParam(c)
	if !ok {
		return
	}
	lines := 0
	if s := c.Query("lines"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid lines param"})
			return
		}
		lines = n
	}
	view, err := r.mgr.Capture(pid, lines)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (r *Router) handleStop(c *gin.Context) {
	pid, ok := pidParam(c)
	if !ok {
		return
	}
	res, err := r.mgr.Stop(pid)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (r *Router) handleList(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.mgr.List())
}

func (r *Router) handleStatus(c *gin.Context) {
	pid, ok := pidParam(c)
	if !ok {
		return
	}
	st, err := r.mgr.Status(pid)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (r *Router) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !validateSpec(c, req.LaunchSpec) {
		return
	}
	timeout := capture.DefaultCheckpointInterval
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid timeout duration"})
			return
		}
		timeout = d
	}
	out, err := r.mgr.RunBounded(req.LaunchSpec, timeout)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleCleanup(c *gin.Context) {
	writeJSON(c, http.StatusOK, cleanupResp{Removed: r.mgr.Cleanup()})
}

// validateSpec rejects unsafe names and relative or traversal paths before
// they reach the filesystem.
func validateSpec(c *gin.Context, spec capture.LaunchSpec) bool {
	if spec.Path == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "path required"})
		return false
	}
	if spec.Name != "" && !isSafeName(spec.Name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return false
	}
	if !isSafeAbsPath(spec.Path) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid path: must be absolute path without traversal"})
		return false
	}
	if spec.WorkDir != "" && !isSafeAbsPath(spec.WorkDir) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid work_dir: must be absolute path without traversal"})
		return false
	}
	return true
}

func pidParam(c *gin.Context) (int, bool) {
	s := c.Query("pid")
	if s == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "pid query param required"})
		return 0, false
	}
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid pid"})
		return 0, false
	}
	return pid, true
}

// writeError maps the engine error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var nf *capture.NotFoundError
	var le *capture.LaunchError
	var sa *capture.ProcessStillActiveError
	var te *capture.TerminationError
	switch {
	case errors.As(err, &nf):
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.As(err, &le):
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
	case errors.As(err, &sa):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.As(err, &te):
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}
