package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loykin/captr"
)

func newFakeAPI(t *testing.T) (*httptest.Server, *APIClient) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/start", func(w http.ResponseWriter, r *http.Request) {
		var spec captr.LaunchSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid JSON"})
			return
		}
		_ = json.NewEncoder(w).Encode(captr.StartResult{
			Name: "process_1", PID: 4242, Command: append([]string{spec.Path}, spec.Args...), WorkDir: "/bin",
		})
	})
	mux.HandleFunc("/api/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pid") != "4242" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no tracked process with pid " + r.URL.Query().Get("pid")})
			return
		}
		_ = json.NewEncoder(w).Encode(captr.CaptureView{PID: 4242, Name: "process_1", Alive: true,
			Stdout: []captr.Line{{At: time.Now(), Text: "hello"}}, StdoutTotal: 1})
	})
	mux.HandleFunc("/api/stop", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(captr.StopResult{PID: 4242, Name: "process_1", ExitCode: -1})
	})
	mux.HandleFunc("/api/list", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]captr.Summary{{PID: 4242, Name: "process_1", Alive: true}})
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(captr.Status{PID: 4242, Name: "process_1", Alive: true, StartedAt: time.Now()})
	})
	mux.HandleFunc("/api/run", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Timeout string `json:"timeout"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Timeout != "2s" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unexpected timeout " + req.Timeout})
			return
		}
		code := 0
		_ = json.NewEncoder(w).Encode(captr.Outcome{Kind: captr.OutcomeCompleted, PID: 4242, ExitCode: &code})
	})
	mux.HandleFunc("/api/cleanup", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"removed": 3})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewAPIClient(srv.URL+"/api", time.Second)
}

func TestClientRoundTrips(t *testing.T) {
	_, c := newFakeAPI(t)

	res, err := c.Start(captr.LaunchSpec{Path: "/bin/sh", Args: []string{"-c", "true"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.PID != 4242 || res.Command[0] != "/bin/sh" {
		t.Fatalf("start result = %+v", res)
	}

	view, err := c.Capture(4242, 5)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if view.StdoutTotal != 1 || view.Stdout[0].Text != "hello" {
		t.Fatalf("capture view = %+v", view)
	}

	stop, err := c.Stop(4242)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stop.ExitCode != -1 {
		t.Fatalf("stop result = %+v", stop)
	}

	list, err := c.List()
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v err %v", list, err)
	}

	st, err := c.Status(4242)
	if err != nil || st.PID != 4242 {
		t.Fatalf("status = %+v err %v", st, err)
	}

	out, err := c.Run(captr.LaunchSpec{Path: "/bin/sh"}, 2*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Kind != captr.OutcomeCompleted {
		t.Fatalf("run outcome = %+v", out)
	}

	n, err := c.Cleanup()
	if err != nil || n != 3 {
		t.Fatalf("cleanup = %d err %v", n, err)
	}
}

func TestClientErrorDecoding(t *testing.T) {
	_, c := newFakeAPI(t)
	_, err := c.Capture(1, 5)
	if err == nil {
		t.Fatalf("missing pid accepted")
	}
	if got := err.Error(); got != "API error: no tracked process with pid 1" {
		t.Fatalf("error = %q", got)
	}
}

func TestClientDefaults(t *testing.T) {
	c := NewAPIClient("", 0)
	if c.baseURL != "http://localhost:8080/api" {
		t.Fatalf("default base URL = %q", c.baseURL)
	}
	if c.client.Timeout <= captr.DefaultCheckpointInterval {
		t.Fatalf("default timeout %v must exceed the checkpoint interval", c.client.Timeout)
	}
}
