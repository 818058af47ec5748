package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/loykin/captr"
)

// APIClient talks to a running captr daemon over HTTP.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a new API client.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080/api"
	}
	if timeout == 0 {
		// Bounded runs block up to the checkpoint interval plus the stop
		// escalation.
		timeout = captr.DefaultCheckpointInterval + captr.DefaultGracefulTimeout + 10*time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Start(spec captr.LaunchSpec) (captr.StartResult, error) {
	var res captr.StartResult
	err := c.postJSON("/start", spec, &res)
	return res, err
}

func (c *APIClient) Capture(pid, lines int) (captr.CaptureView, error) {
	q := url.Values{"pid": {strconv.Itoa(pid)}}
	if lines > 0 {
		q.Set("lines", strconv.Itoa(lines))
	}
	var view captr.CaptureView
	err := c.getJSON("/capture?"+q.Encode(), &view)
	return view, err
}

func (c *APIClient) Stop(pid int) (captr.StopResult, error) {
	var res captr.StopResult
	err := c.postJSON("/stop?pid="+strconv.Itoa(pid), nil, &res)
	return res, err
}

func (c *APIClient) List() ([]captr.Summary, error) {
	var out []captr.Summary
	err := c.getJSON("/list", &out)
	return out, err
}

func (c *APIClient) Status(pid int) (captr.Status, error) {
	var st captr.Status
	err := c.getJSON("/status?pid="+strconv.Itoa(pid), &st)
	return st, err
}

type runRequest struct {
	captr.LaunchSpec
	Timeout string `json:"timeout,omitempty"`
}

func (c *APIClient) Run(spec captr.LaunchSpec, timeout time.Duration) (captr.Outcome, error) {
	req := runRequest{LaunchSpec: spec}
	if timeout > 0 {
		req.Timeout = timeout.String()
	}
	var out captr.Outcome
	err := c.postJSON("/run", req, &out)
	return out, err
}

func (c *APIClient) Cleanup() (int, error) {
	var res struct {
		Removed int `json:"removed"`
	}
	err := c.postJSON("/cleanup", nil, &res)
	return res.Removed, err
}

func (c *APIClient) getJSON(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *APIClient) postJSON(path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := c.client.Post(c.baseURL+path, "application/json", &buf)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
			return fmt.Errorf("API error: status %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
