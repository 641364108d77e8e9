package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/skillindex/pkg/pipeline"
)

// fakeRunner records the options it was called with and returns fn's result.
type fakeRunner struct {
	mu    sync.Mutex
	calls []pipeline.Options
	fn    func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

func (f *fakeRunner) Execute(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, opts)
	}
	return &pipeline.Result{Errors: []string{}, Topics: opts.Topics, MaxPages: opts.MaxPages, DryRun: opts.DryRun, RunID: opts.RunID}, nil
}

func newTestServer(t *testing.T, runner Runner, timeout time.Duration) *httptest.Server {
	t.Helper()
	s, err := New(runner, nil, timeout)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/index", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, m
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{}, 0)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, opts pipeline.Options)
	}{
		{
			name:       "empty body uses defaults",
			body:       "",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, opts pipeline.Options) {
				if len(opts.Topics) != 3 || opts.MaxPages != 3 || !opts.Strict() || opts.DryRun {
					t.Errorf("opts = %+v", opts)
				}
			},
		},
		{
			name:       "all fields",
			body:       `{"topics":["agent-skills"],"maxPages":2,"dryRun":true,"strictValidation":false,"minContentLength":40,"maxRepos":5}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, opts pipeline.Options) {
				if opts.Topics[0] != "agent-skills" || opts.MaxPages != 2 || !opts.DryRun ||
					opts.Strict() || opts.MinContentLength != 40 || opts.MaxRepos != 5 {
					t.Errorf("opts = %+v", opts)
				}
			},
		},
		{
			name:       "max pages above the limit is capped",
			body:       `{"maxPages":25}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, opts pipeline.Options) {
				if opts.MaxPages != pipeline.MaxPagesLimit {
					t.Errorf("MaxPages = %d", opts.MaxPages)
				}
			},
		},
		{name: "unknown field", body: `{"topic":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "wrong type", body: `{"dryRun":"yes"}`, wantStatus: http.StatusBadRequest},
		{name: "bad topic", body: `{"topics":["Has Spaces"]}`, wantStatus: http.StatusBadRequest},
		{name: "zero pages", body: `{"maxPages":0}`, wantStatus: http.StatusBadRequest},
		{name: "not json", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			ts := newTestServer(t, runner, 0)

			resp, body := post(t, ts, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %v)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantStatus != http.StatusOK {
				if len(runner.calls) != 0 {
					t.Error("runner called for a rejected request")
				}
				if body["error"] == "" || body["code"] == "" {
					t.Errorf("error body = %v", body)
				}
				return
			}
			if len(runner.calls) != 1 {
				t.Fatalf("runner calls = %d", len(runner.calls))
			}
			if _, ok := body["repositories_found"]; !ok {
				t.Errorf("response is not a run result: %v", body)
			}
			tt.check(t, runner.calls[0])
		})
	}
}

func TestIndexRejectsOverlappingRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runner := &fakeRunner{fn: func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
		close(started)
		<-release
		return &pipeline.Result{Errors: []string{}}, nil
	}}
	ts := newTestServer(t, runner, 0)

	done := make(chan int)
	go func() {
		resp, err := http.Post(ts.URL+"/v1/index", "application/json", nil)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-started

	resp, body := post(t, ts, "{}")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("overlapping run status = %d, want 409", resp.StatusCode)
	}
	if body["code"] != "CONFLICT" {
		t.Errorf("code = %v", body["code"])
	}

	close(release)
	if status := <-done; status != http.StatusOK {
		t.Errorf("first run status = %d", status)
	}
}

func TestIndexPanicHasCorrelationID(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, pipeline.Options) (*pipeline.Result, error) {
		panic("boom")
	}}
	ts := newTestServer(t, runner, 0)

	resp, body := post(t, ts, "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if id, _ := body["correlation_id"].(string); len(id) != 36 {
		t.Errorf("correlation_id = %v", body["correlation_id"])
	}
	if strings.Contains(body["error"].(string), "boom") {
		t.Error("panic value leaked to the client")
	}

	// The lock is released after a panic.
	runner.fn = nil
	if resp, _ := post(t, ts, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("run after panic status = %d", resp.StatusCode)
	}
}

func TestIndexTimeout(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
		<-ctx.Done()
		return &pipeline.Result{Errors: []string{}, Indexed: 1}, ctx.Err()
	}}
	ts := newTestServer(t, runner, 20*time.Millisecond)

	resp, body := post(t, ts, "")
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["indexed"] != float64(1) {
		t.Errorf("partial result not returned: %v", body)
	}
}

func TestIndexMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{}, 0)
	resp, err := http.Get(ts.URL + "/v1/index")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
