package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/pipeline"
	"github.com/brianly1003/sftplister/internal/security"
	"github.com/brianly1003/sftplister/internal/server/http/middleware"
)

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	s := New(Options{Host: "127.0.0.1", Port: 0})

	rec := do(t, s.Handler(), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if _, ok := body["time"]; !ok {
		t.Error("missing time field")
	}
}

func TestServer_HealthMethodNotAllowed(t *testing.T) {
	s := New(Options{})

	rec := do(t, s.Handler(), http.MethodPost, "/health")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServer_Status(t *testing.T) {
	s := New(Options{
		Status: func(ctx context.Context) map[string]interface{} {
			return map[string]interface{}{"remote_dir": "/in/", "seen": 3}
		},
	})

	rec := do(t, s.Handler(), http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["remote_dir"] != "/in/" || body["seen"] != float64(3) {
		t.Errorf("body = %v", body)
	}
}

func TestServer_Poll(t *testing.T) {
	result := &pipeline.Result{
		Cycle:     1,
		RemoteDir: "/in/",
		Listed:    3,
		Filtered:  2,
		Accepted:  2,
		Files: []events.FileEvent{
			{RemoteDirectory: "/in/", RemoteFile: "a"},
			{RemoteDirectory: "/in/", RemoteFile: "b"},
		},
	}

	tests := []struct {
		name     string
		res      *pipeline.Result
		err      error
		wantCode int
		wantErr  string
	}{
		{"success", result, nil, http.StatusOK, ""},
		{"in progress", nil, domain.ErrCycleInProgress, http.StatusConflict, domain.ErrCycleInProgress.Error()},
		{"stopped", nil, domain.ErrPollerNotRunning, http.StatusServiceUnavailable, domain.ErrPollerNotRunning.Error()},
		{"cycle failed", &pipeline.Result{Cycle: 2, RemoteDir: "/in/"}, domain.NewListError("/in/", errors.New("connection refused")), http.StatusBadGateway, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{
				Poll: func(ctx context.Context) (*pipeline.Result, error) {
					return tt.res, tt.err
				},
			})

			rec := do(t, s.Handler(), http.MethodPost, "/api/poll")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var body struct {
				Result *pipeline.Result `json:"result"`
				Error  string           `json:"error"`
			}
			decode(t, rec, &body)
			if !strings.Contains(body.Error, tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", body.Error, tt.wantErr)
			}
			if tt.err == nil {
				if body.Result == nil || body.Result.Accepted != 2 || len(body.Result.Files) != 2 {
					t.Errorf("result = %+v", body.Result)
				}
			}
		})
	}
}

func TestServer_PollOutlivesClient(t *testing.T) {
	var cycleErr error
	s := New(Options{
		Poll: func(ctx context.Context) (*pipeline.Result, error) {
			cycleErr = ctx.Err()
			return &pipeline.Result{}, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/poll", nil).WithContext(ctx)
	req.RemoteAddr = "127.0.0.1:40000"
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if cycleErr != nil {
		t.Errorf("cycle context error = %v, want nil after client hang-up", cycleErr)
	}
}

func TestServer_PollWithoutPoller(t *testing.T) {
	s := New(Options{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/poll")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestServer_PollRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.WithMaxRequests(1))
	defer limiter.Close()

	s := New(Options{
		PollLimiter: limiter,
		Poll: func(ctx context.Context) (*pipeline.Result, error) {
			return &pipeline.Result{}, nil
		},
	})

	if rec := do(t, s.Handler(), http.MethodPost, "/api/poll"); rec.Code != http.StatusOK {
		t.Fatalf("first poll status = %d, want 200", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodPost, "/api/poll"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second poll status = %d, want 429", rec.Code)
	}
	// Other routes are not limited.
	if rec := do(t, s.Handler(), http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	enabled := New(Options{Metrics: true})
	rec := do(t, enabled.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sftplister_cycles_skipped_total") {
		t.Error("metrics output should include sftplister collectors")
	}

	disabled := New(Options{Metrics: false})
	if rec := do(t, disabled.Handler(), http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("status with metrics disabled = %d, want 404", rec.Code)
	}
}

func TestServer_Stream(t *testing.T) {
	called := false
	s := New(Options{
		Stream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		}),
	})

	rec := do(t, s.Handler(), http.MethodGet, "/ws")
	if !called || rec.Code != http.StatusTeapot {
		t.Errorf("stream handler called = %v, status = %d", called, rec.Code)
	}
}

func TestServer_CORS(t *testing.T) {
	s := New(Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign origin status = %d, want 403", rec.Code)
	}
}

func TestServer_CORSAllowList(t *testing.T) {
	s := New(Options{Origins: security.NewOriginChecker([]string{"https://dash.example.com"})})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "https://dash.example.com" {
		t.Errorf("allowed origin: status = %d, Allow-Origin = %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(50 * time.Millisecond)
	})
	h := timeoutMiddleware(20*time.Millisecond, slow)

	rec := do(t, h, http.MethodGet, "/api/status")
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestServer_ListenServeStop(t *testing.T) {
	s := New(Options{Host: "127.0.0.1", Port: 0})
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- s.Serve() }()

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := <-served; err != nil {
		t.Errorf("Serve() error = %v, want nil after Stop", err)
	}
}

func TestServer_ServeBeforeListen(t *testing.T) {
	s := New(Options{})
	if err := s.Serve(); err == nil {
		t.Error("Serve() before Listen should fail")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Listen error = %v", err)
	}
}

func TestServer_SwaggerDoc(t *testing.T) {
	s := New(Options{})

	rec := do(t, s.Handler(), http.MethodGet, "/swagger/doc.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var doc struct {
		Paths map[string]interface{} `json:"paths"`
	}
	decode(t, rec, &doc)
	if _, ok := doc.Paths["/api/poll"]; !ok {
		t.Error("doc.json does not describe /api/poll")
	}
}

func TestServer_SwaggerUI(t *testing.T) {
	s := New(Options{})

	rec := do(t, s.Handler(), http.MethodGet, "/swagger/index.html")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Error("index.html does not mount the swagger UI")
	}
}
