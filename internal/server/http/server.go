// Package http implements the HTTP API server for sftplister.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/metrics"
	"github.com/brianly1003/sftplister/internal/pipeline"
	"github.com/brianly1003/sftplister/internal/security"
	_ "github.com/brianly1003/sftplister/internal/server/http/docs"
	"github.com/brianly1003/sftplister/internal/server/http/middleware"
	"github.com/brianly1003/sftplister/internal/sync"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

const requestTimeout = 10 * time.Second

// StatusFunc returns the body of GET /api/status.
type StatusFunc func(ctx context.Context) map[string]interface{}

// PollFunc runs one poll cycle on demand.
type PollFunc func(ctx context.Context) (*pipeline.Result, error)

// Options configures a Server.
type Options struct {
	Host   string
	Port   int
	Logger *slog.Logger

	Status StatusFunc
	Poll   PollFunc

	// Stream serves GET /ws when set.
	Stream http.Handler

	// PollLimiter rate limits POST /api/poll when set.
	PollLimiter *middleware.RateLimiter

	// Origins guards browser requests; nil allows loopback origins only.
	Origins *security.OriginChecker

	Metrics bool
	Pprof   bool
}

// PollResponse is the body of POST /api/poll.
type PollResponse struct {
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Server is the HTTP API server.
type Server struct {
	opts   Options
	addr   string
	logger *slog.Logger
	router *mux.Router

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a new HTTP server and registers its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Origins == nil {
		opts.Origins = security.NewOriginChecker(nil)
	}

	s := &Server{
		opts:   opts,
		addr:   fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	var poll http.Handler = http.HandlerFunc(s.handlePoll)
	if opts.PollLimiter != nil {
		poll = middleware.RateLimitMiddleware(opts.PollLimiter, middleware.IPKeyExtractor)(poll)
	}
	api.Handle("/poll", poll).Methods(http.MethodPost)

	if opts.Metrics {
		s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	if opts.Stream != nil {
		s.router.Handle("/ws", opts.Stream)
	}
	NewDebugHandler(opts.Pprof).Register(s.router)

	// Swagger UI (REST API docs)
	s.router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	// request -> logging -> timeout -> cors -> router
	var handler http.Handler = s.router
	handler = corsMiddleware(s.opts.Origins, handler)
	handler = timeoutMiddleware(requestTimeout, handler)
	handler = s.requestLoggingMiddleware(handler)
	return handler
}

// Listen binds the listening socket so address errors surface before Serve.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve accepts connections until Stop. It returns nil after a graceful stop.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, ln := s.httpServer, s.listener
	s.mu.Unlock()

	if srv == nil {
		return errors.New("http server: Serve called before Listen")
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("HTTP server stopping")
	return srv.Shutdown(ctx)
}

// handleHealth handles GET /health
//
//	@Summary		Health check
//	@Description	Returns ok and the server time
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus handles GET /api/status
//
//	@Summary		Get lister status
//	@Description	Returns the poller, store and sink state
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/api/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Status(r.Context()))
}

// handlePoll handles POST /api/poll. It runs a cycle and answers with its
// result: 409 when a cycle is already running, 503 once the poller has
// stopped, 502 when the cycle itself failed.
//
//	@Summary		Run a poll cycle
//	@Description	Runs one listing cycle now and returns its result
//	@Tags			poll
//	@Produce		json
//	@Success		200	{object}	PollResponse
//	@Failure		409	{object}	map[string]string
//	@Failure		429	{object}	map[string]string
//	@Failure		502	{object}	PollResponse
//	@Failure		503	{object}	map[string]string
//	@Router			/api/poll [post]
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if s.opts.Poll == nil {
		writeJSONError(w, "polling is not available", http.StatusServiceUnavailable)
		return
	}

	// A client hanging up must not cancel a cycle that may have recorded
	// keys; the poller's cycle timeout bounds it instead.
	res, err := s.opts.Poll(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, PollResponse{Result: res})
	case errors.Is(err, domain.ErrCycleInProgress):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrPollerNotRunning):
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Warn("manual poll failed", "error", err)
		writeJSON(w, http.StatusBadGateway, PollResponse{Result: res, Error: err.Error()})
	}
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// timeoutMiddleware bounds short requests. /ws, /api/poll and the swagger UI
// are exempt: the stream is long-lived, a cycle has its own deadlines and the
// UI assets are static.
func timeoutMiddleware(timeout time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" || r.URL.Path == "/api/poll" ||
			strings.HasPrefix(r.URL.Path, "/swagger/") ||
			strings.HasPrefix(r.URL.Path, "/debug/pprof/") {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		done := make(chan struct{})
		tw := &timeoutResponseWriter{ResponseWriter: w}

		go func() {
			next.ServeHTTP(tw, r.WithContext(ctx))
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			tw.mu.Lock()
			if !tw.written {
				tw.written = true
				tw.timedOut = true
				tw.mu.Unlock()
				writeJSONError(w, "Request timed out", http.StatusGatewayTimeout)
				return
			}
			tw.mu.Unlock()
			<-done
		}
	})
}

// timeoutResponseWriter wraps http.ResponseWriter to track if response was written.
type timeoutResponseWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	written  bool
	timedOut bool
}

func (tw *timeoutResponseWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.written {
		return
	}
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutResponseWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	tw.written = true
	return tw.ResponseWriter.Write(b)
}

// corsMiddleware rejects browser requests from origins the checker does
// not allow.
func corsMiddleware(origins *security.OriginChecker, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if !origins.Allowed(origin) {
				writeJSONError(w, "Origin not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
