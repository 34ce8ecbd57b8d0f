// Package app orchestrates all components of sftplister.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brianly1003/sftplister/internal/adapters/sftp"
	"github.com/brianly1003/sftplister/internal/adapters/store"
	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/brianly1003/sftplister/internal/hub"
	"github.com/brianly1003/sftplister/internal/pipeline"
	"github.com/brianly1003/sftplister/internal/poller"
	"github.com/brianly1003/sftplister/internal/security"
	httpserver "github.com/brianly1003/sftplister/internal/server/http"
	"github.com/brianly1003/sftplister/internal/server/http/middleware"
	"github.com/brianly1003/sftplister/internal/server/websocket"
	"github.com/brianly1003/sftplister/internal/sync"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var errAlreadyStopped = errors.New("application has already been stopped")

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	// Core components
	hub        *hub.Hub
	store      ports.SeenStore
	lister     ports.DirectoryLister
	runner     *pipeline.Runner
	poller     *poller.Poller
	stream     *websocket.Handler
	limiter    *middleware.RateLimiter
	httpServer *httpserver.Server

	sink       ports.Subscriber
	sinkWriter io.Writer
	logger     *slog.Logger

	// Instance info
	instanceID string
	startTime  time.Time

	// Lifecycle
	mu      sync.Mutex
	running bool
	stopped bool
}

// Option customizes how an App is assembled.
type Option func(*App)

// WithLister replaces the SFTP lister.
func WithLister(l ports.DirectoryLister) Option {
	return func(a *App) { a.lister = l }
}

// WithStore replaces the store selected by store.driver.
func WithStore(s ports.SeenStore) Option {
	return func(a *App) { a.store = s }
}

// WithSinkWriter sends accepted files to w as JSON lines, overriding
// sink.output. w is never closed by the App.
func WithSinkWriter(w io.Writer) Option {
	return func(a *App) { a.sinkWriter = w }
}

// WithLogger sets the HTTP server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New assembles an App from configuration. The seen store is opened and
// the SFTP lister validated here, so bad settings fail before Start.
func New(ctx context.Context, cfg *config.Config, version string, opts ...Option) (*App, error) {
	a := &App{
		cfg:        cfg,
		version:    version,
		hub:        hub.New(cfg.Sink.BufferSize),
		instanceID: uuid.New().String(),
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = NewLogger(cfg.Logging.Level)
	}

	if a.lister == nil {
		lister, err := sftp.NewLister(cfg.SFTP)
		if err != nil {
			return nil, fmt.Errorf("failed to create SFTP lister: %w", err)
		}
		a.lister = lister
	}

	if a.store == nil {
		s, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open seen store: %w", err)
		}
		a.store = s
	}

	sink, err := openSink(cfg.Sink, a.sinkWriter)
	if err != nil {
		_ = a.store.Close()
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}
	a.sink = sink

	a.runner = pipeline.NewRunner(pipeline.RunnerConfig{
		Lister:    a.lister,
		Store:     a.store,
		Sink:      pipeline.NewSubscriberSink(a.sink, a.hub),
		RemoteDir: cfg.SFTP.RemoteDir,
		Discard:   pipeline.LogDiscard,
		Publisher: a.hub,
	})

	a.poller = poller.New(a.runner, poller.Config{
		Interval:     cfg.Poller.Interval(),
		RunOnStart:   cfg.Poller.RunOnStart,
		CycleTimeout: cfg.Poller.CycleTimeout(),
	})

	if cfg.Server.Enabled {
		a.stream = websocket.NewHandler(a.hub)
		if cfg.Server.PollRateLimit > 0 {
			a.limiter = middleware.NewRateLimiter(middleware.WithMaxRequests(cfg.Server.PollRateLimit))
		}
		a.httpServer = httpserver.New(httpserver.Options{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			Logger:      a.logger,
			Status:      a.Status,
			Poll:        a.poller.TriggerNow,
			Stream:      a.stream,
			PollLimiter: a.limiter,
			Origins:     security.NewOriginChecker(cfg.Server.AllowedOrigins),
			Metrics:     cfg.Metrics.Enabled,
			Pprof:       cfg.Server.Pprof,
		})
	}

	return a, nil
}

// Start runs the hub, HTTP server and poller, and blocks until ctx is
// cancelled or the server fails. Shutdown stops the poller first (the
// in-flight cycle finishes), then the server, the hub and the store.
func (a *App) Start(ctx context.Context) error {
	if err := a.begin(); err != nil {
		return err
	}
	a.startTime = time.Now()

	if err := a.startHub(); err != nil {
		a.abort()
		return err
	}

	if a.httpServer != nil {
		if err := a.httpServer.Listen(); err != nil {
			a.abort()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		a.stream.Start()
	}

	if err := a.poller.Start(ctx); err != nil {
		a.abort()
		return fmt.Errorf("failed to start poller: %w", err)
	}

	log.Info().
		Str("instance_id", a.instanceID).
		Str("target", a.lister.Target()).
		Str("remote_dir", a.cfg.SFTP.RemoteDir).
		Str("store", a.store.Driver()).
		Str("http", a.HTTPAddr()).
		Msg("sftplister ready")

	g, gctx := errgroup.WithContext(ctx)
	if a.httpServer != nil {
		g.Go(a.httpServer.Serve)
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

// RunOnce runs a single cycle through the full pipeline and flushes the
// sink before returning. It must not be combined with Start.
func (a *App) RunOnce(ctx context.Context) (*pipeline.Result, error) {
	if err := a.begin(); err != nil {
		return nil, err
	}

	if err := a.startHub(); err != nil {
		a.abort()
		return nil, err
	}

	res, err := a.poller.TriggerNow(ctx)
	if shutdownErr := a.shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return res, err
}

// begin marks the App running. An App runs at most once.
func (a *App) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return errAlreadyStopped
	}
	if a.running {
		return fmt.Errorf("application is already running")
	}
	a.running = true
	return nil
}

func (a *App) startHub() error {
	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	a.hub.Subscribe(hub.NewLogSubscriber("internal-logger", func(event events.Event) {
		log.Trace().
			Str("event_type", string(event.Type())).
			Time("timestamp", event.Timestamp()).
			Msg("event broadcast")
	}))
	return nil
}

// abort releases resources after a failed Start.
func (a *App) abort() {
	if err := a.shutdown(); err != nil {
		log.Error().Err(err).Msg("error during aborted start")
	}
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false
	a.stopped = true

	log.Info().Msg("shutting down...")

	a.poller.Stop()

	var errs []error

	if a.httpServer != nil {
		a.stream.Close()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.httpServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop HTTP server: %w", err))
		}
		cancel()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}

	if err := a.hub.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop event hub: %w", err))
	}

	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
	}

	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close seen store: %w", err))
	}

	return errors.Join(errs...)
}

// Status returns the current status for API responses.
func (a *App) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"instance_id":    a.instanceID,
		"version":        a.version,
		"target":         a.lister.Target(),
		"remote_dir":     a.cfg.SFTP.RemoteDir,
		"store_driver":   a.store.Driver(),
		"uptime_seconds": a.UptimeSeconds(),
		"poller":         a.poller.Status(),
	}

	if seen, err := a.runner.Gate().Seen(ctx); err != nil {
		status["seen_keys_error"] = err.Error()
	} else {
		status["seen_keys"] = seen
	}

	if a.stream != nil {
		status["stream_clients"] = a.stream.ClientCount()
	}
	return status
}

// HTTPAddr returns the HTTP server address, or "" when disabled.
func (a *App) HTTPAddr() string {
	if a.httpServer == nil {
		return ""
	}
	return a.httpServer.Addr()
}

// InstanceID returns the identifier generated for this process.
func (a *App) InstanceID() string {
	return a.instanceID
}

// UptimeSeconds returns how long the app has been running.
func (a *App) UptimeSeconds() int64 {
	return int64(time.Since(a.startTime).Seconds())
}
