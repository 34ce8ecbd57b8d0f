// Package poller drives poll cycles on a fixed period.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/metrics"
	"github.com/brianly1003/sftplister/internal/pipeline"
	"github.com/brianly1003/sftplister/internal/sync"
	"github.com/rs/zerolog/log"
)

// CycleRunner runs one poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*pipeline.Result, error)
}

// Config configures a Poller.
type Config struct {
	Interval     time.Duration
	RunOnStart   bool
	CycleTimeout time.Duration // 0 means cycles are bounded only by the lister's own timeouts
}

// Status is a snapshot of the poller state.
type Status struct {
	Running      bool      `json:"running"`
	Busy         bool      `json:"busy"`
	IntervalMS   int64     `json:"interval_ms"`
	Cycles       int64     `json:"cycles"`
	Completed    int64     `json:"completed"`
	Failed       int64     `json:"failed"`
	Skipped      int64     `json:"skipped"`
	LastCycleAt  time.Time `json:"last_cycle_at,omitempty"`
	LastAccepted int       `json:"last_accepted"`
	LastError    string    `json:"last_error,omitempty"`
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Poller triggers a cycle every interval. Cycles never overlap: a trigger
// that arrives while a cycle runs is skipped, not queued.
type Poller struct {
	runner CycleRunner
	cfg    Config

	busy atomic.Bool

	mu     sync.Mutex
	state  state
	cancel context.CancelFunc
	base   context.Context
	wg     sync.WaitGroup

	cycles    int64
	completed int64
	failed    int64
	skipped   int64
	lastAt    time.Time
	lastRes   *pipeline.Result
	lastErr   error
}

// New creates a poller around runner.
func New(runner CycleRunner, cfg Config) *Poller {
	return &Poller{
		runner: runner,
		cfg:    cfg,
	}
}

// Start begins the polling loop. Cancelling ctx stops triggering new
// cycles; use Stop to also wait for the in-flight one.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateRunning:
		return nil
	case stateStopped:
		return domain.ErrPollerNotRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.base = context.WithoutCancel(ctx)
	p.state = stateRunning

	p.wg.Add(1)
	go p.loop(loopCtx)

	log.Info().
		Dur("interval", p.cfg.Interval).
		Bool("run_on_start", p.cfg.RunOnStart).
		Msg("poller started")
	return nil
}

// Stop halts the loop and waits for an in-flight cycle to finish.
// No cycle starts after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == stateRunning && p.cancel != nil {
		p.cancel()
	}
	wasRunning := p.state == stateRunning
	p.state = stateStopped
	p.mu.Unlock()

	p.wg.Wait()

	if wasRunning {
		log.Info().Msg("poller stopped")
	}
}

// TriggerNow runs one cycle synchronously. It fails with
// ErrCycleInProgress if a cycle is running and ErrPollerNotRunning after
// Stop. It may be used without Start.
func (p *Poller) TriggerNow(ctx context.Context) (*pipeline.Result, error) {
	p.mu.Lock()
	if p.state == stateStopped {
		p.mu.Unlock()
		return nil, domain.ErrPollerNotRunning
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.mu.Unlock()
		p.recordSkip("manual")
		return nil, domain.ErrCycleInProgress
	}
	p.wg.Add(1)
	p.mu.Unlock()

	defer p.wg.Done()
	defer p.busy.Store(false)

	return p.runCycle(ctx)
}

// Status returns a snapshot of the poller state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		Running:     p.state == stateRunning,
		Busy:        p.busy.Load(),
		IntervalMS:  p.cfg.Interval.Milliseconds(),
		Cycles:      p.cycles,
		Completed:   p.completed,
		Failed:      p.failed,
		Skipped:     p.skipped,
		LastCycleAt: p.lastAt,
	}
	if p.lastRes != nil {
		s.LastAccepted = p.lastRes.Accepted
	}
	if p.lastErr != nil {
		s.LastError = p.lastErr.Error()
	}
	return s
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	if p.cfg.RunOnStart {
		p.trigger("start")
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.trigger("tick")
		}
	}
}

// trigger starts a background cycle unless one is running.
func (p *Poller) trigger(reason string) {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.mu.Unlock()
		p.recordSkip(reason)
		return
	}
	p.wg.Add(1)
	base := p.base
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)
		// The cycle context ignores Stop so an in-flight cycle completes.
		_, _ = p.runCycle(base)
	}()
}

func (p *Poller) runCycle(ctx context.Context) (*pipeline.Result, error) {
	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}

	res, err := p.runner.RunCycle(ctx)

	p.mu.Lock()
	p.cycles++
	if err != nil {
		p.failed++
	} else {
		p.completed++
	}
	p.lastAt = time.Now()
	p.lastRes = res
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("poll cycle failed")
	}
	return res, err
}

func (p *Poller) recordSkip(reason string) {
	p.mu.Lock()
	p.skipped++
	p.mu.Unlock()

	metrics.RecordCycleSkipped()
	log.Debug().Str("reason", reason).Msg("cycle still running, trigger skipped")
}
