package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/brianly1003/sftplister/internal/metrics"
	"github.com/rs/zerolog/log"
)

const seenCountTimeout = 5 * time.Second

// Publisher receives best-effort cycle status events.
type Publisher interface {
	Publish(event events.Event)
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Lister    ports.DirectoryLister
	Store     ports.SeenStore
	Sink      ports.FileSink
	RemoteDir string // absolute, ends with "/"

	// Discard receives dropped candidates. Defaults to LogDiscard.
	Discard DiscardFunc

	// Publisher, if set, receives cycle_completed / cycle_failed events.
	Publisher Publisher
}

// Result summarizes one cycle. Counts are valid even when the cycle failed.
type Result struct {
	Cycle     int64              `json:"cycle"`
	RemoteDir string             `json:"remote_dir"`
	Listed    int                `json:"listed"`
	Filtered  int                `json:"filtered"`
	Accepted  int                `json:"accepted"`
	Dropped   int                `json:"dropped"`
	Files     []events.FileEvent `json:"files"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Err       error              `json:"-"`
}

// ErrorText returns the cycle error text, or "".
func (r *Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Runner executes poll cycles. It is not safe for concurrent RunCycle
// calls; the poller guarantees one cycle at a time.
type Runner struct {
	lister    ports.DirectoryLister
	gate      *Gate
	emitter   *Emitter
	discard   DiscardFunc
	publisher Publisher
	remoteDir string

	cycles atomic.Int64
}

// NewRunner creates a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	discard := cfg.Discard
	if discard == nil {
		discard = LogDiscard
	}
	return &Runner{
		lister:    cfg.Lister,
		gate:      NewGate(cfg.Store),
		emitter:   NewEmitter(cfg.Sink),
		discard:   discard,
		publisher: cfg.Publisher,
		remoteDir: cfg.RemoteDir,
	}
}

// Gate returns the runner's dedup gate.
func (r *Runner) Gate() *Gate {
	return r.gate
}

// RemoteDir returns the directory every cycle lists.
func (r *Runner) RemoteDir() string {
	return r.remoteDir
}

// Cycles returns the number of cycles started.
func (r *Runner) Cycles() int64 {
	return r.cycles.Load()
}

// RunCycle lists the remote directory once and pushes every file not seen
// before to the sink.
//
// A listing failure aborts the cycle before anything is recorded. A store
// failure skips that candidate only; all store failures are joined into the
// returned error. A sink failure aborts the cycle at that entry and the
// recorded key is not rolled back.
func (r *Runner) RunCycle(ctx context.Context) (*Result, error) {
	res := &Result{
		Cycle:     r.cycles.Add(1),
		RemoteDir: r.remoteDir,
		StartedAt: time.Now(),
	}

	logger := log.With().Int64("cycle", res.Cycle).Str("remote_dir", r.remoteDir).Logger()

	entries, err := r.lister.List(ctx, r.remoteDir)
	if err != nil {
		var listErr *domain.ListError
		if !errors.As(err, &listErr) {
			err = domain.NewListError(r.remoteDir, err)
		}
		logger.Warn().Err(err).Msg("listing failed")
		return r.finish(res, err, metrics.ResultListError)
	}

	res.Listed = len(entries)
	metrics.RecordListed(len(entries))

	var storeErrs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return r.finish(res, errors.Join(append(storeErrs, err)...), metrics.ResultCanceled)
		}

		if !Keep(entry) {
			res.Filtered++
			metrics.RecordFiltered()
			continue
		}

		candidate := events.FileEvent{
			RemoteDirectory: r.remoteDir,
			RemoteFile:      entry.Name,
		}

		decision, err := r.gate.Classify(ctx, candidate)
		if err != nil {
			storeErrs = append(storeErrs, err)
			metrics.RecordStoreError()
			logger.Error().Err(err).Str("key", candidate.Key()).Msg("seen store failed, candidate skipped")
			continue
		}

		if decision == Drop {
			res.Dropped++
			metrics.RecordDropped()
			r.discard(candidate)
			continue
		}

		res.Accepted++
		metrics.RecordAccepted()

		if err := r.emitter.Emit(ctx, candidate); err != nil {
			metrics.RecordSinkError()
			logger.Error().Err(err).Str("remote_file", candidate.RemoteFile).Msg("sink rejected accepted file")
			storeErrs = append(storeErrs, err)
			return r.finish(res, errors.Join(storeErrs...), metrics.ResultSinkError)
		}

		res.Files = append(res.Files, candidate)
		logger.Info().Str("remote_file", candidate.RemoteFile).Msg("new remote file")
	}

	if len(storeErrs) > 0 {
		return r.finish(res, errors.Join(storeErrs...), metrics.ResultStoreError)
	}
	return r.finish(res, nil, metrics.ResultOK)
}

func (r *Runner) finish(res *Result, err error, result string) (*Result, error) {
	res.Duration = time.Since(res.StartedAt)
	res.Err = err
	metrics.RecordCycle(result, res.Duration)

	if res.Accepted > 0 {
		countCtx, cancel := context.WithTimeout(context.Background(), seenCountTimeout)
		n, cerr := r.gate.Seen(countCtx)
		cancel()
		if cerr == nil {
			metrics.SetSeenKeys(n)
		} else {
			log.Debug().Err(cerr).Msg("seen count unavailable")
		}
	}

	payload := events.CyclePayload{
		Cycle:      res.Cycle,
		RemoteDir:  res.RemoteDir,
		Listed:     res.Listed,
		Filtered:   res.Filtered,
		Accepted:   res.Accepted,
		Dropped:    res.Dropped,
		DurationMS: res.Duration.Milliseconds(),
	}

	if err != nil {
		payload.Error = err.Error()
		r.publish(events.NewCycleFailedEvent(payload))
		return res, err
	}

	log.Debug().
		Int64("cycle", res.Cycle).
		Int("listed", res.Listed).
		Int("accepted", res.Accepted).
		Int("dropped", res.Dropped).
		Dur("duration", res.Duration).
		Msg("cycle completed")

	r.publish(events.NewCycleCompletedEvent(payload))
	return res, nil
}

func (r *Runner) publish(event events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(event)
	}
}
