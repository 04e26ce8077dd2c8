// Package worker contains the reminder dispatcher: the single background
// component of the engine. It periodically scans for due work items, claims
// each one, and delivers the notification through the external channel. It is
// intentionally decoupled from the HTTP layer: the api package holds a
// worker.Enqueuer interface and calls Enqueue — it never imports the concrete
// Runner or Job types.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/db"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand a freshly
// created work item (e.g. a high-risk alert) to the dispatcher without
// waiting for the next poll cycle. The concrete implementation is *Runner.
type Enqueuer interface {
	Enqueue(ctx context.Context, itemID uuid.UUID) error
}

// ErrQueueFull is returned by Enqueue when the channel has no room. Callers
// can safely ignore it — the poller picks the item up on its next pass.
var ErrQueueFull = errors.New("worker: queue is full")

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued; call DefaultRunnerConfig() to get them.
type RunnerConfig struct {
	// Workers is the number of concurrent dispatch goroutines. Default: 3.
	Workers int

	// PollInterval is how often the poller scans for due work items.
	// Default: 2m. The poller is the primary drive here — the channel is
	// only a fast path for items that should fire immediately.
	PollInterval time.Duration

	// DispatchTimeout is the per-item context deadline, covering the claim,
	// all delivery attempts, and the failure write. Default: 1m.
	DispatchTimeout time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:         3,
		PollInterval:    2 * time.Minute,
		DispatchTimeout: time.Minute,
	}
}

// Runner manages the dispatcher pool. Due items are found by the periodic
// poller; the in-process channel exists so callers can push a just-created
// item (high-risk alert) for same-cycle delivery. Multiple Runner instances
// may poll the same database: the per-item claim in Job.Dispatch guarantees
// each item is delivered at most once regardless of how many instances see
// it.
type Runner struct {
	job    *Job
	q      db.Querier
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan uuid.UUID
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job *Job, q db.Querier, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = def.DispatchTimeout
	}

	return &Runner{
		job:    job,
		q:      q,
		cfg:    cfg,
		logger: logger,
		// Buffer = Workers*4: a poll cycle can surface a burst of due items.
		queue: make(chan uuid.UUID, cfg.Workers*4),
	}
}

// Enqueue pushes a work item ID onto the in-process channel. It satisfies the
// Enqueuer interface. If the channel is full it returns an error rather than
// blocking the HTTP response — the poller will pick the item up anyway.
func (r *Runner) Enqueue(_ context.Context, itemID uuid.UUID) error {
	select {
	case r.queue <- itemID:
		r.logger.Info("worker: enqueued item", "work_item_id", itemID)
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the dispatch pool and the poller. It blocks until ctx is
// cancelled. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting",
		"workers", r.cfg.Workers,
		"poll_interval", r.cfg.PollInterval,
	)

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each dispatch goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Info("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: goroutine stopping")
			return
		case itemID := <-r.queue:
			dispatchCtx, cancel := context.WithTimeout(ctx, r.cfg.DispatchTimeout)
			if err := r.job.Dispatch(dispatchCtx, itemID); err != nil {
				// Dispatch already isolates delivery failures; reaching here
				// means the claim or the failure write itself broke. The item
				// stays in its current state for the next cycle.
				log.Error("worker: dispatch error", "work_item_id", itemID, "error", err)
			}
			cancel()
		}
	}
}

// poll scans the database on PollInterval for every scheduled item whose
// fire-time has arrived and feeds them to the pool. Runs once immediately on
// startup so items due during a restart window are picked up right away.
func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	items, err := r.q.ListDueReminders(ctx, time.Now())
	if err != nil {
		r.logger.Error("worker: poll failed", "error", err)
		return
	}
	for _, item := range items {
		select {
		case r.queue <- item.ID:
			r.logger.Debug("worker: poller enqueued item", "work_item_id", item.ID)
		default:
			// Queue full — remaining items wait for the next poll cycle.
			return
		}
	}
}
