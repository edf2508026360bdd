package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	ws "github.com/pawradar/pawradar/internal/websocket"
)

// RetentionStore is the slice of the queue store the sweeper uses.
type RetentionStore interface {
	DeleteTerminalBefore(cutoff time.Time) (int64, error)
}

// Config tunes the scheduler. Zero values pick the defaults.
type Config struct {
	Interval       time.Duration // sweep cadence
	BatchLimit     int           // entries per invocation
	RetryAge       time.Duration // how long an entry must sit pending before a sweep retries it
	Retention      time.Duration // terminal entries older than this are deleted
	RetentionEvery int           // run retention every Nth sweep tick
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 50
	}
	if c.RetryAge <= 0 {
		c.RetryAge = 2 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
	if c.RetentionEvery <= 0 {
		c.RetentionEvery = 60
	}
}

// Scheduler drives the worker: an immediate trigger fires right after an
// enqueue, and a fixed-interval sweep retries whatever is still pending.
// Retention runs piggybacked on a slower multiple of the sweep.
type Scheduler struct {
	mu        sync.RWMutex
	worker    *Worker
	retention RetentionStore
	hub       *ws.Hub
	cfg       Config
	logger    *slog.Logger
	notify    chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a scheduler. hub may be nil.
func NewScheduler(worker *Worker, retention RetentionStore, hub *ws.Hub, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		worker:    worker,
		retention: retention,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		notify:    make(chan struct{}, 1),
	}
}

// Notify wakes the scheduler for an immediate dispatch pass. Non-blocking;
// coalesces with any wakeup already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		ticks := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
				// Freshly enqueued rows; no age gate.
				s.runBatch(ctx, 0)
			case <-ticker.C:
				s.runBatch(ctx, s.cfg.RetryAge)
				ticks++
				if ticks%s.cfg.RetentionEvery == 0 {
					s.runRetention()
				}
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) runBatch(ctx context.Context, minAge time.Duration) {
	summary, err := s.worker.RunBatch(ctx, s.cfg.BatchLimit, minAge)
	if err != nil {
		// Queue infrastructure failure; the next tick retries.
		s.logger.Error("dispatch batch", "error", err)
		return
	}
	if summary.Attempted == 0 {
		return
	}

	s.logger.Info("dispatch batch done", "attempted", summary.Attempted,
		"succeeded", summary.Succeeded, "failed", summary.Failed)
	if s.hub != nil {
		s.hub.Broadcast(ws.NewMessage("dispatch", "completed", map[string]any{
			"attempted": summary.Attempted,
			"succeeded": summary.Succeeded,
			"failed":    summary.Failed,
		}))
	}
}

func (s *Scheduler) runRetention() {
	deleted, err := s.retention.DeleteTerminalBefore(time.Now().Add(-s.cfg.Retention))
	if err != nil {
		s.logger.Error("retention sweep", "error", err)
		return
	}
	if deleted == 0 {
		return
	}

	s.logger.Info("retention sweep done", "deleted", deleted)
	if s.hub != nil {
		s.hub.Broadcast(ws.NewMessage("retention", "swept", map[string]any{
			"deleted": deleted,
		}))
	}
}

// SweepResult is the outcome of an operator-invoked sweep.
type SweepResult struct {
	Summary
	Deleted int64 `json:"deleted"`
}

// RunSweep is the operator entry point: one dispatch pass with explicit
// parameters followed by a retention pass. Zero values fall back to the
// configured defaults.
func (s *Scheduler) RunSweep(ctx context.Context, batchLimit int, retryAge, retention time.Duration) (SweepResult, error) {
	if batchLimit <= 0 {
		batchLimit = s.cfg.BatchLimit
	}
	if retryAge <= 0 {
		retryAge = s.cfg.RetryAge
	}
	if retention <= 0 {
		retention = s.cfg.Retention
	}

	summary, err := s.worker.RunBatch(ctx, batchLimit, retryAge)
	if err != nil {
		return SweepResult{}, err
	}

	deleted, err := s.retention.DeleteTerminalBefore(time.Now().Add(-retention))
	if err != nil {
		return SweepResult{Summary: summary}, err
	}

	return SweepResult{Summary: summary, Deleted: deleted}, nil
}
