package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/jobs"
	"github.com/geocoder89/userhub/internal/notifications"
	"github.com/geocoder89/userhub/internal/observability"
)

type JobQueue interface {
	Dequeue(ctx context.Context) (jobs.Job, error)
	EnqueueDelayed(ctx context.Context, j jobs.Job, runAt time.Time) error
	Promote(ctx context.Context, now time.Time) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	queue    JobQueue
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, queue JobQueue, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}

	return &Worker{
		cfg:      cfg,
		queue:    queue,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

func (w *Worker) setReady(ready bool) {
	w.readyMu.Lock()
	w.ready = ready
	w.readyMu.Unlock()
}

// drainOnShutdown gives jobs that are already ready a bounded window to
// finish before the process exits. The parent context is canceled at this
// point, so the drain runs under its own deadline.
func (w *Worker) drainOnShutdown() {
	if w.cfg.ShutdownGrace <= 0 {
		return
	}

	graceCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ShutdownGrace)
	defer cancel()

	for {
		processed, err := w.ProcessOne(graceCtx)

		if err != nil || !processed {
			return
		}

		if graceCtx.Err() != nil {
			return
		}
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.setReady(true)
	defer w.setReady(false)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal", "worker_id", w.cfg.WorkerID)
			w.setReady(false)
			w.drainOnShutdown()
			return nil

		case <-ticker.C:
			if err := w.queue.Promote(ctx, time.Now().UTC()); err != nil {
				w.log.Error("promote delayed jobs failed", "err", err)
			}

			// drain everything that is ready before sleeping again
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("process job failed", "err", err)
					break
				}

				if !processed {
					break
				}
			}
		}
	}
}
