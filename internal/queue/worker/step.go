package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/userhub/internal/jobs"
	"github.com/geocoder89/userhub/internal/notifications"
	"github.com/geocoder89/userhub/internal/queue/redisclient"
)

// ProcessOne claims and executes a single job. The bool reports whether a job
// was available at all.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.queue.Dequeue(claimCtx)
	cancel()

	if err != nil {
		if errors.Is(err, redisclient.ErrNoJob) {
			return false, nil
		}

		return false, err
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()
	err = w.execute(ctx, j)
	result := "done"

	if err != nil {
		result = w.handleFailure(ctx, j, err)
	} else {
		w.log.Info("job done", "job_id", j.ID, "job_type", string(j.Type), "attempts", j.Attempts)
	}

	if w.prom != nil {
		w.prom.JobResults.WithLabelValues(string(j.Type), result).Inc()
		w.prom.JobDuration.WithLabelValues(string(j.Type), result).Observe(time.Since(start).Seconds())
	}

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(j.Type, decoded); err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.WelcomeEmailPayload:
		return w.notifier.SendWelcome(ctx, notifications.SendWelcomeInput{
			UserID: p.UserID,
			Email:  p.Email,
			Name:   p.Name,
		})

	case jobs.PasswordChangedPayload:
		return w.notifier.SendPasswordChanged(ctx, notifications.SendPasswordChangedInput{
			UserID: p.UserID,
			Email:  p.Email,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure either retries the job with backoff or drops it once the
// attempt budget is spent. Returns the metric result label.
func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, execErr error) string {
	j.Attempts++
	msg := execErr.Error()
	j.LastError = &msg

	if j.Attempts >= j.MaxTries {
		j.Status = jobs.JobFailed
		w.log.Error("job failed permanently",
			"job_id", j.ID, "job_type", string(j.Type), "attempts", j.Attempts, "err", execErr)
		return "failed"
	}

	delay := ExponentialBackoff(j.Attempts - 1)
	runAt := time.Now().UTC().Add(delay)

	if err := w.queue.EnqueueDelayed(ctx, j, runAt); err != nil {
		w.log.Error("requeue failed, job dropped",
			"job_id", j.ID, "err", fmt.Errorf("requeue: %w", err))
		return "failed"
	}

	w.log.Warn("job retry scheduled",
		"job_id", j.ID, "job_type", string(j.Type), "attempts", j.Attempts, "delay_ms", delay.Milliseconds(), "err", execErr)
	return "retry"
}
