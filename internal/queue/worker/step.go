package worker

import (
	"context"
	"time"

	"github.com/waktsa/elearning/internal/notifications"
)

// deliver sends one receipt, retrying with backoff up to MaxAttempts.
func (w *Worker) deliver(ctx context.Context, id int, r notifications.Receipt) {
	if w.metrics != nil {
		w.metrics.ReceiptsInFlight(1)
		defer w.metrics.ReceiptsInFlight(-1)
	}

	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		err := w.notifier.SendSubscriptionReceipt(ctx, r)
		elapsed := time.Since(start)

		w.stats.ObserveDuration(elapsed)

		if err == nil {
			w.observe("done", elapsed)
			w.stats.IncDelivered()
			w.log.Debug("receipt_delivered", "worker", id, "user_id", r.UserID, "attempt", attempt+1)
			return
		}

		if attempt == w.cfg.MaxAttempts-1 {
			w.observe("failed", elapsed)
			w.stats.IncFailed()
			w.log.Error("receipt_failed", "worker", id, "user_id", r.UserID, "attempts", attempt+1, "err", err)
			return
		}

		w.observe("retry", elapsed)
		w.stats.IncRetried()

		delay := w.cfg.Backoff(attempt)
		w.log.Warn("receipt_retry", "worker", id, "user_id", r.UserID, "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.stats.IncFailed()
			return
		case <-timer.C:
		}
	}
}

func (w *Worker) observe(result string, d time.Duration) {
	if w.metrics != nil {
		w.metrics.ObserveReceipt(result, d)
	}
}
