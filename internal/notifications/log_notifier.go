package notifications

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"
)

var ErrProviderDown = errors.New("receipt provider down (simulated)")

// LogNotifier writes receipts to the structured log instead of a mail provider.
// NOTIFIER_SLEEP_MS and NOTIFIER_FAIL=1 simulate a slow or failing provider.
type LogNotifier struct {
	log     *slog.Logger
	sleep   time.Duration
	failing bool
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}

	n := &LogNotifier{log: log}

	if ms, err := strconv.Atoi(os.Getenv("NOTIFIER_SLEEP_MS")); err == nil && ms > 0 {
		n.sleep = time.Duration(ms) * time.Millisecond
	}
	n.failing = os.Getenv("NOTIFIER_FAIL") == "1"

	return n
}

func (n *LogNotifier) SendSubscriptionReceipt(ctx context.Context, r Receipt) error {
	if n.sleep > 0 {
		select {
		case <-time.After(n.sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if n.failing {
		return ErrProviderDown
	}

	n.log.InfoContext(ctx, "notification.subscription_receipt",
		"user_id", r.UserID,
		"email", r.Email,
		"name", r.Name,
		"started_at", r.StartedAt,
		"expires_at", r.ExpiresAt,
		"price", r.Price,
		"purchased_by", r.PurchasedBy,
	)
	return nil
}
