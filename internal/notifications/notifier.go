package notifications

import (
	"context"
	"time"
)

// Receipt is sent after a subscription purchase opens a new window.
type Receipt struct {
	UserID    int64
	Email     string
	Name      string
	StartedAt time.Time
	ExpiresAt time.Time
	Price     float64
	// PurchasedBy is the admin who bought on the student's behalf; zero for self-service.
	PurchasedBy int64
}

type Notifier interface {
	SendSubscriptionReceipt(ctx context.Context, r Receipt) error
}
