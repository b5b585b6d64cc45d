// Package subscription decides whether a user's time-boxed subscription is
// active. Evaluation is pure; persisting a lazy expiry is a separate step so the
// decision logic can be exercised without a store.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waktsa/elearning/internal/domain/user"
)

const (
	Duration = 30 * 24 * time.Hour
	Price    = 100.0
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

// Decision is the outcome of evaluating a subscription at a point in time.
type Decision struct {
	Status    Status
	StartedAt *time.Time
	ExpiresAt time.Time // zero unless StartedAt is set
	DaysLeft  int       // only meaningful when Active

	// Expire is set when the stored flag says subscribed but the window has
	// elapsed; Apply flips and persists it.
	Expire bool
}

func (d Decision) Active() bool { return d.Status == StatusActive }

// Evaluate never mutates its input.
//
// A subscribed flag without a start timestamp is treated as inactive, not as a
// lifetime grant, and is left untouched.
func Evaluate(subscribed bool, startedAt *time.Time, now time.Time) Decision {
	if !subscribed || startedAt == nil {
		return Decision{Status: StatusInactive, StartedAt: startedAt}
	}

	expiresAt := startedAt.Add(Duration)

	if now.After(expiresAt) {
		return Decision{Status: StatusExpired, StartedAt: startedAt, ExpiresAt: expiresAt, Expire: true}
	}

	return Decision{
		Status:    StatusActive,
		StartedAt: startedAt,
		ExpiresAt: expiresAt,
		DaysLeft:  int(expiresAt.Sub(now) / (24 * time.Hour)),
	}
}

func EvaluateUser(u user.User, now time.Time) Decision {
	return Evaluate(u.Subscribed, u.SubscriptionStartedAt, now)
}

type Store interface {
	Save(ctx context.Context, u user.User) error
}

type Policy struct {
	store Store
}

func NewPolicy(store Store) *Policy {
	return &Policy{store: store}
}

// Apply persists the side effect carried by d. It reports whether the user row
// was written.
func (p *Policy) Apply(ctx context.Context, d Decision, u *user.User) (bool, error) {
	if !d.Expire || !u.Subscribed {
		return false, nil
	}

	u.Subscribed = false

	if err := p.store.Save(ctx, *u); err != nil {
		return false, fmt.Errorf("subscription.Apply: %w", err)
	}
	return true, nil
}

// Check evaluates and applies in one call, for callers that hold the full row.
func (p *Policy) Check(ctx context.Context, u *user.User, now time.Time) (Decision, error) {
	d := EvaluateUser(*u, now)

	if _, err := p.Apply(ctx, d, u); err != nil {
		return d, err
	}
	return d, nil
}

var ErrAlreadyActive = errors.New("subscription already active")

// Purchase opens a new window starting at now. Buying while a window is still
// open is a no-op and returns ErrAlreadyActive with the unchanged decision;
// purchases never extend an open window.
func (p *Policy) Purchase(ctx context.Context, u *user.User, now time.Time) (Decision, error) {
	current, err := p.Check(ctx, u, now)
	if err != nil {
		return current, err
	}

	if current.Active() {
		return current, ErrAlreadyActive
	}

	started := now.UTC()
	u.Subscribed = true
	u.SubscriptionStartedAt = &started

	if err := p.store.Save(ctx, *u); err != nil {
		return Decision{}, fmt.Errorf("subscription.Purchase: %w", err)
	}

	return Evaluate(true, &started, now), nil
}
