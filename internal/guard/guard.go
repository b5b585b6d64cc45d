// Package guard composes token verification, identity resolution, role checks,
// and subscription checks into decision functions. It never writes responses;
// transports map its errors to status codes.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/subscription"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrForbidden    = errors.New("forbidden")
)

type Reason string

const (
	ReasonRole         Reason = "role"
	ReasonSubscription Reason = "subscription"
)

type ForbiddenError struct {
	Reason Reason
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

type TokenVerifier interface {
	Verify(raw string, now time.Time) (*auth.Claims, error)
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id int64) (user.User, error)
}

type Guard struct {
	tokens TokenVerifier
	users  UserStore
	policy *subscription.Policy
	now    func() time.Time
}

type Option func(*Guard)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func New(tokens TokenVerifier, users UserStore, policy *subscription.Policy, opts ...Option) *Guard {
	g := &Guard{
		tokens: tokens,
		users:  users,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Now() time.Time {
	return g.now()
}

var tracer = otel.Tracer("github.com/waktsa/elearning/internal/guard")

// RequireAuthenticated verifies the token and re-reads the user row by the
// claimed email. The returned identity reflects the store, not the claims.
func (g *Guard) RequireAuthenticated(ctx context.Context, raw string) (user.Identity, error) {
	ctx, span := tracer.Start(ctx, "guard.RequireAuthenticated")
	defer span.End()

	claims, err := g.tokens.Verify(raw, g.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return user.Identity{}, err
	}

	u, err := g.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			span.SetStatus(codes.Error, "user not found")
			return user.Identity{}, ErrUserNotFound
		}
		span.RecordError(err)
		return user.Identity{}, fmt.Errorf("guard: resolve user: %w", err)
	}

	span.SetAttributes(attribute.Int64("user.id", u.ID), attribute.String("user.role", u.Role.String()))

	return u.Identity(), nil
}

// RequireRole is an exact match; admin does not imply student.
func RequireRole(id user.Identity, role user.Role) error {
	if id.Role != role {
		return &ForbiddenError{Reason: ReasonRole}
	}
	return nil
}

// RequireSubscribed applies lazy expiry when the window has elapsed and updates
// id to match what was persisted. An elapsed window on id is re-evaluated
// against the stored row first, so a purchase made after id was resolved is
// honoured rather than expired.
func (g *Guard) RequireSubscribed(ctx context.Context, id *user.Identity, now time.Time) error {
	d := subscription.Evaluate(id.Subscribed, id.SubscriptionStartedAt, now)

	if d.Expire {
		u, err := g.users.FindByID(ctx, id.ID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("guard: load user: %w", err)
		}

		d = subscription.EvaluateUser(u, now)
		if _, err := g.policy.Apply(ctx, d, &u); err != nil {
			return err
		}
		id.Subscribed = u.Subscribed
		id.SubscriptionStartedAt = u.SubscriptionStartedAt
	}

	if !d.Active() {
		return &ForbiddenError{Reason: ReasonSubscription}
	}
	return nil
}
