package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Observer wraps a logical DB operation, e.g. for latency metrics.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

func observerOrNoop(obs Observer) Observer {
	if obs == nil {
		return noopObserver{}
	}
	return obs
}

const (
	constraintUsersEmail  = "users_email_key"
	constraintSingleAdmin = "users_single_admin_idx"
)

func uniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
