package observability

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/waktsa/elearning/internal/domain/course"
	"github.com/waktsa/elearning/internal/domain/user"
)

// ObserveDB times one repository operation. Lookups that find nothing are
// recorded as "not_found" and do not count as errors.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	switch {
	case err == nil:
	case isNotFound(err):
		status = "not_found"
	default:
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, user.ErrNotFound) ||
		errors.Is(err, course.ErrNotFound)
}

func classifyDBErr(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, user.ErrAdminExists):
		return "admin_exists"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			// the two unique constraints on users are expected client errors
			switch pgErr.ConstraintName {
			case "users_email_key":
				return "email_taken"
			case "users_single_admin_idx":
				return "admin_exists"
			}
			return "unique_violation"
		case "23514":
			return "check_violation"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return "connection"
	}
	return "unknown"
}
