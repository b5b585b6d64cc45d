package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/waktsa/elearning/internal/domain/user"
)

const userColumns = `id, email, password_hash, name, role, subscribed, subscription_started_at, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewUsersRepo(pool *pgxpool.Pool, obs Observer) *UsersRepo {
	return &UsersRepo{pool: pool, obs: observerOrNoop(obs)}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&role,
		&u.Subscribed,
		&u.SubscriptionStartedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	// the role column is the only place raw strings enter the domain
	u.Role, err = user.ParseRole(role)
	if err != nil {
		return user.User{}, fmt.Errorf("user %d: %w", u.ID, err)
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.create", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, name, role, subscribed)
			 VALUES ($1, $2, $3, $4, FALSE)
			 RETURNING `+userColumns,
			in.Email, in.PasswordHash, in.Name, in.Role.String(),
		))
		return err
	})

	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintSingleAdmin:
				return user.User{}, user.ErrAdminExists
			default:
				return user.User{}, user.ErrEmailTaken
			}
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.find_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.find_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Save writes the mutable fields. The password hash and email are never
// touched here.
func (r *UsersRepo) Save(ctx context.Context, u user.User) error {
	return r.obs.ObserveDB("users.save", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			    SET name = $2,
			        role = $3,
			        subscribed = $4,
			        subscription_started_at = $5,
			        updated_at = $6
			  WHERE id = $1`,
			u.ID, u.Name, u.Role.String(), u.Subscribed, u.SubscriptionStartedAt, time.Now().UTC(),
		)
		if err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == constraintSingleAdmin {
				return user.ErrAdminExists
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) List(ctx context.Context, role *user.Role) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}

	if role != nil {
		query += ` WHERE role = $1`
		args = append(args, role.String())
	}
	query += ` ORDER BY id ASC`

	var out []user.User

	err := r.obs.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]user.User, 0)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) AdminExists(ctx context.Context) (bool, error) {
	var exists bool

	err := r.obs.ObserveDB("users.admin_exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`).Scan(&exists)
	})

	return exists, err
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
