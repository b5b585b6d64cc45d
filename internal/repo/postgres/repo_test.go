package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waktsa/elearning/internal/db"
	"github.com/waktsa/elearning/internal/domain/course"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/repo/postgres"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(pool))

	_, err = pool.Exec(context.Background(), `TRUNCATE courses, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool
}

func TestUsersRepo_Constraints(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUsersRepo(testPool(t), nil)

	admin, err := repo.Create(ctx, user.NewUser{Email: "admin@example.com", PasswordHash: "h", Name: "Admin", Role: user.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, admin.Subscribed)
	assert.Nil(t, admin.SubscriptionStartedAt)

	_, err = repo.Create(ctx, user.NewUser{Email: "other@example.com", PasswordHash: "h", Role: user.RoleAdmin})
	assert.ErrorIs(t, err, user.ErrAdminExists)

	_, err = repo.Create(ctx, user.NewUser{Email: "admin@example.com", PasswordHash: "h", Role: user.RoleStudent})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	exists, err := repo.AdminExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_SaveSubscription(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUsersRepo(testPool(t), nil)

	stu, err := repo.Create(ctx, user.NewUser{Email: "s@example.com", PasswordHash: "h", Name: "S", Role: user.RoleStudent})
	require.NoError(t, err)

	started := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	stu.Subscribed = true
	stu.SubscriptionStartedAt = &started
	require.NoError(t, repo.Save(ctx, stu))

	got, err := repo.FindByID(ctx, stu.ID)
	require.NoError(t, err)
	assert.True(t, got.Subscribed)
	require.NotNil(t, got.SubscriptionStartedAt)
	assert.True(t, got.SubscriptionStartedAt.Equal(started))

	students := user.RoleStudent
	list, err := repo.List(ctx, &students)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = repo.Save(ctx, user.User{ID: 999, Role: user.RoleStudent})
	assert.True(t, errors.Is(err, user.ErrNotFound))
}

func TestCoursesRepo_CRUDAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewCoursesRepo(testPool(t), nil)

	req := course.CourseRequest{Title: "Algebra", Description: "d", Author: "a", CourseURL: "https://example.com/a", Category: "math", Grade: 10}
	algebra, err := repo.Create(ctx, req)
	require.NoError(t, err)

	_, err = repo.Create(ctx, course.CourseRequest{Title: "Cells", Description: "d", Author: "b", CourseURL: "https://example.com/c", Category: "science", Grade: 8})
	require.NoError(t, err)

	maths, err := repo.List(ctx, course.Filter{Category: "math"})
	require.NoError(t, err)
	require.Len(t, maths, 1)
	assert.Equal(t, "Algebra", maths[0].Title)

	eighth, err := repo.List(ctx, course.Filter{Grade: 8})
	require.NoError(t, err)
	require.Len(t, eighth, 1)

	none, err := repo.List(ctx, course.Filter{Grade: 12})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	req.Title = "Linear Algebra"
	updated, err := repo.Update(ctx, algebra.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", updated.Title)

	_, err = repo.Update(ctx, 999, req)
	assert.ErrorIs(t, err, course.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, algebra.ID))
	assert.ErrorIs(t, repo.Delete(ctx, algebra.ID), course.ErrNotFound)
}
