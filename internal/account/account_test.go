package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/repo/memory"
	"github.com/waktsa/elearning/internal/security"
)

var cheapParams = security.Argon2Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func newService(t *testing.T) (*Service, *memory.UsersRepo, *auth.Manager) {
	t.Helper()

	settings, err := auth.NewSettings("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)

	tokens := auth.NewManager(settings)
	users := memory.NewUsersRepo()

	svc, err := NewService(users, security.NewHasher(cheapParams), tokens)
	require.NoError(t, err)

	return svc, users, tokens
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	admin, err := svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "adminpass", Name: "Admin", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.False(t, admin.Subscribed)
	assert.NotEqual(t, "adminpass", admin.PasswordHash)

	student, err := svc.Register(ctx, RegisterInput{Email: "student@example.com", Password: "studentpass", Name: "Student"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, student.Role, "empty role defaults to student")

	_, err = svc.Register(ctx, RegisterInput{Email: "x@example.com", Password: "pw", Role: "instructor"})
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}

func TestRegister_DuplicateEmailAndSecondAdminAreDistinct(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "adminpass", Role: "admin"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "admin2@example.com", Password: "adminpass", Role: "admin"})
	assert.ErrorIs(t, err, ErrAdminExists)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "adminpass", Role: "admin"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NotErrorIs(t, err, ErrAdminExists)

	_, err = svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "other", Role: "student"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Register(ctx, RegisterInput{Email: "student@example.com", Password: "studentpass", Name: "Student"})
	require.NoError(t, err)

	sess, err := svc.Login(ctx, "student@example.com", "studentpass", now)
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.Equal(now.Add(30*time.Minute)))

	claims, err := tokens.Verify(sess.AccessToken, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.False(t, claims.Subscribed)
	assert.Nil(t, claims.SubscriptionStartedAt)

	_, wrongPassword := svc.Login(ctx, "student@example.com", "nope", now)
	_, unknownEmail := svc.Login(ctx, "ghost@example.com", "studentpass", now)

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

type failingStore struct {
	*memory.UsersRepo
}

func (*failingStore) FindByEmail(context.Context, string) (user.User, error) {
	return user.User{}, errors.New("connection reset")
}

func TestLogin_StoreErrorIsNotInvalidCredentials(t *testing.T) {
	settings, err := auth.NewSettings("test-secret", "HS256", time.Minute)
	require.NoError(t, err)

	svc, err := NewService(&failingStore{UsersRepo: memory.NewUsersRepo()}, security.NewHasher(cheapParams), auth.NewManager(settings))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "a@example.com", "pw", time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newService(t)

	created, err := svc.EnsureAdmin(ctx, "root@example.com", "rootpass", "Root")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "other@example.com", "rootpass", "Other")
	require.NoError(t, err)
	assert.False(t, created)

	admins := user.RoleAdmin
	list, err := users.List(ctx, &admins)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "root@example.com", list[0].Email)
}
