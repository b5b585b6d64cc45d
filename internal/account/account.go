// Package account registers users and exchanges credentials for access tokens.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/domain/user"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrAdminExists        = errors.New("admin user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type UserStore interface {
	Create(ctx context.Context, in user.NewUser) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	AdminExists(ctx context.Context) (bool, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	CheckPassword(hash, plain string) error
}

type TokenIssuer interface {
	Issue(claims auth.Claims, now time.Time) (string, time.Time, error)
}

type Service struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer

	// compared against when the email is unknown so both failure paths cost
	// one hash verification
	dummyHash string
}

func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer) (*Service, error) {
	dummy, err := hasher.HashPassword("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("account: dummy hash: %w", err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		dummyHash: dummy,
	}, nil
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Register creates a user with subscribed=false. An empty role means student.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	roleName := strings.ToLower(strings.TrimSpace(in.Role))
	if roleName == "" {
		roleName = user.RoleStudent.String()
	}

	role, err := user.ParseRole(roleName)
	if err != nil {
		return user.User{}, err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("account: hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.NewUser{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         role,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return user.User{}, ErrDuplicateEmail
		case errors.Is(err, user.ErrAdminExists):
			return user.User{}, ErrAdminExists
		default:
			return user.User{}, fmt.Errorf("account: create user: %w", err)
		}
	}

	return u, nil
}

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        user.User
}

// Login never tells the caller whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string, now time.Time) (Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_ = s.hasher.CheckPassword(s.dummyHash, password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("account: find user: %w", err)
	}

	if err := s.hasher.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(auth.Claims{
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  u.Role.String(),
		Subscribed:            u.Subscribed,
		SubscriptionStartedAt: u.SubscriptionStartedAt,
	}, now)
	if err != nil {
		return Session{}, fmt.Errorf("account: issue token: %w", err)
	}

	return Session{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}

// EnsureAdmin creates the admin account unless one already exists. It reports
// whether a row was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return false, fmt.Errorf("account: admin lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	_, err = s.Register(ctx, RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     user.RoleAdmin.String(),
	})
	if errors.Is(err, ErrAdminExists) {
		// another instance won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
