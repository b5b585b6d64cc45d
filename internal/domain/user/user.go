package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole is applied once at the store and request boundaries; everything
// past that point works with the closed Role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }

type User struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"` // never expose hash in JSON
	Name                  string     `json:"name"`
	Role                  Role       `json:"role"`
	Subscribed            bool       `json:"subscribed"`
	SubscriptionStartedAt *time.Time `json:"subscription_started_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Role         Role
}

// Identity is the per-request view of the caller, resolved from the store
// rather than from token claims.
type Identity struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  Role       `json:"role"`
	Subscribed            bool       `json:"subscribed"`
	SubscriptionStartedAt *time.Time `json:"subscription_started_at"`
}

func (u User) Identity() Identity {
	return Identity{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  u.Role,
		Subscribed:            u.Subscribed,
		SubscriptionStartedAt: u.SubscriptionStartedAt,
	}
}
