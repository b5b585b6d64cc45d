package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/waktsa/elearning/internal/domain/user"
)

// UsersRepo keeps users in process memory. The uniqueness rules match the
// Postgres schema: one row per email, at most one admin.
type UsersRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]user.User
	byEmail map[string]int64
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[int64]user.User),
		byEmail: make(map[string]int64),
	}
}

func (r *UsersRepo) Create(_ context.Context, in user.NewUser) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[in.Email]; ok {
		return user.User{}, user.ErrEmailTaken
	}

	if in.Role == user.RoleAdmin {
		for _, u := range r.byID {
			if u.Role == user.RoleAdmin {
				return user.User{}, user.ErrAdminExists
			}
		}
	}

	now := time.Now().UTC()
	r.nextID++

	u := user.User{
		ID:           r.nextID,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Name:         in.Name,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UsersRepo) FindByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// Save writes the mutable fields of an existing user.
func (r *UsersRepo) Save(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[u.ID]
	if !ok {
		return user.ErrNotFound
	}

	existing.Name = u.Name
	existing.Role = u.Role
	existing.Subscribed = u.Subscribed
	if u.SubscriptionStartedAt != nil {
		started := *u.SubscriptionStartedAt
		existing.SubscriptionStartedAt = &started
	} else {
		existing.SubscriptionStartedAt = nil
	}
	existing.UpdatedAt = time.Now().UTC()

	r.byID[u.ID] = existing
	return nil
}

func (r *UsersRepo) List(_ context.Context, role *user.Role) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.byID))
	for _, u := range r.byID {
		if role == nil || u.Role == *role {
			out = append(out, u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UsersRepo) AdminExists(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Role == user.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r *UsersRepo) Ping(_ context.Context) error {
	return nil
}
