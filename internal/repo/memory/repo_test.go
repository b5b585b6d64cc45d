package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/waktsa/elearning/internal/domain/course"
	"github.com/waktsa/elearning/internal/domain/user"
)

func TestUsersRepo_CreateRules(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	admin, err := r.Create(ctx, user.NewUser{Email: "admin@example.com", Name: "Admin", Role: user.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if admin.ID != 1 || admin.Subscribed || admin.SubscriptionStartedAt != nil {
		t.Fatalf("unexpected admin row: %+v", admin)
	}

	_, err = r.Create(ctx, user.NewUser{Email: "admin@example.com", Role: user.RoleStudent})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	_, err = r.Create(ctx, user.NewUser{Email: "admin2@example.com", Role: user.RoleAdmin})
	if !errors.Is(err, user.ErrAdminExists) {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}

	exists, _ := r.AdminExists(ctx)
	if !exists {
		t.Fatalf("expected admin to exist")
	}
}

func TestUsersRepo_ConcurrentAdminCreate(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Create(ctx, user.NewUser{Email: string(rune('a'+i)) + "@example.com", Role: user.RoleAdmin})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one admin, got %d", created)
	}
}

func TestUsersRepo_SaveAndList(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	s, _ := r.Create(ctx, user.NewUser{Email: "s@example.com", PasswordHash: "hash", Role: user.RoleStudent})
	_, _ = r.Create(ctx, user.NewUser{Email: "a@example.com", Role: user.RoleAdmin})

	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Subscribed = true
	s.SubscriptionStartedAt = &started
	s.PasswordHash = "ignored"

	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.FindByEmail(ctx, "s@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Subscribed || !got.SubscriptionStartedAt.Equal(started) {
		t.Fatalf("subscription not saved: %+v", got)
	}
	if got.PasswordHash != "hash" {
		t.Fatalf("save must not touch the password hash")
	}

	if err := r.Save(ctx, user.User{ID: 99}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	students := user.RoleStudent
	list, _ := r.List(ctx, &students)
	if len(list) != 1 || list[0].Email != "s@example.com" {
		t.Fatalf("unexpected student list: %+v", list)
	}
	all, _ := r.List(ctx, nil)
	if len(all) != 2 {
		t.Fatalf("expected 2 users, got %d", len(all))
	}
}

func TestCoursesRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	r := NewCoursesRepo()

	req := course.CourseRequest{Title: "Algebra", Description: "d", Author: "a", CourseURL: "https://example.com", Category: "math", Grade: 10}

	c, err := r.Create(ctx, req)
	if err != nil || c.ID != 1 {
		t.Fatalf("create: %+v %v", c, err)
	}
	_, _ = r.Create(ctx, course.CourseRequest{Title: "Cells", Category: "science", Grade: 8})

	maths, _ := r.List(ctx, course.Filter{Category: "math"})
	if len(maths) != 1 {
		t.Fatalf("expected one math course, got %d", len(maths))
	}

	req.Title = "Linear Algebra"
	updated, err := r.Update(ctx, c.ID, req)
	if err != nil || updated.Title != "Linear Algebra" || !updated.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if _, err := r.Update(ctx, 42, req); !errors.Is(err, course.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := r.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, c.ID); !errors.Is(err, course.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if left, _ := r.List(ctx, course.Filter{}); len(left) != 1 || left[0].Title != "Cells" {
		t.Fatalf("expected only Cells to remain, got %+v", left)
	}
}
