package actorctx

import (
	"context"
	"testing"

	"github.com/waktsa/elearning/internal/domain/user"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), user.Identity{ID: 4, Email: "s@example.com", Role: user.RoleStudent})

	got, ok := IdentityFrom(ctx)
	if !ok || got.Email != "s@example.com" {
		t.Fatalf("unexpected identity: %+v %v", got, ok)
	}

	if id, ok := UserIDFrom(ctx); !ok || id != 4 {
		t.Fatalf("unexpected user id: %d %v", id, ok)
	}

	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity on a bare context")
	}
}
