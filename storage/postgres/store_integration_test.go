package pgstore

// Integration tests are enabled when ENTITLE_DATABASE_URL is set and the
// entitlements schema has been migrated; without it they skip so plain
// unit runs stay fast.

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("ENTITLE_DATABASE_URL")
	if dbURL == "" {
		t.Skip("ENTITLE_DATABASE_URL is not set; skipping Postgres integration test")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestUserExistsThroughIdentityStore(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(t)
	store := New(pool, "")

	u, err := store.users.Create(ctx, uuid.NewString()+"@example.com", nil, "USER")
	if err != nil {
		t.Fatalf("identity create: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM entitlements.users WHERE id=$1`, u.ID)
	})

	exists, err := store.UserExists(ctx, u.ID)
	if err != nil {
		t.Fatalf("UserExists: %v", err)
	}
	if !exists {
		t.Error("freshly created user reported missing")
	}

	exists, err = store.UserExists(ctx, uuid.New())
	if err != nil {
		t.Fatalf("UserExists(unknown): %v", err)
	}
	if exists {
		t.Error("unknown id reported present")
	}

	got, err := store.users.GetByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetByEmail id = %s, want %s", got.ID, u.ID)
	}
}
