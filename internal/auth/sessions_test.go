package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/store"
)

func newTestSessions() (*SessionService, *UserService) {
	mem := store.NewMemoryStore()
	users := &UserService{Store: mem}
	return &SessionService{Store: mem, Users: users}, users
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	sessions, users := newTestSessions()
	user := signUpVerified(t, users, "bob@example.com", "hunter2!")

	session, err := sessions.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if session.Token == "" {
		t.Fatal("Create() returned an empty token")
	}

	got, err := sessions.User(ctx, session.Token)
	if err != nil {
		t.Fatalf("User() unexpected error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("User() id = %q, want %q", got.ID, user.ID)
	}

	if err := sessions.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, err := sessions.User(ctx, session.Token); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("User() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSessionUnknownToken(t *testing.T) {
	sessions, _ := newTestSessions()
	if _, err := sessions.User(context.Background(), "not-a-token"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("User(unknown token) error = %v, want ErrNotFound", err)
	}
}

func TestSessionTokenNotStoredInPlaintext(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	users := &UserService{Store: mem}
	sessions := &SessionService{Store: mem, Users: users}
	user := signUpVerified(t, users, "bob@example.com", "hunter2!")

	session, err := sessions.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := mem.Get(ctx, "session:"+session.Token); !errors.Is(err, store.ErrNotFound) {
		t.Error("raw token used as a store key")
	}
	if _, err := mem.Get(ctx, "session:"+hashToken(session.Token)); err != nil {
		t.Errorf("hashed token key missing: %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	sessions, users := newTestSessions()
	user := signUpVerified(t, users, "bob@example.com", "hunter2!")

	session, err := sessions.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	// Rewrite the record with an expiry in the past.
	expired := *session
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	data, err := json.Marshal(&expired)
	if err != nil {
		t.Fatalf("encoding expired session: %v", err)
	}
	if err := sessions.Store.Set(ctx, "session:"+hashToken(session.Token), data); err != nil {
		t.Fatalf("planting expired session: %v", err)
	}

	if _, err := sessions.User(ctx, session.Token); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("User() with an expired session error = %v, want ErrNotFound", err)
	}
	if _, err := sessions.Store.Get(ctx, "session:"+hashToken(session.Token)); !errors.Is(err, store.ErrNotFound) {
		t.Error("expired session record was not cleaned up")
	}
}
