package store

import (
	"context"
	"testing"

	"github.com/arashthr/markcentral/internal/errors"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get() = %q, %v, want v1", got, err)
	}

	// Mutating the returned slice must not affect the stored value.
	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	if string(again) != "v1" {
		t.Error("stored value shared memory with a caller")
	}

	if err := s.SetNX(ctx, "k", []byte("v2")); !errors.Is(err, ErrKeyExists) {
		t.Errorf("SetNX(existing) error = %v, want ErrKeyExists", err)
	}
	if err := s.SetNX(ctx, "k2", []byte("v2")); err != nil {
		t.Errorf("SetNX(new) error = %v", err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}
