package backup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/store"
	"github.com/arashthr/markcentral/internal/types"
)

func sampleCollection() []bookmarks.Bookmark {
	category := bookmarks.CategoryDevTech
	return []bookmarks.Bookmark{
		{
			ID:         types.BookmarkId("a"),
			Title:      "Example",
			URL:        "https://a.example.com",
			Category:   &category,
			FolderPath: []string{"Work"},
			Source:     bookmarks.SourceChrome,
			IsFavorite: true,
			CreatedAt:  time.Unix(1700000000, 0).UTC(),
			LinkStatus: bookmarks.LinkStatusOk,
		},
		{
			ID:         types.BookmarkId("b"),
			Title:      "Untitled",
			URL:        "https://b.example.com",
			Source:     bookmarks.SourceFirefox,
			CreatedAt:  time.Unix(1700000100, 0).UTC(),
			LinkStatus: bookmarks.LinkStatusUnknown,
		},
	}
}

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := &Service{Store: store.NewMemoryStore()}
	in := sampleCollection()

	meta, err := svc.Save(ctx, "user-1", in)
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if meta.Count != 2 {
		t.Errorf("meta.Count = %d, want 2", meta.Count)
	}

	out, loaded, err := svc.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if loaded.Count != meta.Count || !loaded.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("loaded meta = %+v, want %+v", loaded, meta)
	}

	wantJSON, _ := json.Marshal(in)
	gotJSON, _ := json.Marshal(out)
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("round trip changed the collection:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestBackupOverwritesSingleSlot(t *testing.T) {
	ctx := context.Background()
	svc := &Service{Store: store.NewMemoryStore()}

	if _, err := svc.Save(ctx, "user-1", sampleCollection()); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if _, err := svc.Save(ctx, "user-1", sampleCollection()[:1]); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	out, meta, err := svc.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(out) != 1 || meta.Count != 1 {
		t.Errorf("second save did not overwrite: %d bookmarks, meta.Count = %d", len(out), meta.Count)
	}
}

func TestBackupMissingSlot(t *testing.T) {
	ctx := context.Background()
	svc := &Service{Store: store.NewMemoryStore()}

	if _, _, err := svc.Load(ctx, "user-1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Meta(ctx, "user-1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Meta() error = %v, want ErrNotFound", err)
	}
}

func TestBackupCrossUserIsolation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := &Service{Store: mem}

	if _, err := svc.Save(ctx, "user-1", sampleCollection()); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	// Move user-1's ciphertext into user-2's slot. The derived key differs,
	// so decryption must fail rather than leak another user's bookmarks.
	blob, err := mem.Get(ctx, "backup:user-1")
	if err != nil {
		t.Fatalf("reading stored blob: %v", err)
	}
	if err := mem.Set(ctx, "backup:user-2", blob); err != nil {
		t.Fatalf("planting blob: %v", err)
	}

	if _, _, err := svc.Load(ctx, "user-2"); !errors.Is(err, errors.ErrSnapshotCorrupt) {
		t.Errorf("Load() with a foreign snapshot error = %v, want ErrSnapshotCorrupt", err)
	}
}

func TestBackupCorruptBlob(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := &Service{Store: mem}

	tests := []struct {
		name string
		blob string
	}{
		{"not json", "not even json"},
		{"bad iv", `{"iv":"!!!","data":"aGVsbG8=","createdAt":"2026-01-01T00:00:00Z","count":1}`},
		{"short iv", `{"iv":"aGVsbG8=","data":"aGVsbG8=","createdAt":"2026-01-01T00:00:00Z","count":1}`},
		{"bad data", `{"iv":"AAAAAAAAAAAAAAAA","data":"!!!","createdAt":"2026-01-01T00:00:00Z","count":1}`},
		{"tampered data", `{"iv":"AAAAAAAAAAAAAAAA","data":"aGVsbG8gd29ybGQhISE=","createdAt":"2026-01-01T00:00:00Z","count":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mem.Set(ctx, "backup:user-1", []byte(tt.blob)); err != nil {
				t.Fatalf("planting blob: %v", err)
			}
			if _, _, err := svc.Load(ctx, "user-1"); !errors.Is(err, errors.ErrSnapshotCorrupt) {
				t.Errorf("Load() error = %v, want ErrSnapshotCorrupt", err)
			}
		})
	}
}

func TestBackupMetaDoesNotRequireDecryption(t *testing.T) {
	ctx := context.Background()
	svc := &Service{Store: store.NewMemoryStore()}

	saved, err := svc.Save(ctx, "user-1", sampleCollection())
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	meta, err := svc.Meta(ctx, "user-1")
	if err != nil {
		t.Fatalf("Meta() unexpected error: %v", err)
	}
	if meta.Count != saved.Count || !meta.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("Meta() = %+v, want %+v", meta, saved)
	}
}

func TestDeriveKeyStableAndDistinct(t *testing.T) {
	a1 := deriveKey("user-1")
	a2 := deriveKey("user-1")
	b := deriveKey("user-2")

	if string(a1) != string(a2) {
		t.Error("deriveKey is not deterministic")
	}
	if string(a1) == string(b) {
		t.Error("different users derived the same key")
	}
	if len(a1) != keyLength {
		t.Errorf("key length = %d, want %d", len(a1), keyLength)
	}

	long := deriveKey(types.UserId("user-with-a-very-long-identifier-over-32-bytes"))
	if len(long) != keyLength {
		t.Errorf("long id key length = %d, want %d", len(long), keyLength)
	}
}
