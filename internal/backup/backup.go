// Package backup stores one encrypted collection snapshot per user. The
// snapshot is sealed with AES-256-GCM under a key derived from the user id,
// so the hosting store never sees bookmark contents.
package backup

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/store"
	"github.com/arashthr/markcentral/internal/types"
)

const (
	keyLength     = 32
	kdfIterations = 1000
	kdfSalt       = "salt_simulated_cloud"
	nonceLength   = 12
)

// Meta describes a stored snapshot without decrypting it.
type Meta struct {
	CreatedAt time.Time `json:"createdAt"`
	Count     int       `json:"count"`
}

type envelope struct {
	IV        string    `json:"iv"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
	Count     int       `json:"count"`
}

// Service saves and restores encrypted snapshots. Each user has a single
// slot; saving overwrites the previous snapshot.
type Service struct {
	Store store.Store
}

func backupKey(userId types.UserId) string {
	return "backup:" + string(userId)
}

// deriveKey stretches the user id into an AES-256 key. The id is padded or
// truncated to a fixed width first so the KDF input length is stable.
func deriveKey(userId types.UserId) []byte {
	material := []byte(userId)
	if len(material) > keyLength {
		material = material[:keyLength]
	}
	for len(material) < keyLength {
		material = append(material, '0')
	}
	return pbkdf2.Key(material, []byte(kdfSalt), kdfIterations, keyLength, sha256.New)
}

func newGCM(userId types.UserId) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(userId))
	if err != nil {
		return nil, fmt.Errorf("init backup cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init backup cipher: %w", err)
	}
	return gcm, nil
}

// Save encrypts the collection and overwrites the user's backup slot.
func (s *Service) Save(ctx context.Context, userId types.UserId, collection []bookmarks.Bookmark) (Meta, error) {
	if collection == nil {
		collection = []bookmarks.Bookmark{}
	}
	plaintext, err := json.Marshal(collection)
	if err != nil {
		return Meta{}, fmt.Errorf("encode backup: %w", err)
	}

	gcm, err := newGCM(userId)
	if err != nil {
		return Meta{}, err
	}
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return Meta{}, fmt.Errorf("generate backup nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	env := envelope{
		IV:        base64.StdEncoding.EncodeToString(nonce),
		Data:      base64.StdEncoding.EncodeToString(sealed),
		CreatedAt: time.Now().UTC(),
		Count:     len(collection),
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return Meta{}, fmt.Errorf("encode backup envelope: %w", err)
	}
	if err := s.Store.Set(ctx, backupKey(userId), blob); err != nil {
		return Meta{}, fmt.Errorf("store backup: %w", err)
	}
	return Meta{CreatedAt: env.CreatedAt, Count: env.Count}, nil
}

// Load decrypts the user's snapshot. A missing slot is ErrNotFound; anything
// that fails to decode or decrypt is ErrSnapshotCorrupt.
func (s *Service) Load(ctx context.Context, userId types.UserId) ([]bookmarks.Bookmark, Meta, error) {
	blob, err := s.Store.Get(ctx, backupKey(userId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Meta{}, errors.ErrNotFound
		}
		return nil, Meta{}, fmt.Errorf("load backup: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, Meta{}, errors.ErrSnapshotCorrupt
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(nonce) != nonceLength {
		return nil, Meta{}, errors.ErrSnapshotCorrupt
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, Meta{}, errors.ErrSnapshotCorrupt
	}

	gcm, err := newGCM(userId)
	if err != nil {
		return nil, Meta{}, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, Meta{}, errors.ErrSnapshotCorrupt
	}

	var collection []bookmarks.Bookmark
	if err := json.Unmarshal(plaintext, &collection); err != nil {
		return nil, Meta{}, errors.ErrSnapshotCorrupt
	}
	return collection, Meta{CreatedAt: env.CreatedAt, Count: env.Count}, nil
}

// Meta returns the stored snapshot's metadata without decrypting the payload.
func (s *Service) Meta(ctx context.Context, userId types.UserId) (Meta, error) {
	blob, err := s.Store.Get(ctx, backupKey(userId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Meta{}, errors.ErrNotFound
		}
		return Meta{}, fmt.Errorf("load backup metadata: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return Meta{}, errors.ErrSnapshotCorrupt
	}
	return Meta{CreatedAt: env.CreatedAt, Count: env.Count}, nil
}

// Delete removes the user's backup slot.
func (s *Service) Delete(ctx context.Context, userId types.UserId) error {
	if err := s.Store.Delete(ctx, backupKey(userId)); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}
