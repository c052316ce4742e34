package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/rand"
	"github.com/arashthr/markcentral/internal/store"
	"github.com/arashthr/markcentral/internal/types"
)

const (
	SessionTokenBytes = 32
	sessionLifetime   = 180 * 24 * time.Hour
)

type Session struct {
	UserId    types.UserId `json:"userId"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
	// Token is only set when creating a new session; the store carries the
	// hash only.
	Token string `json:"-"`
}

type SessionService struct {
	Store store.Store
	Users *UserService
}

func sessionKey(tokenHash string) string {
	return "session:" + tokenHash
}

func hashToken(token string) string {
	tokenHash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(tokenHash[:])
}

func (ss *SessionService) Create(ctx context.Context, userId types.UserId) (*Session, error) {
	token, err := rand.String(SessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	now := time.Now().UTC()
	session := Session{
		UserId:    userId,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionLifetime),
		Token:     token,
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := ss.Store.Set(ctx, sessionKey(hashToken(token)), data); err != nil {
		return nil, fmt.Errorf("session create: %w", err)
	}
	return &session, nil
}

// User resolves a session token to its account. Unknown and expired tokens
// are ErrNotFound; expired sessions are removed on the way out.
func (ss *SessionService) User(ctx context.Context, token string) (*User, error) {
	key := sessionKey(hashToken(token))
	data, err := ss.Store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("session user: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		_ = ss.Store.Delete(ctx, key)
		return nil, errors.ErrNotFound
	}
	return ss.Users.ByID(ctx, session.UserId)
}

func (ss *SessionService) Delete(ctx context.Context, token string) error {
	if err := ss.Store.Delete(ctx, sessionKey(hashToken(token))); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
