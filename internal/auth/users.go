// Package auth implements accounts, email verification and sessions on top
// of the key-value store.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/rand"
	"github.com/arashthr/markcentral/internal/store"
	"github.com/arashthr/markcentral/internal/types"
)

const (
	codeDigits = 6
	codeTTL    = 15 * time.Minute
)

type User struct {
	ID            types.UserId `json:"id"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"passwordHash"`
	EmailVerified bool         `json:"emailVerified"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type pendingCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CodeSender delivers a one-time code to the account email. Kind is
// "verification" or "reset".
type CodeSender interface {
	SendCode(to, kind, code string) error
}

// UserService owns account records. Users are keyed by normalized email;
// a secondary id key points back at the email so sessions can resolve users
// by id.
type UserService struct {
	Store  store.Store
	Logger *zap.SugaredLogger
	// Sender delivers issued codes. When nil the code is only surfaced
	// through the log.
	Sender CodeSender
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userKey(email string) string {
	return "user:" + normalizeEmail(email)
}

func userIdKey(id types.UserId) string {
	return "userid:" + string(id)
}

func verifyCodeKey(email string) string {
	return "verify:" + normalizeEmail(email)
}

func resetCodeKey(email string) string {
	return "reset:" + normalizeEmail(email)
}

func (us *UserService) getUser(ctx context.Context, email string) (*User, error) {
	data, err := us.Store.Get(ctx, userKey(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (us *UserService) putUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := us.Store.Set(ctx, userKey(user.Email), data); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	if err := us.Store.Set(ctx, userIdKey(user.ID), []byte(user.Email)); err != nil {
		return fmt.Errorf("store user id index: %w", err)
	}
	return nil
}

// ByID resolves a user through the id index.
func (us *UserService) ByID(ctx context.Context, id types.UserId) (*User, error) {
	email, err := us.Store.Get(ctx, userIdKey(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("resolve user id: %w", err)
	}
	return us.getUser(ctx, string(email))
}

// SignUp registers an account and issues a verification code. Registering
// over an unverified account replaces it; a verified account is ErrEmailTaken.
func (us *UserService) SignUp(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	existing, err := us.getUser(ctx, email)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.EmailVerified {
		return nil, errors.ErrEmailTaken
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	user := &User{
		ID:           types.UserId(uuid.NewString()),
		Email:        email,
		PasswordHash: string(hashedBytes),
		CreatedAt:    time.Now().UTC(),
	}
	if existing != nil {
		// Keep the id stable so an abandoned signup does not orphan data.
		user.ID = existing.ID
	}
	if err := us.putUser(ctx, user); err != nil {
		return nil, err
	}

	if err := us.issueCode(ctx, verifyCodeKey(email), email, "verification"); err != nil {
		return nil, err
	}
	return user, nil
}

func (us *UserService) issueCode(ctx context.Context, key, email, kind string) error {
	code, err := rand.NumericCode(codeDigits)
	if err != nil {
		return fmt.Errorf("issue %s code: %w", kind, err)
	}
	data, err := json.Marshal(pendingCode{
		Code:      code,
		ExpiresAt: time.Now().Add(codeTTL),
	})
	if err != nil {
		return fmt.Errorf("encode %s code: %w", kind, err)
	}
	if err := us.Store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store %s code: %w", kind, err)
	}
	if us.Sender != nil {
		if err := us.Sender.SendCode(email, kind, code); err != nil {
			return fmt.Errorf("deliver %s code: %w", kind, err)
		}
		return nil
	}
	if us.Logger != nil {
		us.Logger.Infow("Issued "+kind+" code", "email", email, "code", code)
	}
	return nil
}

func (us *UserService) consumeCode(ctx context.Context, key, code string) error {
	data, err := us.Store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.ErrInvalidCode
		}
		return fmt.Errorf("get code: %w", err)
	}
	var pending pendingCode
	if err := json.Unmarshal(data, &pending); err != nil {
		return fmt.Errorf("decode code: %w", err)
	}
	if time.Now().After(pending.ExpiresAt) {
		return errors.ErrCodeExpired
	}
	if pending.Code != code {
		return errors.ErrInvalidCode
	}
	if err := us.Store.Delete(ctx, key); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

// VerifyEmail confirms the account with the code issued at signup.
func (us *UserService) VerifyEmail(ctx context.Context, email, code string) (*User, error) {
	email = normalizeEmail(email)
	user, err := us.getUser(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidCode
		}
		return nil, err
	}
	if err := us.consumeCode(ctx, verifyCodeKey(email), code); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	if err := us.putUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResendVerification issues a fresh verification code for an unverified
// account.
func (us *UserService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := us.getUser(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return us.issueCode(ctx, verifyCodeKey(email), email, "verification")
}

// Authenticate checks the credentials. Unknown emails and wrong passwords
// both come back as ErrInvalidCredentials; unverified accounts as
// ErrNotVerified.
func (us *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	user, err := us.getUser(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, errors.ErrNotVerified
	}
	return user, nil
}

// StartPasswordReset issues a reset code. Unknown emails are a silent no-op
// so the endpoint does not reveal which addresses have accounts.
func (us *UserService) StartPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := us.getUser(ctx, email); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	return us.issueCode(ctx, resetCodeKey(email), email, "reset")
}

// ResetPassword sets a new password against a valid reset code.
func (us *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	user, err := us.getUser(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.ErrInvalidCode
		}
		return err
	}
	if err := us.consumeCode(ctx, resetCodeKey(email), code); err != nil {
		return err
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	user.PasswordHash = string(hashedBytes)
	return us.putUser(ctx, user)
}

// PeekVerificationCode exposes the pending verification code. Test helper.
func (us *UserService) PeekVerificationCode(ctx context.Context, email string) (string, error) {
	return us.peekCode(ctx, verifyCodeKey(email))
}

// PeekResetCode exposes the pending reset code. Test helper.
func (us *UserService) PeekResetCode(ctx context.Context, email string) (string, error) {
	return us.peekCode(ctx, resetCodeKey(email))
}

func (us *UserService) peekCode(ctx context.Context, key string) (string, error) {
	data, err := us.Store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var pending pendingCode
	if err := json.Unmarshal(data, &pending); err != nil {
		return "", err
	}
	return pending.Code, nil
}
