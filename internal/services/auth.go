package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapcal/apiserver/internal/store"
	"github.com/snapcal/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserStore defines the persistence operations AuthService needs for users.
type UserStore interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
}

// SessionStore defines the persistence operations for bearer sessions.
type SessionStore interface {
	Create(ctx context.Context, session types.Session) error
	GetUserID(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// AuthService orchestrates registration, login, logout, and token
// resolution over the user and session stores.
type AuthService struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
}

// NewAuthService constructs an AuthService. A zero sessionTTL means issued
// sessions never expire, which is the default policy.
func NewAuthService(users UserStore, sessions SessionStore, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

// Register creates an account for the given credentials and issues one
// session token. If a placeholder account exists at the email (a record
// without a password), it is claimed in place rather than duplicated.
func (s *AuthService) Register(ctx context.Context, email, password string) (types.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return types.User{}, "", fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return types.User{}, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, "", err
	}
	passwordHash := string(hash)

	user, err := s.createOrClaim(ctx, email, passwordHash)
	if err != nil {
		return types.User{}, "", err
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// createOrClaim implements the check-then-create registration rule. A lost
// race against a concurrent registration for the same email surfaces as a
// unique-constraint conflict, never a duplicate row.
func (s *AuthService) createOrClaim(ctx context.Context, email, passwordHash string) (types.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.HasPassword() {
			return types.User{}, ErrEmailTaken
		}
		if err := s.users.SetPassword(ctx, existing.ID, passwordHash); err != nil {
			return types.User{}, err
		}
		existing.PasswordHash = &passwordHash
		return existing, nil
	case errors.Is(err, store.ErrNotFound):
		user, err := s.users.Create(ctx, types.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: &passwordHash,
		})
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return user, err
	default:
		return types.User{}, err
	}
}

// Login verifies credentials and issues a new session token. Previously
// issued tokens for the user remain valid.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return types.User{}, "", fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", err
	}
	if !user.HasPassword() {
		return types.User{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return types.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// Logout revokes the given token. Revoking an empty or unknown token is a
// no-op; logout never fails from the client's point of view.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// CurrentUser resolves a token to its user. An empty token, an
// unresolvable token, or a session pointing at a deleted user all yield
// (nil, nil): the anonymous state, not an error.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, nil
	}
	userID, err := s.sessions.GetUserID(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ResolveToken resolves a bearer token to a user id for the request guard.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (string, error) {
	return s.sessions.GetUserID(ctx, token)
}

func (s *AuthService) issueSession(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	session := types.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if s.sessionTTL > 0 {
		expiresAt := session.CreatedAt.Add(s.sessionTTL)
		session.ExpiresAt = &expiresAt
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// newToken returns a fresh bearer token with 128 bits of entropy.
func newToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

// NormalizeEmail lowercases and trims an email address. Every lookup,
// comparison, and write goes through the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
