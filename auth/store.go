package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"rag-chat-client/db"
)

// Keys under which the token fields are persisted.
const (
	tokenKey        = "token"
	refreshTokenKey = "refreshToken"
)

// Settings is the persistent key-value storage the store writes through to.
// *db.DB satisfies it.
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// TokenStore holds the bearer and refresh tokens for the current user.
// Construct one per application and inject it; writes go through to
// persistent storage synchronously with the in-memory update, and reads
// always return the current value.
type TokenStore struct {
	mu           sync.RWMutex
	token        string
	refreshToken string
	settings     Settings
	log          zerolog.Logger
}

// NewTokenStore creates a token store backed by the given settings storage.
func NewTokenStore(settings Settings, logger zerolog.Logger) *TokenStore {
	return &TokenStore{
		settings: settings,
		log:      logger,
	}
}

// Initialize loads the persisted token values. Each field is loaded
// independently and best effort: a missing key falls back to the empty
// default, and a load failure is logged but never blocks startup.
func (s *TokenStore) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = s.loadField(tokenKey)
	s.refreshToken = s.loadField(refreshTokenKey)
}

func (s *TokenStore) loadField(key string) string {
	value, err := s.settings.GetSetting(key)
	if errors.Is(err, db.ErrNotFound) {
		return ""
	}
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("failed to load persisted token field")
		return ""
	}
	return value
}

// Token returns the current bearer token.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// RefreshToken returns the current refresh token.
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// SetToken updates the bearer token, writing through to storage.
func (s *TokenStore) SetToken(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.SetSetting(tokenKey, value); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	s.token = value
	return nil
}

// SetRefreshToken updates the refresh token, writing through to storage.
func (s *TokenStore) SetRefreshToken(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.SetSetting(refreshTokenKey, value); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	s.refreshToken = value
	return nil
}

// ExpiresAt inspects the bearer token's exp claim without verifying the
// signature. Best effort: tokens that are not JWTs or carry no expiry
// report ok=false. Never used to gate requests; the server remains the
// authority on token validity.
func (s *TokenStore) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
