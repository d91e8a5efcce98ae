package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chat-client/db"
)

// fakeSettings is an in-memory Settings with per-key failure injection.
type fakeSettings struct {
	values  map[string]string
	getErrs map[string]error
	setErr  error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		values:  make(map[string]string),
		getErrs: make(map[string]error),
	}
}

func (f *fakeSettings) GetSetting(key string) (string, error) {
	if err, ok := f.getErrs[key]; ok {
		return "", err
	}
	value, ok := f.values[key]
	if !ok {
		return "", db.ErrNotFound
	}
	return value, nil
}

func (f *fakeSettings) SetSetting(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func TestInitializeWithEmptyStorage(t *testing.T) {
	store := NewTokenStore(newFakeSettings(), zerolog.Nop())
	store.Initialize()

	assert.Empty(t, store.Token())
	assert.Empty(t, store.RefreshToken())
}

func TestInitializeLoadsPersistedValues(t *testing.T) {
	settings := newFakeSettings()
	settings.values["token"] = "bearer-value"
	settings.values["refreshToken"] = "refresh-value"

	store := NewTokenStore(settings, zerolog.Nop())
	store.Initialize()

	assert.Equal(t, "bearer-value", store.Token())
	assert.Equal(t, "refresh-value", store.RefreshToken())
}

func TestInitializeLoadsFieldsIndependently(t *testing.T) {
	settings := newFakeSettings()
	settings.values["refreshToken"] = "still-here"
	settings.getErrs["token"] = errors.New("disk read failed")

	store := NewTokenStore(settings, zerolog.Nop())
	store.Initialize()

	// The broken field falls back to empty; the other loads fine.
	assert.Empty(t, store.Token())
	assert.Equal(t, "still-here", store.RefreshToken())
}

func TestSetTokenWritesThrough(t *testing.T) {
	settings := newFakeSettings()
	store := NewTokenStore(settings, zerolog.Nop())

	require.NoError(t, store.SetToken("new-bearer"))
	require.NoError(t, store.SetRefreshToken("new-refresh"))

	assert.Equal(t, "new-bearer", store.Token())
	assert.Equal(t, "new-bearer", settings.values["token"])
	assert.Equal(t, "new-refresh", settings.values["refreshToken"])
}

func TestSetTokenPersistFailure(t *testing.T) {
	settings := newFakeSettings()
	settings.setErr = errors.New("database locked")

	store := NewTokenStore(settings, zerolog.Nop())
	err := store.SetToken("value")
	require.Error(t, err)

	// The in-memory value is not updated when persistence fails.
	assert.Empty(t, store.Token())
}

func TestExpiresAtParsesJWT(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiry),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	store := NewTokenStore(newFakeSettings(), zerolog.Nop())
	require.NoError(t, store.SetToken(signed))

	got, ok := store.ExpiresAt()
	require.True(t, ok)
	assert.True(t, got.Equal(expiry))
}

func TestExpiresAtNonJWT(t *testing.T) {
	store := NewTokenStore(newFakeSettings(), zerolog.Nop())
	require.NoError(t, store.SetToken("opaque-session-token"))

	_, ok := store.ExpiresAt()
	assert.False(t, ok)
}

func TestExpiresAtEmptyToken(t *testing.T) {
	store := NewTokenStore(newFakeSettings(), zerolog.Nop())
	_, ok := store.ExpiresAt()
	assert.False(t, ok)
}
