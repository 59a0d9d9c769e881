package auth

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)

	token, err := svc.Issue(domain.Identity{UserID: "u1", Username: "ann", IsAdmin: true})
	require.NoError(t, err)
	assert.Contains(t, token, "v4.local.")

	claims, err := svc.Verify(token)
	require.NoError(t, err)

	ident := claims.Identity()
	assert.Equal(t, "u1", ident.UserID)
	assert.Equal(t, "ann", ident.Username)
	assert.True(t, ident.IsAdmin)
	assert.Equal(t, "u1", claims.Subject)
}

func TestTokenService_Expired(t *testing.T) {
	svc, err := NewTokenService(testKey(), time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestTokenService_WrongKey(t *testing.T) {
	a, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)

	other := testKey()
	other[0] = 0xff
	b, err := NewTokenService(other, time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestTokenService_Garbage(t *testing.T) {
	svc, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify("not-a-token")
	assert.Error(t, err)
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// Second load returns the stored key.
	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	raw, err := os.ReadFile(filepath.Join(dir, "token.key"))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(key), string(raw))
}

func TestLoadOrGenerateKey_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token.key"), []byte("short"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}
