package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain/compliance/internal/config"
	"coldchain/compliance/internal/store"
)

func setupRedisKeys(t *testing.T) (*miniredis.Miniredis, *store.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, store.NewRedisStoreFromClient(client)
}

func TestAuthenticator_StaticKey(t *testing.T) {
	a := NewAuthenticator(&config.Config{ValidAPIKeys: []string{"dev-key"}, AuthCacheTTLSeconds: 60}, nil)

	p, ok := a.Validate(context.Background(), "dev-key")
	require.True(t, ok)
	assert.Equal(t, RoleDevice, p.Role)

	_, ok = a.Validate(context.Background(), "other")
	assert.False(t, ok)

	_, ok = a.Validate(context.Background(), "")
	assert.False(t, ok)
}

func TestAuthenticator_RedisLookupIsCached(t *testing.T) {
	mr, rs := setupRedisKeys(t)
	require.NoError(t, mr.Set("device:auth:reefer-key", "reefer-17"))

	a := NewAuthenticator(&config.Config{AuthCacheTTLSeconds: 60}, rs)
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	p, ok := a.Validate(context.Background(), "reefer-key")
	require.True(t, ok)
	assert.Equal(t, "device:reefer-17", p.Subject)

	// Served from the local cache while the entry is fresh.
	mr.Del("device:auth:reefer-key")
	_, ok = a.Validate(context.Background(), "reefer-key")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = a.Validate(context.Background(), "reefer-key")
	assert.False(t, ok)
}

func TestAuthenticator_RedisDown(t *testing.T) {
	mr, rs := setupRedisKeys(t)
	a := NewAuthenticator(&config.Config{AuthCacheTTLSeconds: 60}, rs)
	mr.Close()

	_, ok := a.Validate(context.Background(), "any")
	assert.False(t, ok)
}

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT([]byte("secret"))

	tok, err := j.GenerateToken("ops@example.com", RoleStaff, time.Hour)
	require.NoError(t, err)

	p, err := j.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "ops@example.com", Role: RoleStaff}, p)
}

func TestJWT_Rejects(t *testing.T) {
	j := NewJWT([]byte("secret"))

	_, err := j.GenerateToken("ops", RoleDevice, time.Hour)
	assert.Error(t, err)
	_, err = j.GenerateToken("", RoleAdmin, time.Hour)
	assert.Error(t, err)

	expired, err := j.GenerateToken("ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = j.ParseToken(expired)
	assert.Error(t, err)

	other, err := NewJWT([]byte("other")).GenerateToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = j.ParseToken(other)
	assert.Error(t, err)

	bogusRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops", "role": "root", "aud": tokenAudience, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = j.ParseToken(bogusRole)
	assert.Error(t, err)

	noAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = j.ParseToken(noAudience)
	assert.Error(t, err)
}
