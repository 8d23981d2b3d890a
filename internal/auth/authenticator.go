package auth

import (
	"context"
	"sync"
	"time"

	"coldchain/compliance/internal/config"
)

// APIKeyStore resolves a device API key to the device it was issued to.
type APIKeyStore interface {
	GetAPIKey(ctx context.Context, apiKey string) (string, error)
}

type cacheEntry struct {
	deviceID  string
	expiresAt time.Time
}

// Authenticator validates device API keys: static keys from config first,
// then a local TTL cache, then Redis.
type Authenticator struct {
	localCache sync.Map
	keys       APIKeyStore
	ttl        time.Duration
	staticKeys map[string]bool
	now        func() time.Time
}

func NewAuthenticator(cfg *config.Config, keys APIKeyStore) *Authenticator {
	staticKeys := make(map[string]bool, len(cfg.ValidAPIKeys))
	for _, k := range cfg.ValidAPIKeys {
		if k != "" {
			staticKeys[k] = true
		}
	}

	return &Authenticator{
		keys:       keys,
		ttl:        time.Duration(cfg.AuthCacheTTLSeconds) * time.Second,
		staticKeys: staticKeys,
		now:        time.Now,
	}
}

// Validate returns the device principal for apiKey, or false when the key
// is unknown or the lookup failed.
func (a *Authenticator) Validate(ctx context.Context, apiKey string) (Principal, bool) {
	if apiKey == "" {
		return Principal{}, false
	}

	if a.staticKeys[apiKey] {
		return devicePrincipal("static"), true
	}

	if raw, ok := a.localCache.Load(apiKey); ok {
		entry := raw.(cacheEntry)
		if a.now().Before(entry.expiresAt) {
			return devicePrincipal(entry.deviceID), true
		}
		a.localCache.Delete(apiKey)
	}

	if a.keys == nil {
		return Principal{}, false
	}
	deviceID, err := a.keys.GetAPIKey(ctx, apiKey)
	if err != nil || deviceID == "" {
		return Principal{}, false
	}

	a.localCache.Store(apiKey, cacheEntry{
		deviceID:  deviceID,
		expiresAt: a.now().Add(a.ttl),
	})
	return devicePrincipal(deviceID), true
}

func devicePrincipal(deviceID string) Principal {
	return Principal{Subject: "device:" + deviceID, Role: RoleDevice}
}
