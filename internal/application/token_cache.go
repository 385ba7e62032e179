package application

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// tokenCache remembers bearer strings that recently passed argon2
// verification so every request does not pay for a hash. Entries hold no
// user state; status is always reloaded.
type tokenCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]tokenCacheEntry
}

type tokenCacheEntry struct {
	tokenID   uuid.UUID
	userID    string
	expiresAt time.Time
}

func newTokenCache(ttl time.Duration, maxEntries int, now func() time.Time) *tokenCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &tokenCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]tokenCacheEntry),
	}
}

func (c *tokenCache) Get(bearer string) (tokenCacheEntry, bool) {
	if c == nil {
		return tokenCacheEntry{}, false
	}
	key := tokenCacheKey(bearer)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return tokenCacheEntry{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return tokenCacheEntry{}, false
	}
	return entry, true
}

func (c *tokenCache) Store(bearer string, tokenID uuid.UUID, userID string) {
	if c == nil {
		return
	}
	entry := tokenCacheEntry{tokenID: tokenID, userID: userID, expiresAt: c.now().Add(c.ttl)}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[tokenCacheKey(bearer)] = entry
}

// Forget drops every entry for tokenID.
func (c *tokenCache) Forget(tokenID uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.tokenID == tokenID {
			delete(c.entries, key)
		}
	}
}

func (c *tokenCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *tokenCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

// tokenCacheKey avoids keeping raw secrets in memory.
func tokenCacheKey(bearer string) string {
	sum := sha256.Sum256([]byte(bearer))
	return hex.EncodeToString(sum[:])
}
