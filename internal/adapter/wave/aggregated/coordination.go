package aggregated

import (
	stdcontext "context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClaimStore hands out short-lived exclusive claims, so only one process at a time
// auto-creates an aggregated merchant for a given profile.
type ClaimStore interface {
	// Claim returns a release token and true if the claim was acquired.
	Claim(ctx stdcontext.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx stdcontext.Context, key, token string) error
}

// IDCache stores resolved aggregated merchant ids. It is supplied by the caller;
// the resolver owns no cache of its own.
type IDCache interface {
	Get(ctx stdcontext.Context, key string) (string, bool, error)
	Set(ctx stdcontext.Context, key, merchantID string, ttl time.Duration) error
}

// RedisClaimStore implements ClaimStore with SET NX and a token-checked delete.
type RedisClaimStore struct {
	client    *redis.Client
	keyPrefix string
}

// releaseScript deletes the claim only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClaimStore creates a claim store with an existing Redis client.
func NewRedisClaimStore(client *redis.Client, keyPrefix string) *RedisClaimStore {
	if keyPrefix == "" {
		keyPrefix = "wave:aggregated:claim:"
	}
	return &RedisClaimStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisClaimStore) Claim(ctx stdcontext.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return token, ok, nil
}

func (s *RedisClaimStore) Release(ctx stdcontext.Context, key, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release claim %s: %w", key, err)
	}
	return nil
}

// RedisIDCache implements IDCache on Redis string keys with expiry.
type RedisIDCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIDCache creates an id cache with an existing Redis client.
func NewRedisIDCache(client *redis.Client, keyPrefix string) *RedisIDCache {
	if keyPrefix == "" {
		keyPrefix = "wave:aggregated:id:"
	}
	return &RedisIDCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisIDCache) Get(ctx stdcontext.Context, key string) (string, bool, error) {
	id, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached merchant id: %w", err)
	}
	return id, true, nil
}

func (c *RedisIDCache) Set(ctx stdcontext.Context, key, merchantID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, merchantID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache merchant id: %w", err)
	}
	return nil
}

// InMemoryClaimStore is a single-process ClaimStore.
type InMemoryClaimStore struct {
	mu     sync.Mutex
	claims map[string]claim
	now    func() time.Time
}

type claim struct {
	token   string
	expires time.Time
}

// NewInMemoryClaimStore creates an empty in-memory claim store.
func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{claims: make(map[string]claim), now: time.Now}
}

func (s *InMemoryClaimStore) Claim(_ stdcontext.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if c, ok := s.claims[key]; ok && now.Before(c.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	s.claims[key] = claim{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (s *InMemoryClaimStore) Release(_ stdcontext.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.claims[key]; ok && c.token == token {
		delete(s.claims, key)
	}
	return nil
}

// InMemoryIDCache is a single-process IDCache with per-entry expiry.
type InMemoryIDCache struct {
	mu      sync.RWMutex
	entries map[string]cachedID
	now     func() time.Time
}

type cachedID struct {
	id      string
	expires time.Time
}

// NewInMemoryIDCache creates an empty in-memory id cache.
func NewInMemoryIDCache() *InMemoryIDCache {
	return &InMemoryIDCache{entries: make(map[string]cachedID), now: time.Now}
}

func (c *InMemoryIDCache) Get(_ stdcontext.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return "", false, nil
	}
	return e.id, true, nil
}

func (c *InMemoryIDCache) Set(_ stdcontext.Context, key, merchantID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedID{id: merchantID, expires: c.now().Add(ttl)}
	return nil
}

var (
	_ ClaimStore = (*RedisClaimStore)(nil)
	_ ClaimStore = (*InMemoryClaimStore)(nil)
	_ IDCache    = (*RedisIDCache)(nil)
	_ IDCache    = (*InMemoryIDCache)(nil)
)
