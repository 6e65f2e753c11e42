package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist is the one-way set of revoked tokens. Entries only need to live
// until the token would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

const blacklistKeyPrefix = "blacklist:"

// RedisBlacklist keeps revoked tokens in Redis with a TTL, so revocations are
// shared by every process using the same Redis.
type RedisBlacklist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client, now: time.Now}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		// already expired; nothing can use it any more
		return nil
	}
	return b.client.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.client.Get(ctx, blacklistKeyPrefix+token).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryBlacklist is the single-process fallback used when no Redis is
// configured. Expired entries are swept on every Revoke.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, token string, until time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[token] = until
	b.sweepLocked()
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	until, ok := b.entries[token]
	return ok && b.now().Before(until), nil
}

// Len reports how many entries are currently held.
func (b *MemoryBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *MemoryBlacklist) sweepLocked() {
	now := b.now()
	for token, until := range b.entries {
		if !now.Before(until) {
			delete(b.entries, token)
		}
	}
}
