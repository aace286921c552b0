package identity

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations remembers signed-out token ids until their tokens expire.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations keeps revoked ids in process memory. Entries are pruned
// lazily once their expiry has passed.
type MemoryRevocations struct {
	now func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRevocations(now func() time.Time) *MemoryRevocations {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocations{now: now, revoked: make(map[string]time.Time)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, until := range m.revoked {
		if !until.After(now) {
			delete(m.revoked, id)
		}
	}
	_, ok := m.revoked[tokenID]
	return ok, nil
}

const redisRevocationPrefix = "framevault:revoked:"

// RedisRevocations stores revoked ids as keys that expire with the token, so
// every instance behind a load balancer sees the same sign-outs.
type RedisRevocations struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, now: time.Now}
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisRevocationPrefix+tokenID, "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisRevocationPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var (
	_ Revocations = (*MemoryRevocations)(nil)
	_ Revocations = (*RedisRevocations)(nil)
)
