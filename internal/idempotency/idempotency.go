package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key derives the idempotency key for a commit from the inputs that make
// it the same campaign: who is sending, which offer, and the exact upload.
func Key(restaurantName, offerCode string, upload []byte) string {
	h := sha256.New()
	h.Write([]byte(restaurantName))
	h.Write([]byte{0})
	h.Write([]byte(offerCode))
	h.Write([]byte{0})
	h.Write(upload)
	return hex.EncodeToString(h.Sum(nil))
}

// Store remembers accepted commit keys for a bounded window. Reserve
// returns false when the key was already accepted inside the window.
type Store interface {
	Reserve(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisStore backs the window with SET NX EX, so the guard holds across
// service replicas.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, window time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, "commit:"+key, 1, window).Result()
}

// MemoryStore is the single-process fallback used in tests and when no
// Redis is configured.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.seen[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.seen[key] = now.Add(window)
	return true, nil
}
