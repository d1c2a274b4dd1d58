package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisTTL = 30 * time.Second

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a named lock shared by every process using the same Redis.
//
// Each acquisition stores a random token with SET NX PX; the key expires
// after TTL so a crashed holder cannot block bookings forever. The TTL must
// exceed the longest commit.
type RedisLock struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisLock(client redis.UniversalClient, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisLock{
		client: client,
		prefix: "lock:",
		ttl:    ttl,
		tokens: make(map[string]string),
	}
}

func (l *RedisLock) Acquire(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	token := uuid.NewString()
	key := l.prefix + name

	ok, err := pollUntil(ctx, timeout, func(ctx context.Context) (bool, error) {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("acquire lock %q: redis setnx: %w", name, err)
		}
		return ok, nil
	})
	if !ok || err != nil {
		return false, err
	}

	l.mu.Lock()
	l.tokens[name] = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	token, ok := l.tokens[name]
	delete(l.tokens, name)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("release lock %q: not held", name)
	}

	n, err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock %q: redis eval: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("release lock %q: lock expired before release", name)
	}
	return nil
}
