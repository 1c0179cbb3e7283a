package jobs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease: взаимоисключающая аренда по ключу с ограниченным сроком.
type Lease interface {
	// Acquire возвращает токен владельца и true, если аренда получена.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Release снимает аренду, только если она всё ещё принадлежит token.
	Release(ctx context.Context, key, token string) error
}

// Удаляем ключ, только если значение совпадает с токеном владельца.
const luaRelease = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLease: аренда на SET NX PX.
type RedisLease struct {
	rdb        redis.UniversalClient
	scrRelease *redis.Script
}

// NewRedisLease создаёт аренду поверх клиента Redis.
func NewRedisLease(rdb redis.UniversalClient) *RedisLease {
	return &RedisLease{rdb: rdb, scrRelease: redis.NewScript(luaRelease)}
}

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token, err := newToken()
	if err != nil {
		return "", false, err
	}
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("аренда %s: %w", key, err)
	}
	return token, ok, nil
}

func (l *RedisLease) Release(ctx context.Context, key, token string) error {
	if err := l.scrRelease.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("снятие аренды %s: %w", key, err)
	}
	return nil
}

// NoopLease всегда выдаёт аренду. Для одного экземпляра без Redis.
type NoopLease struct{}

func (NoopLease) Acquire(context.Context, string, time.Duration) (string, bool, error) {
	return "local", true, nil
}

func (NoopLease) Release(context.Context, string, string) error { return nil }

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("токен аренды: %w", err)
	}
	return hex.EncodeToString(b), nil
}
