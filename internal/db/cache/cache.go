// Package cache подключает Redis. Используется для аренды задачи начисления
// между несколькими экземплярами сервиса.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"serotonyl.ru/goldmine/internal/config"
)

// Connect создаёт клиента и проверяет соединение.
// Без REDIS_ADDR возвращает nil без ошибки.
func Connect(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			_ = cn.ClientSetName(ctx, "goldmine").Err()
			return nil
		},
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s недоступен: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
