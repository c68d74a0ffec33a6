package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/iyhunko/inventory-sync/internal/config"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to the configured redis and verifies it answers a ping.
func NewRedisClient(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	if conf.Addr == "" {
		return nil, fmt.Errorf("%w for key: %s", config.ErrMissingConfig, config.RedisAddrEnv)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	pong, err := client.Ping(pingCtx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("connected to Redis", slog.String("addr", conf.Addr), slog.String("ping", pong))

	return client, nil
}
