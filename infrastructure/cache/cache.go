package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"socialhub/infrastructure/logger"
)

// NewCache connects a Redis client used for the OAuth state store and the
// platform rate limiters. Both need cross-instance visibility, so an
// in-process map is only acceptable in tests.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Redis ping failed")
		return nil, err
	}
	return client, nil
}
