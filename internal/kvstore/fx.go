package kvstore

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/config"
)

var Module = fx.Module("kvstore",
	fx.Provide(New),
)

// New selects the redis-backed store when an address is configured and falls
// back to the in-process store otherwise.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Store {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Warn("no redis address configured, using in-memory fast store")
		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("fast store unreachable at startup", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info("fast store initialized", zap.String("addr", addr), zap.Int("db", cfg.RedisDB))
	return NewRedisStore(client)
}
