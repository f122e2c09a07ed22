package changefeed

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/pkg/config"
)

// New picks the redis feed when an address is configured and the
// in-process broadcaster otherwise.
func New(lc fx.Lifecycle, cfg *config.Config, l *zap.SugaredLogger) (Feed, error) {
	if cfg.Redis.Addr == "" {
		l.Infow("change feed: in-process")
		return NewBroadcaster(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		l.Errorf("redis ping failed: %v", err)
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return rdb.Close() },
	})
	l.Infow("change feed: redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	return NewRedisFeed(rdb, cfg.Redis.Channel, l), nil
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(f Feed) Publisher { return f }),
)
