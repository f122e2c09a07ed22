package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/pkg/config"
)

func New(lc fx.Lifecycle, cfg *config.Config, l *zap.SugaredLogger) (Publisher, error) {
	if cfg.Events.AMQPURL == "" {
		l.Infow("domain events disabled, no amqp url configured")
		return Noop{}, nil
	}
	p, err := DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		l.Errorf("amqp connect failed: %v", err)
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return p.Close() },
	})
	l.Infow("domain events via amqp", "exchange", cfg.Events.Exchange)
	return p, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
