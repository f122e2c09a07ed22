package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed relays events through a redis pub/sub channel so every API
// instance sees the changes committed by the others.
type RedisFeed struct {
	rdb     *redis.Client
	channel string
	l       *zap.SugaredLogger
}

func NewRedisFeed(rdb *redis.Client, channel string, l *zap.SugaredLogger) *RedisFeed {
	return &RedisFeed{rdb: rdb, channel: channel, l: l}
}

func (f *RedisFeed) Publish(ctx context.Context, events ...Event) error {
	const op = "changefeed.Publish"
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := f.rdb.Publish(ctx, f.channel, body).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, match func(Event) bool) (<-chan Event, func()) {
	ps := f.rdb.Subscribe(ctx, f.channel)
	out := make(chan Event, listenerBuffer)
	done := make(chan struct{})

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			if err := ps.Close(); err != nil {
				f.l.Debugw("changefeed: close subscription", "err", err)
			}
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				release()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.l.Warnw("changefeed: drop malformed event", "err", err)
					continue
				}
				if !accepts(match, ev) {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, release
}
