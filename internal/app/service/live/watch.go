// Package live turns change-feed events into sequences of full snapshots.
package live

import (
	"context"

	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
)

// Handle is one active watch. Snapshots arrive on C until the watch is
// closed, its context ends or a load fails; Err then reports the failure.
type Handle[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Close releases the feed subscription and waits for the watcher to exit.
// It is safe to call more than once.
func (h *Handle[T]) Close() {
	h.cancel()
	<-h.done
}

// Err is valid once C is closed. It is nil when the watch was closed or
// its context ended.
func (h *Handle[T]) Err() error {
	<-h.done
	return h.err
}

// Watch emits one snapshot read by load right away and one more after every batch of
// relevant changes. Changes that pile up while the consumer is busy are
// folded into a single reload. The feed subscription is taken before the
// first load so no change between the two is lost, and it only buffers
// relevant changes so unrelated traffic cannot crowd one out.
func Watch[T any](ctx context.Context, feed changefeed.Feed, relevant func(changefeed.Event) bool, load func(context.Context) (T, error), l *zap.SugaredLogger) *Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	events, release := feed.Subscribe(ctx, relevant)
	out := make(chan T)
	h := &Handle[T]{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer close(out)
		defer release()
		defer cancel()
		h.err = run(ctx, events, load, out)
		if h.err != nil {
			l.Warnw("live: watch stopped", "err", h.err)
		}
	}()
	return h
}

func run[T any](ctx context.Context, events <-chan changefeed.Event, load func(context.Context) (T, error), out chan<- T) error {
	emit := func() (bool, error) {
		v, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
		select {
		case out <- v:
			return true, nil
		case <-ctx.Done():
			return false, nil
		}
	}

	if ok, err := emit(); !ok {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if !drain(events) {
				return nil
			}
			if ok, err := emit(); !ok {
				return err
			}
		}
	}
}

// drain discards the events already queued. It reports false when the
// channel is closed.
func drain(events <-chan changefeed.Event) bool {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

// OnCollections matches any change in one of the named collections.
func OnCollections(collections ...string) func(changefeed.Event) bool {
	set := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		set[c] = struct{}{}
	}
	return func(ev changefeed.Event) bool {
		_, ok := set[ev.Collection]
		return ok
	}
}

// OnRecord matches changes to a single record.
func OnRecord(collection, id string) func(changefeed.Event) bool {
	return func(ev changefeed.Event) bool {
		return ev.Collection == collection && ev.ID == id
	}
}
