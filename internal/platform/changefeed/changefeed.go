package changefeed

import (
	"context"
	"sync"
	"time"
)

type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Event announces that a record of a collection changed. Listeners re-read
// the collection; the event carries no payload.
type Event struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         Op        `json:"op"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Feed fans change events out to any number of listeners.
type Feed interface {
	Publisher
	// Subscribe returns a channel of the events accepted by match (every
	// event when match is nil) and a release func. The channel is closed
	// after release or when ctx is done. Events are filtered before they
	// are buffered, so a full buffer always holds an unread match.
	Subscribe(ctx context.Context, match func(Event) bool) (<-chan Event, func())
}

func accepts(match func(Event) bool, ev Event) bool {
	return match == nil || match(ev)
}

const listenerBuffer = 64

// Broadcaster is the in-process Feed.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]*listener
}

type listener struct {
	ch    chan Event
	match func(Event) bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[int]*listener)}
}

// Publish never blocks. A match that finds the listener's buffer full is
// dropped: the buffer only holds matches, so the listener still has an
// unread one and will catch up when it reads it.
func (b *Broadcaster) Publish(_ context.Context, events ...Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, li := range b.listeners {
		for _, ev := range events {
			if !accepts(li.match, ev) {
				continue
			}
			select {
			case li.ch <- ev:
			default:
			}
		}
	}
	return nil
}

func (b *Broadcaster) Subscribe(ctx context.Context, match func(Event) bool) (<-chan Event, func()) {
	ch := make(chan Event, listenerBuffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = &listener{ch: ch, match: match}
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		release()
	}()
	return ch, release
}

// Listeners reports the number of active subscriptions.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
