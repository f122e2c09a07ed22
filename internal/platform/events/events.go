// Package events announces committed business operations to other
// systems. Delivery is best effort: a failed publish is logged and never
// undoes the operation.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/pkg/tool"
)

const (
	TypeSubscriberEnrolled  = "subscriber.enrolled"
	TypeSubscriptionRenewed = "subscription.renewed"
	TypePaymentRecorded     = "payment.recorded"
	TypeSaleRecorded        = "sale.recorded"
	TypeSaleCancelled       = "sale.cancelled"
	TypeSubscriberDeleted   = "subscriber.deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	// Actor is the administrator who triggered the operation, if known.
	Actor   string `json:"actor,omitempty"`
	Payload any    `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory for tests.
type Recorder struct {
	ch chan Event
}

func NewRecorder() *Recorder { return &Recorder{ch: make(chan Event, 256)} }

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	select {
	case r.ch <- ev:
	default:
	}
	return nil
}

// Drain returns the events published so far.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-r.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Emit publishes a freshly stamped event and logs instead of failing.
func Emit(ctx context.Context, p Publisher, l *zap.SugaredLogger, typ, actor string, payload any) {
	ev := Event{ID: tool.GenerateUUIDV7(), Type: typ, OccurredAt: time.Now(), Actor: actor, Payload: payload}
	if err := p.Publish(ctx, ev); err != nil {
		l.Warnw("publish domain event failed", "type", typ, "event_id", ev.ID, "err", err)
	}
}
