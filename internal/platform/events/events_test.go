package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	msg, err := encode(Event{ID: "ev-1", Type: TypeSaleRecorded, OccurredAt: at, Payload: map[string]int64{"quantity": 2}})
	require.NoError(t, err)
	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	require.Equal(t, TypeSaleRecorded, msg.Type)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	require.Equal(t, "sale.recorded", decoded["type"])
	require.Equal(t, float64(2), decoded["payload"].(map[string]any)["quantity"])
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypePaymentRecorded}))
	require.NoError(t, Noop{}.Publish(context.Background(), Event{}))
	got := r.Drain()
	require.Len(t, got, 1)
	require.Empty(t, r.Drain())
}
