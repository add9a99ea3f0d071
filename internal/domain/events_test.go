package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	cases := []struct {
		name  string
		event Event
	}{
		{"received", NewOrderReceivedEvent("order-1", "Alice Smith", ts)},
		{"in_transit", NewOrderInTransitEvent("order-1", ts)},
		{"delivered", NewOrderDeliveredEvent("order-1", ts)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			body, err := EncodeEvent(tc.event)
			require.NoError(t, err)

			decoded, err := DecodeEvent(body)
			require.NoError(t, err)
			require.Equal(t, tc.event, decoded)
			require.Equal(t, tc.event.Type(), decoded.Type())
			require.Equal(t, "order-1", decoded.Order())
		})
	}
}

func TestEncodeEvent_WireFieldNames(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	body, err := EncodeEvent(NewOrderReceivedEvent("order-7", "Alice Smith", ts))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	for _, field := range []string{"EventType", "OrderId", "CustomerName", "Timestamp"} {
		require.Contains(t, raw, field)
	}
}

func TestDecodeEvent_UnknownDiscriminator(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent([]byte(`{"EventType":"OrderReturned","OrderId":"order-1"}`))
	require.True(t, errors.Is(err, ErrUnknownEventType), "expected ErrUnknownEventType, got %v", err)
}

func TestDecodeEvent_MalformedBody(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent([]byte(`{not json`))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnknownEventType))
}

func TestPeekEventType(t *testing.T) {
	t.Parallel()

	eventType, err := PeekEventType([]byte(`{"EventType":"OrderInTransit","OrderId":"x"}`))
	require.NoError(t, err)
	require.Equal(t, EventTypeOrderInTransit, eventType)
}

func TestNewOutboxEvent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	event := NewOrderInTransitEvent("order-9", now)

	outbox, err := NewOutboxEvent(event, now)
	require.NoError(t, err)
	require.NotEmpty(t, outbox.ID)
	require.Equal(t, string(EventTypeOrderInTransit), outbox.EventType)
	require.False(t, outbox.IsProcessed)
	require.Nil(t, outbox.ProcessedAt)

	decoded, err := DecodeEvent(outbox.Payload)
	require.NoError(t, err)
	require.Equal(t, event, decoded)
}
