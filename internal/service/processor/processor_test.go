package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deliverysystem/dts/internal/domain"
	"github.com/deliverysystem/dts/internal/storage/memory"
)

func newStoredOrder(t *testing.T, store *memory.Store, customerName string) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order, err := domain.NewOrder(customerName, now)
	require.NoError(t, err)

	history := domain.HistoryEvent{
		OrderID:   order.ID,
		Status:    order.Status,
		Timestamp: now,
	}
	outbox, err := domain.NewOutboxEvent(domain.NewOrderReceivedEvent(order.ID, customerName, now), now)
	require.NoError(t, err)

	require.NoError(t, store.CreateOrder(order, history, outbox))
	return order
}

func encodeEvent(t *testing.T, event domain.Event) []byte {
	t.Helper()

	body, err := domain.EncodeEvent(event)
	require.NoError(t, err)
	return body
}

func TestProcessor_Handle_FullLifecycle(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	order := newStoredOrder(t, store, "Alice Smith")
	proc := NewProcessor(store, store)
	ctx := context.Background()
	now := time.Now().UTC()

	err := proc.Handle(ctx, encodeEvent(t, domain.NewOrderReceivedEvent(order.ID, order.CustomerName, now)))
	require.NoError(t, err)

	got, err := store.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusInTransit, got.Status)

	err = proc.Handle(ctx, encodeEvent(t, domain.NewOrderInTransitEvent(order.ID, now)))
	require.NoError(t, err)

	got, err = store.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, got.Status)

	// Терминальное событие статуса не меняет.
	err = proc.Handle(ctx, encodeEvent(t, domain.NewOrderDeliveredEvent(order.ID, now)))
	require.NoError(t, err)

	got, err = store.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, got.Status)

	history, err := store.List(order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, domain.OrderStatusReceived, history[0].Status)
	require.Equal(t, domain.OrderStatusInTransit, history[1].Status)
	require.Equal(t, domain.OrderStatusDelivered, history[2].Status)
	for i := 1; i < len(history); i++ {
		require.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}
}

func TestProcessor_Handle_EmitsNextOutboxEvent(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	order := newStoredOrder(t, store, "Alice Smith")
	proc := NewProcessor(store, store)
	now := time.Now().UTC()

	err := proc.Handle(context.Background(), encodeEvent(t, domain.NewOrderReceivedEvent(order.ID, order.CustomerName, now)))
	require.NoError(t, err)

	var inTransit int
	for _, record := range store.AllOutbox() {
		if record.EventType == string(domain.EventTypeOrderInTransit) {
			inTransit++
		}
	}
	require.Equal(t, 1, inTransit)
}

func TestProcessor_Handle_RedeliveryIsNoOp(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	order := newStoredOrder(t, store, "Alice Smith")
	proc := NewProcessor(store, store)
	ctx := context.Background()
	now := time.Now().UTC()

	received := encodeEvent(t, domain.NewOrderReceivedEvent(order.ID, order.CustomerName, now))
	require.NoError(t, proc.Handle(ctx, received))

	historyBefore, err := store.List(order.ID)
	require.NoError(t, err)

	// Повторная доставка того же события: заказ уже в InTransit.
	require.NoError(t, proc.Handle(ctx, received))

	got, err := store.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusInTransit, got.Status)

	historyAfter, err := store.List(order.ID)
	require.NoError(t, err)
	require.Equal(t, historyBefore, historyAfter)
}

func TestProcessor_Handle_UnknownOrderIsAcked(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	proc := NewProcessor(store, store)
	now := time.Now().UTC()

	err := proc.Handle(context.Background(), encodeEvent(t, domain.NewOrderReceivedEvent("no-such-order", "Bob", now)))
	require.NoError(t, err)
}

func TestProcessor_Handle_UnknownEventTypeIsAcked(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	proc := NewProcessor(store, store)

	err := proc.Handle(context.Background(), []byte(`{"EventType":"OrderVaporized","OrderId":"order-1"}`))
	require.NoError(t, err)
}

func TestProcessor_Handle_MalformedBodyIsError(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	proc := NewProcessor(store, store)

	err := proc.Handle(context.Background(), []byte(`not json at all`))
	require.Error(t, err)
}

func TestProcessor_Handle_ProcessDelayRespectsContext(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	order := newStoredOrder(t, store, "Alice Smith")
	proc := NewProcessor(store, store, WithProcessDelay(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	now := time.Now().UTC()
	err := proc.Handle(ctx, encodeEvent(t, domain.NewOrderReceivedEvent(order.ID, order.CustomerName, now)))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Переход не применён: заказ остался в Received.
	got, err := store.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusReceived, got.Status)
}
