package memory

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/deliverysystem/dts/internal/domain"
)

func mustCreateOrder(t *testing.T, store *Store, name string, now time.Time) domain.Order {
	t.Helper()

	order, err := domain.NewOrder(name, now)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	history := domain.HistoryEvent{OrderID: order.ID, Status: order.Status, Timestamp: now}
	outbox, err := domain.NewOutboxEvent(domain.NewOrderReceivedEvent(order.ID, name, now), now)
	if err != nil {
		t.Fatalf("new outbox event: %v", err)
	}
	if err := store.CreateOrder(order, history, outbox); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestStore_CreateOrderAndGet(t *testing.T) {
	t.Parallel()

	store := NewStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	order := mustCreateOrder(t, store, "Alice Smith", now)

	got, err := store.Get(order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusReceived {
		t.Fatalf("expected Received, got %s", got.Status)
	}

	history, err := store.List(order.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Status != domain.OrderStatusReceived {
		t.Fatalf("expected single Received history row, got %+v", history)
	}

	pending, err := store.PullUnprocessed(0)
	if err != nil {
		t.Fatalf("pull unprocessed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != string(domain.EventTypeOrderReceived) {
		t.Fatalf("expected single OrderReceived outbox row, got %+v", pending)
	}
}

func TestStore_CreateOrder_DuplicateID(t *testing.T) {
	t.Parallel()

	store := NewStore()
	now := time.Now().UTC()
	order := mustCreateOrder(t, store, "Bob", now)

	err := store.CreateOrder(order, domain.HistoryEvent{OrderID: order.ID}, domain.OutboxEvent{ID: "x"})
	if !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	t.Parallel()

	store := NewStore()
	if _, err := store.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestStore_PullUnprocessed_FIFOAndLimit(t *testing.T) {
	t.Parallel()

	store := NewStore()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		now := base.Add(time.Duration(i) * time.Second)
		order := mustCreateOrder(t, store, fmt.Sprintf("customer-%d", i), now)
		_ = order
	}

	batch, err := store.PullUnprocessed(3)
	if err != nil {
		t.Fatalf("pull unprocessed: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected batch of 3, got %d", len(batch))
	}
	for i := 1; i < len(batch); i++ {
		if batch[i].CreatedAt.Before(batch[i-1].CreatedAt) {
			t.Fatal("expected ascending created_at order")
		}
	}
}

func TestStore_MarkProcessed(t *testing.T) {
	t.Parallel()

	store := NewStore()
	now := time.Now().UTC()
	mustCreateOrder(t, store, "Carol", now)

	batch, err := store.PullUnprocessed(1)
	if err != nil || len(batch) != 1 {
		t.Fatalf("pull unprocessed: %v len=%d", err, len(batch))
	}

	processedAt := now.Add(time.Second)
	if err := store.MarkProcessed(batch[0].ID, processedAt); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	all := store.AllOutbox()
	if len(all) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(all))
	}
	if !all[0].IsProcessed || all[0].ProcessedAt == nil || !all[0].ProcessedAt.Equal(processedAt) {
		t.Fatalf("expected processed row with processed_at, got %+v", all[0])
	}

	// Повторная пометка идемпотентна.
	if err := store.MarkProcessed(batch[0].ID, processedAt.Add(time.Minute)); err != nil {
		t.Fatalf("repeated mark processed: %v", err)
	}
	if ts := store.AllOutbox()[0].ProcessedAt; !ts.Equal(processedAt) {
		t.Fatal("processed_at must not move on repeated mark")
	}

	if err := store.MarkProcessed("missing", processedAt); !errors.Is(err, domain.ErrOutboxEventNotFound) {
		t.Fatalf("expected ErrOutboxEventNotFound, got %v", err)
	}
}

func TestStore_ApplyTransition(t *testing.T) {
	t.Parallel()

	store := NewStore()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	order := mustCreateOrder(t, store, "Dave", base)

	later := base.Add(time.Minute)
	if err := order.Advance(later); err != nil {
		t.Fatalf("advance: %v", err)
	}
	history := domain.HistoryEvent{OrderID: order.ID, Status: order.Status, Timestamp: later}
	next, err := domain.NewOutboxEvent(domain.NewOrderInTransitEvent(order.ID, later), later)
	if err != nil {
		t.Fatalf("new outbox event: %v", err)
	}

	if err := store.ApplyTransition(order, history, &next); err != nil {
		t.Fatalf("apply transition: %v", err)
	}

	got, err := store.Get(order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusInTransit {
		t.Fatalf("expected InTransit, got %s", got.Status)
	}

	events, err := store.List(order.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(events) != 2 || events[1].Status != domain.OrderStatusInTransit {
		t.Fatalf("expected [Received InTransit] history, got %+v", events)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.UnprocessedCount != 2 {
		t.Fatalf("expected 2 unprocessed events, got %d", stats.UnprocessedCount)
	}
}

func TestStore_ApplyTransition_MissingOrder(t *testing.T) {
	t.Parallel()

	store := NewStore()
	err := store.ApplyTransition(domain.Order{ID: "missing"}, domain.HistoryEvent{OrderID: "missing"}, nil)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
