package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	order, err := NewOrder("Alice Smith", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID == "" {
		t.Fatal("expected generated order id")
	}
	if order.Status != OrderStatusReceived {
		t.Fatalf("expected status Received, got %s", order.Status)
	}
	if !order.CreatedAt.Equal(now) || !order.LastUpdatedAt.Equal(now) {
		t.Fatal("expected timestamps set to creation time")
	}
}

func TestNewOrder_EmptyCustomerName(t *testing.T) {
	t.Parallel()

	_, err := NewOrder("", time.Now().UTC())
	if !errors.Is(err, ErrCustomerNameRequired) {
		t.Fatalf("expected ErrCustomerNameRequired, got %v", err)
	}
}

func TestOrderStatus_Next(t *testing.T) {
	t.Parallel()

	next, ok := OrderStatusReceived.Next()
	if !ok || next != OrderStatusInTransit {
		t.Fatalf("expected Received -> InTransit, got %s ok=%v", next, ok)
	}

	next, ok = OrderStatusInTransit.Next()
	if !ok || next != OrderStatusDelivered {
		t.Fatalf("expected InTransit -> Delivered, got %s ok=%v", next, ok)
	}

	if _, ok := OrderStatusDelivered.Next(); ok {
		t.Fatal("Delivered must be terminal")
	}
	if !OrderStatusDelivered.IsTerminal() {
		t.Fatal("Delivered must report IsTerminal")
	}
}

func TestOrder_Advance_NeverSkipsAndNeverRegresses(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	order, err := NewOrder("Bob", base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []OrderStatus{OrderStatusInTransit, OrderStatusDelivered}
	for i, expected := range want {
		ts := base.Add(time.Duration(i+1) * time.Minute)
		if err := order.Advance(ts); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if order.Status != expected {
			t.Fatalf("advance %d: expected %s, got %s", i, expected, order.Status)
		}
		if !order.LastUpdatedAt.Equal(ts) {
			t.Fatalf("advance %d: LastUpdatedAt not moved", i)
		}
	}

	if err := order.Advance(base.Add(time.Hour)); !errors.Is(err, ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal, got %v", err)
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []OrderStatus{OrderStatusReceived, OrderStatusInTransit, OrderStatusDelivered} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if OrderStatus("Shipped").Valid() {
		t.Fatal("unexpected valid status")
	}
}
