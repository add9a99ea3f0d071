package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus описывает жизненный цикл заказа доставки.
// Статус движется только вперёд: Received → InTransit → Delivered.
type OrderStatus string

const (
	// OrderStatusReceived — заказ принят, ожидает отправки.
	OrderStatusReceived OrderStatus = "Received"
	// OrderStatusInTransit — заказ передан в доставку.
	OrderStatusInTransit OrderStatus = "InTransit"
	// OrderStatusDelivered — заказ доставлен; терминальный статус.
	OrderStatusDelivered OrderStatus = "Delivered"
)

// Valid сообщает, входит ли статус в известный набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusReceived, OrderStatusInTransit, OrderStatusDelivered:
		return true
	}
	return false
}

// Next возвращает следующий статус жизненного цикла.
// Для терминального статуса ok=false.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusReceived:
		return OrderStatusInTransit, true
	case OrderStatusInTransit:
		return OrderStatusDelivered, true
	}
	return s, false
}

// IsTerminal сообщает, достигнут ли конец жизненного цикла.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// Order агрегирует состояние заказа доставки.
type Order struct {
	ID            string
	CustomerName  string
	Status        OrderStatus
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// NewOrder создаёт заказ в статусе Received с новым идентификатором.
func NewOrder(customerName string, now time.Time) (Order, error) {
	if customerName == "" {
		return Order{}, ErrCustomerNameRequired
	}
	return Order{
		ID:            uuid.NewString(),
		CustomerName:  customerName,
		Status:        OrderStatusReceived,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}, nil
}

// Advance переводит заказ в следующий статус и двигает LastUpdatedAt.
// Возвращает ErrOrderTerminal, если заказ уже в терминальном статусе.
func (o *Order) Advance(now time.Time) error {
	next, ok := o.Status.Next()
	if !ok {
		return ErrOrderTerminal
	}
	o.Status = next
	o.LastUpdatedAt = now
	return nil
}
