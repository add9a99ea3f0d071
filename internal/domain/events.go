package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType определяет дискриминатор доменного события на проводе.
type EventType string

const (
	EventTypeOrderReceived  EventType = "OrderReceived"
	EventTypeOrderInTransit EventType = "OrderInTransit"
	EventTypeOrderDelivered EventType = "OrderDelivered"
)

// Event — закрытое множество доменных событий заказа.
// Конкретный вариант выбирается по полю EventType в JSON-теле.
type Event interface {
	// Type возвращает дискриминатор события.
	Type() EventType
	// Order возвращает идентификатор заказа, к которому относится событие.
	Order() string
}

// OrderReceivedEvent публикуется при создании заказа.
type OrderReceivedEvent struct {
	EventType    EventType `json:"EventType"`
	OrderID      string    `json:"OrderId"`
	CustomerName string    `json:"CustomerName"`
	Timestamp    time.Time `json:"Timestamp"`
}

// NewOrderReceivedEvent создаёт событие создания заказа.
func NewOrderReceivedEvent(orderID, customerName string, ts time.Time) OrderReceivedEvent {
	return OrderReceivedEvent{
		EventType:    EventTypeOrderReceived,
		OrderID:      orderID,
		CustomerName: customerName,
		Timestamp:    ts,
	}
}

func (e OrderReceivedEvent) Type() EventType { return EventTypeOrderReceived }
func (e OrderReceivedEvent) Order() string   { return e.OrderID }

// OrderInTransitEvent публикуется, когда заказ передан в доставку.
type OrderInTransitEvent struct {
	EventType EventType `json:"EventType"`
	OrderID   string    `json:"OrderId"`
	Timestamp time.Time `json:"Timestamp"`
}

// NewOrderInTransitEvent создаёт событие передачи заказа в доставку.
func NewOrderInTransitEvent(orderID string, ts time.Time) OrderInTransitEvent {
	return OrderInTransitEvent{
		EventType: EventTypeOrderInTransit,
		OrderID:   orderID,
		Timestamp: ts,
	}
}

func (e OrderInTransitEvent) Type() EventType { return EventTypeOrderInTransit }
func (e OrderInTransitEvent) Order() string   { return e.OrderID }

// OrderDeliveredEvent публикуется после вручения заказа. Терминальное событие.
type OrderDeliveredEvent struct {
	EventType EventType `json:"EventType"`
	OrderID   string    `json:"OrderId"`
	Timestamp time.Time `json:"Timestamp"`
}

// NewOrderDeliveredEvent создаёт терминальное событие доставки.
func NewOrderDeliveredEvent(orderID string, ts time.Time) OrderDeliveredEvent {
	return OrderDeliveredEvent{
		EventType: EventTypeOrderDelivered,
		OrderID:   orderID,
		Timestamp: ts,
	}
}

func (e OrderDeliveredEvent) Type() EventType { return EventTypeOrderDelivered }
func (e OrderDeliveredEvent) Order() string   { return e.OrderID }

// EncodeEvent сериализует событие в JSON-тело для outbox/брокера.
func EncodeEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Type(), err)
	}
	return data, nil
}

// PeekEventType извлекает дискриминатор из JSON-тела, не разбирая остальное.
func PeekEventType(body []byte) (EventType, error) {
	var head struct {
		EventType EventType `json:"EventType"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return "", fmt.Errorf("peek event type: %w", err)
	}
	return head.EventType, nil
}

// DecodeEvent разбирает JSON-тело в конкретный вариант события.
// Для неизвестного дискриминатора возвращает ErrUnknownEventType.
func DecodeEvent(body []byte) (Event, error) {
	eventType, err := PeekEventType(body)
	if err != nil {
		return nil, err
	}

	switch eventType {
	case EventTypeOrderReceived:
		var event OrderReceivedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", eventType, err)
		}
		return event, nil
	case EventTypeOrderInTransit:
		var event OrderInTransitEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", eventType, err)
		}
		return event, nil
	case EventTypeOrderDelivered:
		var event OrderDeliveredEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", eventType, err)
		}
		return event, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, string(eventType))
	}
}
