package domain

import "time"

// OrderRepository описывает read-доступ к заказам.
type OrderRepository interface {
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
}

// HistoryRepository хранит append-only историю переходов заказа.
type HistoryRepository interface {
	// List возвращает события заказа, упорядоченные по времени.
	List(orderID string) ([]HistoryEvent, error)
}

// OutboxRepository даёт релею доступ к строкам transactional outbox.
type OutboxRepository interface {
	// PullUnprocessed возвращает до limit непубликованных событий,
	// старейшие первыми (FIFO по created_at).
	PullUnprocessed(limit int) ([]OutboxEvent, error)
	// MarkProcessed помечает событие опубликованным. Идемпотентна:
	// повторный вызов для уже обработанной строки не ошибка.
	MarkProcessed(id string, processedAt time.Time) error
	// Stats возвращает состояние backlog для метрик.
	Stats() (OutboxStats, error)
}

// UnitOfWork выполняет многострочные записи атомарно: частичное применение
// Order + History + Outbox никогда не наблюдаемо.
type UnitOfWork interface {
	// CreateOrder вставляет заказ, его первую запись истории и первую
	// строку outbox в одной транзакции.
	CreateOrder(order Order, history HistoryEvent, outbox OutboxEvent) error
	// ApplyTransition обновляет статус заказа, добавляет запись истории
	// и, если next != nil, вставляет следующую строку outbox — всё в
	// одной транзакции.
	ApplyTransition(order Order, history HistoryEvent, next *OutboxEvent) error
}

// EventPublisher публикует событие из outbox в брокер.
// Должен быть безопасен к повторной публикации одного события.
type EventPublisher interface {
	Publish(event OutboxEvent) error
}
