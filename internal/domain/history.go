package domain

import "time"

// HistoryEvent описывает один наблюдённый переход заказа.
// Записи append-only и никогда не изменяются.
type HistoryEvent struct {
	// ID назначается хранилищем.
	ID int64
	// OrderID — заказ, к которому относится переход.
	OrderID string
	// Status — статус, достигнутый переходом.
	Status OrderStatus
	// Timestamp — момент перехода.
	Timestamp time.Time
}
