package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent — строка transactional outbox: доменное событие, ожидающее
// публикации или уже опубликованное. Строки не удаляются.
type OutboxEvent struct {
	ID        string
	EventType string
	Payload   []byte
	// IsProcessed выставляется релеем после успешной публикации и
	// никогда не сбрасывается обратно.
	IsProcessed bool
	CreatedAt   time.Time
	// ProcessedAt заполнен тогда и только тогда, когда IsProcessed=true.
	ProcessedAt *time.Time
}

// NewOutboxEvent создаёт непубликованную строку outbox для события.
func NewOutboxEvent(event Event, now time.Time) (OutboxEvent, error) {
	payload, err := EncodeEvent(event)
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		ID:        uuid.NewString(),
		EventType: string(event.Type()),
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

// OutboxStats описывает текущий backlog непубликованных событий.
type OutboxStats struct {
	UnprocessedCount    int
	OldestUnprocessedAt time.Time
}
