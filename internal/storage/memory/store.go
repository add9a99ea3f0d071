package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/deliverysystem/dts/internal/domain"
)

// Store — in-memory реализация всех портов хранилища для локальной
// разработки и unit-тестов. Один mutex на все таблицы даёт ту же
// атомарность unit of work, что и транзакция в PostgreSQL.
type Store struct {
	mu      sync.RWMutex
	orders  map[string]domain.Order
	history map[string][]domain.HistoryEvent
	outbox  []domain.OutboxEvent

	nextHistoryID int64
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		orders:  make(map[string]domain.Order),
		history: make(map[string][]domain.HistoryEvent),
	}
}

// Get возвращает заказ или ErrOrderNotFound.
func (s *Store) Get(id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// List возвращает историю заказа в хронологическом порядке.
func (s *Store) List(orderID string) ([]domain.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.history[orderID]
	result := make([]domain.HistoryEvent, len(events))
	copy(result, events)
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// PullUnprocessed возвращает до limit непубликованных событий, FIFO по CreatedAt.
func (s *Store) PullUnprocessed(limit int) ([]domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = len(s.outbox)
	}

	result := make([]domain.OutboxEvent, 0, limit)
	for _, event := range s.outbox {
		if event.IsProcessed {
			continue
		}
		result = append(result, cloneOutbox(event))
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// MarkProcessed помечает строку outbox опубликованной. Повторная пометка
// уже обработанной строки — no-op.
func (s *Store) MarkProcessed(id string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].ID != id {
			continue
		}
		if s.outbox[i].IsProcessed {
			return nil
		}
		ts := processedAt
		s.outbox[i].IsProcessed = true
		s.outbox[i].ProcessedAt = &ts
		return nil
	}
	return domain.ErrOutboxEventNotFound
}

// Stats возвращает состояние backlog непубликованных событий.
func (s *Store) Stats() (domain.OutboxStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.OutboxStats
	for _, event := range s.outbox {
		if event.IsProcessed {
			continue
		}
		stats.UnprocessedCount++
		if stats.OldestUnprocessedAt.IsZero() || event.CreatedAt.Before(stats.OldestUnprocessedAt) {
			stats.OldestUnprocessedAt = event.CreatedAt
		}
	}
	return stats, nil
}

// CreateOrder вставляет заказ, первую запись истории и первую строку outbox
// атомарно под общим mutex.
func (s *Store) CreateOrder(order domain.Order, history domain.HistoryEvent, outbox domain.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrOrderExists
	}

	s.orders[order.ID] = order
	s.appendHistoryLocked(history)
	s.outbox = append(s.outbox, cloneOutbox(outbox))
	return nil
}

// ApplyTransition применяет переход заказа: обновление статуса, запись
// истории и (опционально) следующую строку outbox — атомарно.
func (s *Store) ApplyTransition(order domain.Order, history domain.HistoryEvent, next *domain.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}

	s.orders[order.ID] = order
	s.appendHistoryLocked(history)
	if next != nil {
		s.outbox = append(s.outbox, cloneOutbox(*next))
	}
	return nil
}

func (s *Store) appendHistoryLocked(event domain.HistoryEvent) {
	s.nextHistoryID++
	event.ID = s.nextHistoryID
	s.history[event.OrderID] = append(s.history[event.OrderID], event)
}

// AllOutbox возвращает копию всех строк outbox (используется в тестах).
func (s *Store) AllOutbox() []domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OutboxEvent, 0, len(s.outbox))
	for _, event := range s.outbox {
		result = append(result, cloneOutbox(event))
	}
	return result
}

func cloneOutbox(event domain.OutboxEvent) domain.OutboxEvent {
	clone := event
	clone.Payload = append([]byte(nil), event.Payload...)
	if event.ProcessedAt != nil {
		ts := *event.ProcessedAt
		clone.ProcessedAt = &ts
	}
	return clone
}

var (
	_ domain.OrderRepository   = (*Store)(nil)
	_ domain.HistoryRepository = (*Store)(nil)
	_ domain.OutboxRepository  = (*Store)(nil)
	_ domain.UnitOfWork        = (*Store)(nil)
)
