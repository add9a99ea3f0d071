package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deliverysystem/dts/internal/domain"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository создаёт PostgreSQL-реализацию HistoryRepository.
func NewHistoryRepository(store *Store) domain.HistoryRepository {
	return &historyRepository{db: store.DB()}
}

func (r *historyRepository) List(orderID string) ([]domain.HistoryEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, status, occurred_at
		FROM order_history_events
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list history events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.HistoryEvent, 0)
	for rows.Next() {
		var (
			event  domain.HistoryEvent
			status string
		)
		if err := rows.Scan(&event.ID, &event.OrderID, &status, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		event.Status = domain.OrderStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history events: %w", err)
	}

	return events, nil
}

var _ domain.HistoryRepository = (*historyRepository)(nil)
