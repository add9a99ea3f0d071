package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deliverysystem/dts/internal/domain"
)

type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB()}
}

func (r *outboxRepository) PullUnprocessed(limit int) ([]domain.OutboxEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, payload, is_processed, created_at, processed_at
		FROM outbox_events
		WHERE is_processed = FALSE
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("pull unprocessed outbox events: %w", err)
	}
	defer rows.Close()

	result := make([]domain.OutboxEvent, 0, limit)
	for rows.Next() {
		var (
			event       domain.OutboxEvent
			processedAt sql.NullTime
		)
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.Payload,
			&event.IsProcessed,
			&event.CreatedAt,
			&processedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		if processedAt.Valid {
			ts := processedAt.Time.UTC()
			event.ProcessedAt = &ts
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}

	return result, nil
}

func (r *outboxRepository) MarkProcessed(id string, processedAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// is_processed никогда не сбрасывается: строка, помеченная ранее,
	// не трогается повторно, поэтому повторная пометка — no-op.
	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET is_processed = TRUE,
		    processed_at = $2
		WHERE id = $1
		  AND is_processed = FALSE
	`, id, processedAt.UTC())
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for outbox mark: %w", err)
	}
	if affected == 0 {
		exists, err := r.outboxExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOutboxEventNotFound
		}
	}

	return nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_events
		WHERE is_processed = FALSE
	`).Scan(&stats.UnprocessedCount, &oldest); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats query failed: %w", err)
	}

	if oldest.Valid {
		stats.OldestUnprocessedAt = oldest.Time.UTC()
	}

	return stats, nil
}

func (r *outboxRepository) outboxExists(ctx context.Context, id string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM outbox_events WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check outbox event exists: %w", err)
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
