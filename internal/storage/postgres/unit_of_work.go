package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deliverysystem/dts/internal/domain"
)

type unitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork создаёт PostgreSQL-реализацию UnitOfWork. Все записи
// одной единицы работы выполняются в одной транзакции: частичное
// применение Order + History + Outbox никогда не фиксируется.
func NewUnitOfWork(store *Store) domain.UnitOfWork {
	return &unitOfWork{db: store.DB()}
}

func (u *unitOfWork) CreateOrder(order domain.Order, history domain.HistoryEvent, outbox domain.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, status, created_at, last_updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, order.ID, order.CustomerName, string(order.Status), order.CreatedAt, order.LastUpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err = insertHistoryTx(ctx, tx, history); err != nil {
		return err
	}
	if err = insertOutboxTx(ctx, tx, outbox); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (u *unitOfWork) ApplyTransition(order domain.Order, history domain.HistoryEvent, next *domain.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    last_updated_at = $3
		WHERE id = $1
	`, order.ID, string(order.Status), order.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	if err = insertHistoryTx(ctx, tx, history); err != nil {
		return err
	}
	if next != nil {
		if err = insertOutboxTx(ctx, tx, *next); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply transition: %w", err)
	}

	return nil
}

func insertHistoryTx(ctx context.Context, tx *sql.Tx, event domain.HistoryEvent) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_history_events (order_id, status, occurred_at)
		VALUES ($1,$2,$3)
	`, event.OrderID, string(event.Status), event.Timestamp); err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	return nil
}

func insertOutboxTx(ctx context.Context, tx *sql.Tx, event domain.OutboxEvent) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, is_processed, created_at)
		VALUES ($1,$2,$3,FALSE,$4)
	`, event.ID, event.EventType, event.Payload, event.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.UnitOfWork = (*unitOfWork)(nil)
