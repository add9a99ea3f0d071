package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/deliverysystem/dts/internal/domain"
	"github.com/deliverysystem/dts/internal/storage/memory"
	"github.com/deliverysystem/dts/internal/storage/postgres"
)

// storageSet — собранный набор доменных портов хранилища.
// pg != nil только для postgres-бэкенда.
type storageSet struct {
	orders  domain.OrderRepository
	history domain.HistoryRepository
	outbox  domain.OutboxRepository
	uow     domain.UnitOfWork
	pg      *postgres.Store
}

// initStorage выбирает бэкенд: postgres при заданном DSN, иначе
// in-memory хранилище для локальной разработки.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (storageSet, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is empty, using in-memory storage")
		store := memory.NewStore()
		return storageSet{
			orders:  store,
			history: store,
			outbox:  store,
			uow:     store,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return storageSet{}, fmt.Errorf("open postgres: %w", err)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return storageSet{}, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("postgres storage initialized")
	return storageSet{
		orders:  postgres.NewOrderRepository(store),
		history: postgres.NewHistoryRepository(store),
		outbox:  postgres.NewOutboxRepository(store),
		uow:     postgres.NewUnitOfWork(store),
		pg:      store,
	}, nil
}

func (s storageSet) close(logger *log.Entry) {
	if s.pg == nil {
		return
	}
	if err := s.pg.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}
