package relay

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/deliverysystem/dts/internal/domain"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 20
)

var (
	relayPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dts_outbox_publish_attempts_total",
		Help: "Total number of outbox publish attempts grouped by result.",
	}, []string{"result"})
	relayPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dts_outbox_pending_records",
		Help: "Current number of unprocessed records in transactional outbox.",
	})
	relayOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dts_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest unprocessed outbox record.",
	})
)

// RelayOptions задаёт параметры outbox relay.
type RelayOptions struct {
	Logger       *log.Entry
	PollInterval time.Duration
	BatchSize    int
}

// Option настраивает Relay.
type Option func(*RelayOptions)

// WithLogger задаёт logger для relay.
func WithLogger(logger *log.Entry) Option {
	return func(opts *RelayOptions) {
		opts.Logger = logger
	}
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *RelayOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча из outbox.
func WithBatchSize(batchSize int) Option {
	return func(opts *RelayOptions) {
		opts.BatchSize = batchSize
	}
}

// Relay публикует необработанные строки outbox в брокер и помечает их
// обработанными только после успешной публикации. Неудачная строка
// остаётся необработанной и будет взята снова в следующем цикле —
// без backoff и без счётчика попыток, публикация повторяется бесконечно.
type Relay struct {
	repo         domain.OutboxRepository
	publisher    domain.EventPublisher
	logger       *log.Entry
	pollInterval time.Duration
	batchSize    int
}

// NewRelay создаёт outbox relay.
func NewRelay(repo domain.OutboxRepository, publisher domain.EventPublisher, options ...Option) *Relay {
	opts := RelayOptions{
		PollInterval: defaultPollInterval,
		BatchSize:    defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-relay")
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	return &Relay{
		repo:         repo,
		publisher:    publisher,
		logger:       logger,
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
	}
}

// Run запускает периодический polling outbox до отмены ctx.
func (r *Relay) Run(ctx context.Context) {
	if r.repo == nil || r.publisher == nil {
		r.logger.Warn("outbox relay is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл: вычитывает батч самых старых
// необработанных строк и публикует их по одной в порядке создания.
func (r *Relay) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	r.refreshBacklogMetrics()

	events, err := r.repo.PullUnprocessed(r.batchSize)
	if err != nil {
		r.logger.WithError(err).Warn("failed to pull unprocessed outbox records")
		return
	}
	if len(events) == 0 {
		return
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return
		}

		if err := r.publisher.Publish(event); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"outbox_id":  event.ID,
				"event_type": event.EventType,
			}).Error("outbox publish failed, record stays unprocessed")
			relayPublishAttempts.WithLabelValues("error").Inc()
			// Строка не помечается: следующий цикл попробует снова.
			continue
		}
		relayPublishAttempts.WithLabelValues("sent").Inc()

		if err := r.repo.MarkProcessed(event.ID, time.Now().UTC()); err != nil {
			// Публикация прошла, отметка — нет: строка уйдёт повторно,
			// consumer обязан переживать дубликаты.
			r.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to mark outbox record processed")
		}
	}

	r.refreshBacklogMetrics()
}

func (r *Relay) refreshBacklogMetrics() {
	stats, err := r.repo.Stats()
	if err != nil {
		r.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	relayPendingRecords.Set(float64(stats.UnprocessedCount))
	if stats.UnprocessedCount == 0 || stats.OldestUnprocessedAt.IsZero() {
		relayOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestUnprocessedAt).Seconds()
	if age < 0 {
		age = 0
	}
	relayOldestPendingAge.Set(age)
}
