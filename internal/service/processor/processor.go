package processor

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/deliverysystem/dts/internal/domain"
	"github.com/deliverysystem/dts/internal/metrics"
)

const (
	resultApplied   = "applied"
	resultSkipped   = "skipped"
	resultDiscarded = "discarded"
	resultFailed    = "failed"
)

// Options задаёт параметры процессора событий.
type Options struct {
	Logger *log.Entry
	// Retry управляет повторами транзакции перехода при transient-ошибках.
	Retry RetryConfig
	// ProcessDelay имитирует работу курьера между получением события
	// и применением перехода. Ноль — без задержки.
	ProcessDelay time.Duration
	Metrics      *metrics.PipelineMetrics
}

// Option настраивает Processor.
type Option func(*Options)

// WithLogger задаёт logger для процессора.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithRetry задаёт параметры повторов транзакции перехода.
func WithRetry(cfg RetryConfig) Option {
	return func(opts *Options) {
		opts.Retry = cfg
	}
}

// WithProcessDelay задаёт задержку перед применением перехода.
func WithProcessDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.ProcessDelay = delay
	}
}

// WithMetrics задаёт метрики процессора.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// Processor применяет события заказов к state machine доставки.
// Идемпотентен относительно redelivery: переход выполняется только из
// ожидаемого текущего статуса, любое другое состояние — молчаливый skip.
type Processor struct {
	orders       domain.OrderRepository
	uow          domain.UnitOfWork
	logger       *log.Entry
	retry        RetryConfig
	processDelay time.Duration
	metrics      *metrics.PipelineMetrics
}

// NewProcessor создаёт процессор событий заказов.
func NewProcessor(orders domain.OrderRepository, uow domain.UnitOfWork, options ...Option) *Processor {
	opts := Options{
		Retry: DefaultRetryConfig(),
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-processor")
	}

	return &Processor{
		orders:       orders,
		uow:          uow,
		logger:       logger,
		retry:        opts.Retry,
		processDelay: opts.ProcessDelay,
		metrics:      opts.Metrics,
	}
}

// Handle обрабатывает одно событие с провода. nil означает, что сообщение
// можно подтверждать: событие применено, пропущено как дубликат или
// отброшено как нераспознанное. Ошибка — сигнал consumer повторить доставку.
func (p *Processor) Handle(ctx context.Context, body []byte) error {
	event, err := domain.DecodeEvent(body)
	if err != nil {
		if domain.IsPermanent(err) {
			// Неизвестный тип события: redelivery не поможет, подтверждаем.
			p.logger.WithError(err).Warn("discarding event of unknown type")
			p.recordEvent("unknown", resultDiscarded)
			return nil
		}
		return fmt.Errorf("decode event: %w", err)
	}

	switch ev := event.(type) {
	case domain.OrderReceivedEvent:
		return p.transition(ctx, ev, domain.OrderStatusReceived)
	case domain.OrderInTransitEvent:
		return p.transition(ctx, ev, domain.OrderStatusInTransit)
	case domain.OrderDeliveredEvent:
		// Терминальное событие: переходов дальше нет, только фиксация.
		p.logger.WithField("order_id", ev.Order()).Info("order delivered, lifecycle complete")
		p.recordEvent(string(ev.Type()), resultApplied)
		return nil
	default:
		p.logger.WithField("event_type", event.Type()).Warn("discarding unhandled event variant")
		p.recordEvent(string(event.Type()), resultDiscarded)
		return nil
	}
}

// transition двигает заказ из expected в следующий статус и кладёт
// следующее событие в outbox в той же транзакции.
func (p *Processor) transition(ctx context.Context, event domain.Event, expected domain.OrderStatus) error {
	logger := p.logger.WithFields(log.Fields{
		"order_id":   event.Order(),
		"event_type": event.Type(),
	})

	order, err := p.orders.Get(event.Order())
	if err != nil {
		if domain.IsPermanent(err) {
			// Заказа нет: событие чужое или заказ не дошёл до хранилища.
			// Подтверждаем, чтобы не блокировать partition навсегда.
			logger.WithError(err).Warn("skipping event for unknown order")
			p.recordEvent(string(event.Type()), resultSkipped)
			return nil
		}
		return fmt.Errorf("load order %s: %w", event.Order(), err)
	}

	if order.Status != expected {
		// Redelivery или устаревшее событие: заказ уже ушёл дальше.
		logger.WithFields(log.Fields{
			"current_status":  order.Status,
			"expected_status": expected,
		}).Info("skipping stale or duplicate event")
		p.recordEvent(string(event.Type()), resultSkipped)
		return nil
	}

	if p.processDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.processDelay):
		}
	}

	started := time.Now()
	now := time.Now().UTC()

	if err := order.Advance(now); err != nil {
		logger.WithError(err).Info("skipping event for terminal order")
		p.recordEvent(string(event.Type()), resultSkipped)
		return nil
	}

	history := domain.HistoryEvent{
		OrderID:   order.ID,
		Status:    order.Status,
		Timestamp: now,
	}

	nextEvent, err := nextLifecycleEvent(order, now)
	if err != nil {
		return err
	}
	outbox, err := domain.NewOutboxEvent(nextEvent, now)
	if err != nil {
		return fmt.Errorf("build outbox record: %w", err)
	}
	next := &outbox

	err = retryTransient(ctx, p.retry, func() error {
		return p.uow.ApplyTransition(order, history, next)
	})
	if err != nil {
		if domain.IsPermanent(err) {
			logger.WithError(err).Warn("skipping event, transition rejected by storage")
			p.recordEvent(string(event.Type()), resultSkipped)
			return nil
		}
		p.recordEvent(string(event.Type()), resultFailed)
		return fmt.Errorf("apply transition for order %s: %w", order.ID, err)
	}

	p.recordEvent(string(event.Type()), resultApplied)
	p.recordDuration(time.Since(started))
	logger.WithField("new_status", order.Status).Info("order transitioned")
	return nil
}

// nextLifecycleEvent строит событие, соответствующее только что
// достигнутому статусу заказа: OrderInTransit после отправки,
// OrderDelivered после вручения.
func nextLifecycleEvent(order domain.Order, now time.Time) (domain.Event, error) {
	switch order.Status {
	case domain.OrderStatusInTransit:
		return domain.NewOrderInTransitEvent(order.ID, now), nil
	case domain.OrderStatusDelivered:
		return domain.NewOrderDeliveredEvent(order.ID, now), nil
	default:
		return nil, fmt.Errorf("no lifecycle event for status %s", order.Status)
	}
}

func (p *Processor) recordEvent(eventType, result string) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordEvent(eventType, result)
}

func (p *Processor) recordDuration(d time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordTransitionDuration(d)
}
