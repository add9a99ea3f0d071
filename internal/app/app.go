package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/deliverysystem/dts/internal/api/httpapi"
	healthcheck "github.com/deliverysystem/dts/internal/health"
	"github.com/deliverysystem/dts/internal/messaging/kafka"
	"github.com/deliverysystem/dts/internal/metrics"
	"github.com/deliverysystem/dts/internal/service/processor"
	"github.com/deliverysystem/dts/internal/service/relay"
	"github.com/deliverysystem/dts/internal/version"
)

// Config описывает настройки запуска процессов сервиса доставки.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PostgresDSN string

	KafkaBrokers     []string
	OrderEventsTopic string
	DLQTopic         string
	ConsumerGroup    string

	RelayPollInterval time.Duration
	RelayBatchSize    int

	// ProcessDelay имитирует время работы курьера между событиями.
	ProcessDelay       time.Duration
	ConsumerMaxRetries int
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:          ":8080",
		MetricsAddr:       ":9090",
		KafkaBrokers:      []string{"localhost:9092"},
		OrderEventsTopic:  kafka.TopicOrderEvents,
		DLQTopic:          kafka.TopicDeadLetterQueue,
		ConsumerGroup:     kafka.DefaultConsumerGroup,
		RelayPollInterval: 5 * time.Second,
		RelayBatchSize:    20,
	}
}

// RunAPI запускает REST-процесс: приём заказов плюс outbox relay,
// публикующий события в Kafka.
func RunAPI(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.close(logger)

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return fmt.Errorf("init kafka producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka producer")
		}
	}()

	publisher := kafka.NewOutboxPublisher(producer, cfg.OrderEventsTopic)
	outboxRelay := relay.NewRelay(
		storage.outbox,
		publisher,
		relay.WithPollInterval(cfg.RelayPollInterval),
		relay.WithBatchSize(cfg.RelayBatchSize),
	)

	relayCtx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		outboxRelay.Run(relayCtx)
	}()

	healthHandler := newHealthHandler(storage, cfg.KafkaBrokers)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiServer := httpapi.NewServer(storage.orders, storage.history, storage.uow)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiServer.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(httpSrv, logger)
		cancelRelay()
		<-relayDone
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		cancelRelay()
		<-relayDone
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// RunProcessor запускает consumer-процесс: вычитывает события заказов из
// Kafka и применяет переходы жизненного цикла.
func RunProcessor(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.close(logger)

	dlqProducer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return fmt.Errorf("init kafka dlq producer: %w", err)
	}
	defer func() {
		if err := dlqProducer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka dlq producer")
		}
	}()

	proc := processor.NewProcessor(
		storage.orders,
		storage.uow,
		processor.WithProcessDelay(cfg.ProcessDelay),
		processor.WithMetrics(metrics.NewPipelineMetrics()),
	)

	handler := func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return proc.Handle(ctx, message.Value)
	}

	consumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.ConsumerGroup,
		[]string{cfg.OrderEventsTopic},
		handler,
		kafka.ConsumerOptions{
			DLQProducer: dlqProducer,
			DLQTopic:    cfg.DLQTopic,
			MaxRetries:  cfg.ConsumerMaxRetries,
		},
	)
	if err != nil {
		return fmt.Errorf("init kafka consumer: %w", err)
	}

	healthHandler := newHealthHandler(storage, cfg.KafkaBrokers)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	if err := consumer.Start(ctx); err != nil {
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("start kafka consumer: %w", err)
	}

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем consumer")

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
	shutdownHTTP(metricsSrv, logger)

	return ctx.Err()
}

// newHealthHandler собирает health-проверки зависимостей процесса.
func newHealthHandler(storage storageSet, brokers []string) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.GetVersion())

	if storage.pg != nil {
		pg := storage.pg
		handler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pg.Ping(ctx)
		}))
	}

	handler.RegisterChecker("kafka", healthcheck.NewSimpleChecker("kafka", func() error {
		client, err := sarama.NewClient(brokers, sarama.NewConfig())
		if err != nil {
			return err
		}
		return client.Close()
	}))

	return handler
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
