package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/deliverysystem/dts/internal/app"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if v := os.Getenv("DTS_LOG_LEVEL"); v != "" {
		if level, err := log.ParseLevel(v); err == nil {
			log.SetLevel(level)
		}
	}
}

// readConfig формирует конфигурацию consumer-процесса из переменных окружения.
func readConfig() app.Config {
	cfg := app.DefaultConfig()
	// У consumer свой порт метрик, чтобы оба процесса жили на одной машине.
	cfg.MetricsAddr = ":9091"

	if v := os.Getenv("DTS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("DTS_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("DTS_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DTS_ORDER_EVENTS_TOPIC"); v != "" {
		cfg.OrderEventsTopic = v
	}
	if v := os.Getenv("DTS_DLQ_TOPIC"); v != "" {
		cfg.DLQTopic = v
	}
	if v := os.Getenv("DTS_CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}
	if v := os.Getenv("DTS_PROCESS_DELAY"); v != "" {
		if delay, err := time.ParseDuration(v); err == nil {
			cfg.ProcessDelay = delay
		}
	}
	if v := os.Getenv("DTS_CONSUMER_MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			cfg.ConsumerMaxRetries = retries
		}
	}
	return cfg
}

func main() {
	// .env удобен для локального запуска; отсутствие файла не ошибка.
	_ = godotenv.Load()

	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"metrics_addr":   cfg.MetricsAddr,
		"brokers":        cfg.KafkaBrokers,
		"consumer_group": cfg.ConsumerGroup,
	}).Info("запускаем order-processor")

	if err := app.RunProcessor(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("order-processor остановлен")
}
