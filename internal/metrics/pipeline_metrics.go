package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics содержит метрики обработки событий заказов.
type PipelineMetrics struct {
	// eventsHandled считает сообщения по типу события и результату:
	// applied | skipped | discarded | failed.
	eventsHandled *prometheus.CounterVec
	// transitionDuration — время применения перехода, включая транзакцию.
	transitionDuration prometheus.Histogram
}

// NewPipelineMetrics создаёт и регистрирует метрики процессора.
func NewPipelineMetrics() *PipelineMetrics {
	return newPipelineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPipelineMetricsWithRegisterer(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PipelineMetrics{
		eventsHandled: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "dts_processor_events_total",
			Help: "Total number of consumed order events grouped by type and result.",
		}, []string{"event_type", "result"}),
		transitionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "dts_processor_transition_duration_seconds",
			Help:    "Duration of order state transitions in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordEvent фиксирует результат обработки события.
func (m *PipelineMetrics) RecordEvent(eventType, result string) {
	m.eventsHandled.WithLabelValues(eventType, result).Inc()
}

// RecordTransitionDuration записывает длительность применения перехода.
func (m *PipelineMetrics) RecordTransitionDuration(duration time.Duration) {
	m.transitionDuration.Observe(duration.Seconds())
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
