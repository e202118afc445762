package ai

import (
	"sync"
	"time"
)

// ProviderMetrics агрегированные показатели одного провайдера
type ProviderMetrics struct {
	Requests      int64 `json:"requests"`
	Errors        int64 `json:"errors"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
}

// MetricsCollector собирает метрики запросов к AI-провайдерам.
// Потокобезопасен, наружу отдается только снимок
type MetricsCollector struct {
	mu sync.RWMutex

	requests map[string]int64
	errors   map[string]int64
	duration map[string]time.Duration
}

// NewMetricsCollector создает новый сборщик метрик
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requests: make(map[string]int64),
		errors:   make(map[string]int64),
		duration: make(map[string]time.Duration),
	}
}

// RecordRequest записывает исход одного запроса к провайдеру
func (mc *MetricsCollector) RecordRequest(provider string, duration time.Duration, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.requests[provider]++
	mc.duration[provider] += duration
	if err != nil {
		mc.errors[provider]++
	}
}

// Snapshot возвращает снимок метрик по всем провайдерам
func (mc *MetricsCollector) Snapshot() map[string]ProviderMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := make(map[string]ProviderMetrics, len(mc.requests))
	for provider, requests := range mc.requests {
		avg := time.Duration(0)
		if requests > 0 {
			avg = mc.duration[provider] / time.Duration(requests)
		}
		snapshot[provider] = ProviderMetrics{
			Requests:      requests,
			Errors:        mc.errors[provider],
			AvgDurationMs: avg.Milliseconds(),
		}
	}
	return snapshot
}
