package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AggregationStrategy стратегия агрегации ответов нескольких провайдеров
type AggregationStrategy string

const (
	// FirstSuccess опрашивает провайдеров по порядку регистрации и
	// возвращает первый успешный ответ
	FirstSuccess AggregationStrategy = "first_success"
	// Majority опрашивает всех провайдеров параллельно и выбирает
	// ответ, за который проголосовало больше всего провайдеров
	Majority AggregationStrategy = "majority"
)

// MultiProvider объединяет несколько провайдеров завершений в один
// CompletionProvider. FirstSuccess опрашивает по приоритету с переходом
// к резервным при отказе, Majority опрашивает всех параллельно и
// голосует по каноническому имени из ответов.
//
// Пример использования:
//
//	multi := ai.NewMultiProvider(ai.Majority)
//	multi.Register(primaryClient)
//	multi.Register(fallbackClient)
//	response, err := multi.Complete(ctx, systemPrompt, userPrompt)
type MultiProvider struct {
	strategy AggregationStrategy
	metrics  *MetricsCollector
	logger   *slog.Logger

	mu        sync.RWMutex
	providers []CompletionProvider
}

// NewMultiProvider создает составной провайдер. Неизвестная стратегия
// заменяется на FirstSuccess
func NewMultiProvider(strategy AggregationStrategy) *MultiProvider {
	if strategy != FirstSuccess && strategy != Majority {
		strategy = FirstSuccess
	}

	return &MultiProvider{
		strategy: strategy,
		metrics:  NewMetricsCollector(),
		logger:   slog.Default().With("component", "multi_provider"),
	}
}

// Register добавляет провайдера. Порядок регистрации определяет приоритет
func (mp *MultiProvider) Register(provider CompletionProvider) {
	if provider == nil {
		return
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.providers = append(mp.providers, provider)
}

// Metrics возвращает сборщик метрик запросов к провайдерам
func (mp *MultiProvider) Metrics() *MetricsCollector {
	return mp.metrics
}

// Strategy возвращает текущую стратегию агрегации
func (mp *MultiProvider) Strategy() AggregationStrategy {
	return mp.strategy
}

// Name возвращает имя составного провайдера
func (mp *MultiProvider) Name() string {
	return "multi:" + string(mp.strategy)
}

// Enabled составной провайдер активен при хотя бы одном активном внутри
func (mp *MultiProvider) Enabled() bool {
	return len(mp.activeProviders()) > 0
}

// activeProviders возвращает активных провайдеров в порядке регистрации
func (mp *MultiProvider) activeProviders() []CompletionProvider {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	active := make([]CompletionProvider, 0, len(mp.providers))
	for _, p := range mp.providers {
		if p.Enabled() {
			active = append(active, p)
		}
	}
	return active
}

// Complete выполняет запрос согласно стратегии агрегации
func (mp *MultiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	active := mp.activeProviders()
	if len(active) == 0 {
		return "", errors.New("no active providers available")
	}

	switch mp.strategy {
	case Majority:
		return mp.completeMajority(ctx, active, systemPrompt, userPrompt)
	default:
		return mp.completeFirstSuccess(ctx, active, systemPrompt, userPrompt)
	}
}

// completeFirstSuccess опрашивает провайдеров последовательно: основной
// первым, остальные как резерв при его отказе
func (mp *MultiProvider) completeFirstSuccess(ctx context.Context, active []CompletionProvider, systemPrompt, userPrompt string) (string, error) {
	var errs []error

	for _, provider := range active {
		start := time.Now()
		response, err := provider.Complete(ctx, systemPrompt, userPrompt)
		mp.metrics.RecordRequest(provider.Name(), time.Since(start), err)

		if err == nil {
			mp.logger.Debug("provider succeeded", "provider", provider.Name())
			return response, nil
		}

		mp.logger.Warn("provider failed, trying next",
			"provider", provider.Name(),
			"error", err)
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}

// completeMajority опрашивает всех провайдеров параллельно и голосует
// по ключу ответа. При равенстве голосов побеждает более приоритетный
// провайдер
func (mp *MultiProvider) completeMajority(ctx context.Context, active []CompletionProvider, systemPrompt, userPrompt string) (string, error) {
	type outcome struct {
		name     string
		response string
		err      error
	}

	results := make([]outcome, len(active))
	var wg sync.WaitGroup
	for i, provider := range active {
		wg.Add(1)
		go func(idx int, p CompletionProvider) {
			defer wg.Done()
			start := time.Now()
			response, err := p.Complete(ctx, systemPrompt, userPrompt)
			mp.metrics.RecordRequest(p.Name(), time.Since(start), err)
			results[idx] = outcome{name: p.Name(), response: response, err: err}
		}(i, provider)
	}
	wg.Wait()

	// Группируем успешные ответы по ключу голосования, запоминая первый
	// ответ и позицию каждой группы
	votes := make(map[string]int)
	responseByKey := make(map[string]string)
	orderByKey := make(map[string]int)
	var errs []error

	for i, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		key := voteKey(r.response)
		votes[key]++
		if votes[key] == 1 {
			responseByKey[key] = r.response
			orderByKey[key] = i
		}
	}

	if len(votes) == 0 {
		return "", fmt.Errorf("all providers failed: %w", errors.Join(errs...))
	}

	best := ""
	for key := range votes {
		if best == "" {
			best = key
			continue
		}
		if votes[key] > votes[best] || (votes[key] == votes[best] && orderByKey[key] < orderByKey[best]) {
			best = key
		}
	}

	succeeded := len(active) - len(errs)
	if votes[best]*2 > succeeded {
		mp.logger.Info("majority vote selected",
			"votes", votes[best],
			"succeeded", succeeded)
	} else {
		mp.logger.Info("no strict majority, using plurality",
			"votes", votes[best],
			"succeeded", succeeded)
	}

	return responseByKey[best], nil
}

// voteKey ключ голосования: каноническое имя из JSON-ответа, если он
// разбирается, иначе нормализованный текст ответа целиком
func voteKey(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed struct {
		CanonicalName string `json:"canonical_name"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed.CanonicalName != "" {
		return strings.ToLower(strings.TrimSpace(parsed.CanonicalName))
	}
	return strings.ToLower(cleaned)
}
