package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bionorm/database"
	"bionorm/normalization"
	apperrors "bionorm/server/errors"
)

const (
	// defaultBatchConcurrency число одновременно разрешаемых терминов пакета
	defaultBatchConcurrency = 4

	// maxBatchItems предел размера пакета за один запрос
	maxBatchItems = 500
)

// NormalizationService связывает каскад нормализации с HTTP слоем:
// прогоняет запросы через оркестратор и фиксирует результаты в сервисной БД
type NormalizationService struct {
	normalizer *normalization.Normalizer
	serviceDB  *database.ServiceDB
	cache      normalization.CacheStore
	batchLimit int
	logger     *slog.Logger

	mu             sync.Mutex
	recordFailures int64
}

// NewNormalizationService создает сервис нормализации. serviceDB и cache
// опциональны: без serviceDB результаты не фиксируются, без cache операции
// над кэшем отвечают нулевой статистикой
func NewNormalizationService(
	normalizer *normalization.Normalizer,
	serviceDB *database.ServiceDB,
	cache normalization.CacheStore,
	batchLimit int,
) *NormalizationService {
	if batchLimit <= 0 {
		batchLimit = defaultBatchConcurrency
	}
	return &NormalizationService{
		normalizer: normalizer,
		serviceDB:  serviceDB,
		cache:      cache,
		batchLimit: batchLimit,
		logger:     slog.Default().With("component", "normalization_service"),
	}
}

// Normalize разрешает один термин и фиксирует результат.
// Ошибки валидации запроса возвращаются как 400, отмена контекста как 503
func (ns *NormalizationService) Normalize(ctx context.Context, req normalization.Request) (*normalization.Result, error) {
	result, err := ns.normalizer.Resolve(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, normalization.ErrInvalidCategory),
			errors.Is(err, normalization.ErrEmptyTerm):
			return nil, apperrors.NewValidationError(err.Error(), err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewServiceUnavailableError("normalization interrupted", err)
		default:
			return nil, apperrors.NewInternalError("normalization failed", err)
		}
	}

	ns.recordResult(result)
	return result, nil
}

// BatchItem результат нормализации одного элемента пакета.
// Позиция соответствует позиции элемента во входном пакете
type BatchItem struct {
	Index  int                   `json:"index"`
	Result *normalization.Result `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// NormalizeBatch разрешает пакет терминов с ограниченным параллелизмом.
// Порядок результатов совпадает с порядком входных элементов; ошибка
// отдельного элемента не прерывает пакет
func (ns *NormalizationService) NormalizeBatch(ctx context.Context, reqs []normalization.Request) ([]BatchItem, error) {
	if len(reqs) == 0 {
		return nil, apperrors.NewValidationError("batch is empty", nil)
	}
	if len(reqs) > maxBatchItems {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("batch size %d exceeds limit %d", len(reqs), maxBatchItems), nil)
	}

	items := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, ns.batchLimit)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req normalization.Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := ns.Normalize(ctx, req)
			item := BatchItem{Index: i}
			if err != nil {
				var appErr *apperrors.AppError
				if errors.As(err, &appErr) {
					item.Error = appErr.UserMessage()
				} else {
					item.Error = err.Error()
				}
			} else {
				item.Result = result
			}
			items[i] = item
		}(i, req)
	}
	wg.Wait()

	return items, nil
}

// recordResult фиксирует результат в сервисной БД. Сбой записи не фатален
// для запроса: результат уже получен, потеря касается только истории
func (ns *NormalizationService) recordResult(result *normalization.Result) {
	if ns.serviceDB == nil {
		return
	}

	if err := ns.serviceDB.RecordResult(result); err != nil {
		ns.mu.Lock()
		ns.recordFailures++
		ns.mu.Unlock()
		ns.logger.Warn("failed to record normalization result",
			"text", result.Request.RawText,
			"category", result.Request.Category,
			"error", err)
	}
}

// ServiceStats сводная статистика сервиса: счетчики оркестратора, кэша
// и агрегаты по истории результатов
type ServiceStats struct {
	Normalizer     normalization.NormalizerStats `json:"normalizer"`
	Cache          normalization.CacheStats      `json:"cache"`
	CacheEnabled   bool                          `json:"cache_enabled"`
	TotalRecords   int64                         `json:"total_records"`
	StatusCounts   map[string]int64              `json:"status_counts,omitempty"`
	StrategyStats  []database.StrategyAggregate  `json:"strategy_stats,omitempty"`
	RecordFailures int64                         `json:"record_failures"`
}

// Stats собирает сводную статистику. Агрегаты истории доступны только
// при подключенной сервисной БД
func (ns *NormalizationService) Stats() (*ServiceStats, error) {
	stats := &ServiceStats{
		Normalizer:   ns.normalizer.Statistics(),
		Cache:        ns.normalizer.CacheStats(),
		CacheEnabled: ns.cache != nil,
	}

	ns.mu.Lock()
	stats.RecordFailures = ns.recordFailures
	ns.mu.Unlock()

	if ns.serviceDB == nil {
		return stats, nil
	}

	total, err := ns.serviceDB.CountRecords()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count normalization records", err)
	}
	stats.TotalRecords = total

	statusCounts, err := ns.serviceDB.StatusCounts()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate statuses", err)
	}
	stats.StatusCounts = statusCounts

	strategyStats, err := ns.serviceDB.StrategyStats()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate strategies", err)
	}
	stats.StrategyStats = strategyStats

	return stats, nil
}

// CacheStats возвращает счетчики кэша результатов
func (ns *NormalizationService) CacheStats() (normalization.CacheStats, bool) {
	if ns.cache == nil {
		return normalization.CacheStats{}, false
	}
	return ns.cache.Stats(), true
}

// ClearCache очищает кэш результатов. Возвращает false если кэш
// не подключен или бекенд не поддерживает очистку
func (ns *NormalizationService) ClearCache() (bool, error) {
	switch cache := ns.cache.(type) {
	case nil:
		return false, nil
	case interface{ Clear() error }:
		if err := cache.Clear(); err != nil {
			return false, apperrors.NewInternalError("failed to clear cache", err)
		}
		return true, nil
	case interface{ Clear() }:
		cache.Clear()
		return true, nil
	default:
		return false, nil
	}
}
