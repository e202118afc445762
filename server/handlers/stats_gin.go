package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bionorm/server/services"
)

// StatsHandler обработчик сводной статистики сервиса
type StatsHandler struct {
	service    *services.NormalizationService
	dictionary *services.DictionaryService
}

// NewStatsHandler создает обработчик статистики
func NewStatsHandler(service *services.NormalizationService, dictionary *services.DictionaryService) *StatsHandler {
	return &StatsHandler{
		service:    service,
		dictionary: dictionary,
	}
}

// HandleStatsGin обработчик сводной статистики
// @Summary Получить статистику сервиса
// @Description Возвращает счетчики оркестратора и кэша, агрегаты истории результатов и размер словаря по категориям
// @Tags stats
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Сводная статистика"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/stats [get]
func (h *StatsHandler) HandleStatsGin(c *gin.Context) {
	stats, err := h.service.Stats()
	if err != nil {
		sendAppError(c, err)
		return
	}

	response := gin.H{
		"normalizer":      stats.Normalizer,
		"cache":           stats.Cache,
		"cache_enabled":   stats.CacheEnabled,
		"total_records":   stats.TotalRecords,
		"status_counts":   stats.StatusCounts,
		"strategy_stats":  stats.StrategyStats,
		"record_failures": stats.RecordFailures,
	}

	if h.dictionary != nil {
		if counts, err := h.dictionary.Counts(); err == nil {
			response["dictionary_counts"] = counts
		}
	}

	SendJSONResponse(c, http.StatusOK, response)
}
