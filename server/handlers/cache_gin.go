package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bionorm/normalization"
	"bionorm/server/services"
)

// CacheHandler обработчик управления кэшем результатов
type CacheHandler struct {
	service *services.NormalizationService
}

// NewCacheHandler создает обработчик кэша
func NewCacheHandler(service *services.NormalizationService) *CacheHandler {
	return &CacheHandler{service: service}
}

// CacheStatsResponse ответ со статистикой кэша
type CacheStatsResponse struct {
	Enabled bool                     `json:"enabled"`
	Stats   normalization.CacheStats `json:"stats"`
}

// HandleCacheStatsGin обработчик статистики кэша
// @Summary Получить статистику кэша
// @Description Возвращает счетчики попаданий, промахов и вытеснений кэша результатов
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} CacheStatsResponse "Статистика кэша"
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) HandleCacheStatsGin(c *gin.Context) {
	stats, enabled := h.service.CacheStats()
	SendJSONResponse(c, http.StatusOK, CacheStatsResponse{
		Enabled: enabled,
		Stats:   stats,
	})
}

// HandleCacheClearGin обработчик очистки кэша
// @Summary Очистить кэш
// @Description Удаляет все записи из кэша результатов. Последующие запросы пройдут каскад заново
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Подтверждение очистки"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/cache/clear [post]
func (h *CacheHandler) HandleCacheClearGin(c *gin.Context) {
	cleared, err := h.service.ClearCache()
	if err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"cleared": cleared,
	})
}
