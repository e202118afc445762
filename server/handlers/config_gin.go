package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bionorm/database"
	"bionorm/internal/config"
	apperrors "bionorm/server/errors"
)

// maskedSecret подставляется вместо ключей API в ответах. При обновлении
// замаскированное значение означает "оставить прежний ключ"
const maskedSecret = "***"

// ConfigHandler обработчик конфигурации сервиса
type ConfigHandler struct {
	serviceDB *database.ServiceDB
}

// NewConfigHandler создает обработчик конфигурации
func NewConfigHandler(serviceDB *database.ServiceDB) *ConfigHandler {
	return &ConfigHandler{serviceDB: serviceDB}
}

// maskSecrets возвращает копию конфигурации с замаскированными ключами API
func maskSecrets(cfg *config.Config) *config.Config {
	masked := *cfg
	if masked.NCBIAPIKey != "" {
		masked.NCBIAPIKey = maskedSecret
	}
	if masked.OpenRouterAPIKey != "" {
		masked.OpenRouterAPIKey = maskedSecret
	}
	if masked.EmbeddingsAPIKey != "" {
		masked.EmbeddingsAPIKey = maskedSecret
	}
	return &masked
}

// restoreSecrets возвращает прежние ключи на место замаскированных значений
func restoreSecrets(cfg, old *config.Config) {
	if old == nil {
		return
	}
	if cfg.NCBIAPIKey == maskedSecret {
		cfg.NCBIAPIKey = old.NCBIAPIKey
	}
	if cfg.OpenRouterAPIKey == maskedSecret {
		cfg.OpenRouterAPIKey = old.OpenRouterAPIKey
	}
	if cfg.EmbeddingsAPIKey == maskedSecret {
		cfg.EmbeddingsAPIKey = old.EmbeddingsAPIKey
	}
}

// HandleConfigGetGin обработчик чтения конфигурации
// @Summary Получить конфигурацию
// @Description Возвращает действующую конфигурацию сервиса. Ключи API замаскированы
// @Tags config
// @Accept json
// @Produce json
// @Success 200 {object} config.Config "Конфигурация"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Failure 503 {object} ErrorResponse "Сервисная БД недоступна"
// @Router /api/v1/config [get]
func (h *ConfigHandler) HandleConfigGetGin(c *gin.Context) {
	if h.serviceDB == nil {
		appErr := apperrors.NewServiceUnavailableError("service database is not available", nil)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	cfg, err := config.LoadConfig(h.serviceDB)
	if err != nil {
		appErr := apperrors.NewInternalError("failed to load config", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	SendJSONResponse(c, http.StatusOK, maskSecrets(cfg))
}

// HandleConfigUpdateGin обработчик обновления конфигурации
// @Summary Обновить конфигурацию
// @Description Сохраняет конфигурацию в сервисной БД с записью в историю ревизий. Пороги каскада и настройки внешних источников вступают в силу после перезапуска
// @Tags config
// @Accept json
// @Produce json
// @Param comment query string false "Комментарий к ревизии"
// @Param request body config.Config true "Новая конфигурация"
// @Success 200 {object} map[string]interface{} "Подтверждение сохранения"
// @Failure 400 {object} ErrorResponse "Неверная конфигурация"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Failure 503 {object} ErrorResponse "Сервисная БД недоступна"
// @Router /api/v1/config [put]
func (h *ConfigHandler) HandleConfigUpdateGin(c *gin.Context) {
	if h.serviceDB == nil {
		appErr := apperrors.NewServiceUnavailableError("service database is not available", nil)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	var cfg config.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		appErr := apperrors.NewValidationError("invalid request body", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	// Замаскированные ключи означают "оставить прежние"
	if old, err := config.LoadConfig(h.serviceDB); err == nil {
		restoreSecrets(&cfg, old)
	}

	if err := cfg.Validate(); err != nil {
		appErr := apperrors.NewValidationError(err.Error(), err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	comment := c.Query("comment")
	if comment == "" {
		comment = "updated via API"
	}

	if err := config.SaveConfigWithHistory(&cfg, h.serviceDB, comment); err != nil {
		appErr := apperrors.NewInternalError("failed to save config", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"saved":            true,
		"restart_required": true,
		"comment":          comment,
	})
}

// HandleConfigHistoryGin обработчик истории ревизий конфигурации
// @Summary Получить историю конфигурации
// @Description Возвращает последние ревизии конфигурации из сервисной БД
// @Tags config
// @Accept json
// @Produce json
// @Param limit query int false "Число ревизий (по умолчанию 20)"
// @Success 200 {object} map[string]interface{} "Ревизии конфигурации"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Failure 503 {object} ErrorResponse "Сервисная БД недоступна"
// @Router /api/v1/config/history [get]
func (h *ConfigHandler) HandleConfigHistoryGin(c *gin.Context) {
	if h.serviceDB == nil {
		appErr := apperrors.NewServiceUnavailableError("service database is not available", nil)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	limit, err := parseIntQuery(c, "limit", 20)
	if err != nil {
		sendAppError(c, err)
		return
	}

	revisions, err := h.serviceDB.ConfigHistory(limit)
	if err != nil {
		appErr := apperrors.NewInternalError("failed to load config history", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"total":     len(revisions),
		"revisions": revisions,
	})
}
