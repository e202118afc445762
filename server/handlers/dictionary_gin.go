package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bionorm/database"
	"bionorm/normalization"
	apperrors "bionorm/server/errors"
	"bionorm/server/services"
)

// DictionaryHandler обработчик управления словарем терминов
type DictionaryHandler struct {
	service *services.DictionaryService
}

// NewDictionaryHandler создает обработчик словаря
func NewDictionaryHandler(service *services.DictionaryService) *DictionaryHandler {
	return &DictionaryHandler{service: service}
}

// UpsertTermRequest запрос на добавление или обновление термина
type UpsertTermRequest struct {
	CanonicalID    string   `json:"canonical_id" example:"9606"`
	CanonicalLabel string   `json:"canonical_label" binding:"required" example:"Homo sapiens"`
	Synonyms       []string `json:"synonyms,omitempty" example:"human,H. sapiens"`
}

// DictionaryListResponse ответ со списком терминов категории
type DictionaryListResponse struct {
	Category string                `json:"category"`
	Total    int                   `json:"total"`
	Terms    []database.StoredTerm `json:"terms"`
}

// HandleDictionaryListGin обработчик списка терминов категории
// @Summary Получить термины категории
// @Description Возвращает все термины словаря для указанной категории
// @Tags dictionary
// @Accept json
// @Produce json
// @Param category path string true "Категория" Enums(organism, disease, data_type)
// @Success 200 {object} DictionaryListResponse "Термины категории"
// @Failure 400 {object} ErrorResponse "Неизвестная категория"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/dictionary/{category} [get]
func (h *DictionaryHandler) HandleDictionaryListGin(c *gin.Context) {
	category := normalization.Category(c.Param("category"))

	terms, err := h.service.ListTerms(category)
	if err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, DictionaryListResponse{
		Category: string(category),
		Total:    len(terms),
		Terms:    terms,
	})
}

// HandleDictionaryUpsertGin обработчик добавления термина
// @Summary Добавить или обновить термин
// @Description Сохраняет термин в базе и публикует его в словаре матчеров без перезапуска. Повтор canonical_id обновляет существующую запись
// @Tags dictionary
// @Accept json
// @Produce json
// @Param category path string true "Категория" Enums(organism, disease, data_type)
// @Param request body UpsertTermRequest true "Термин"
// @Success 200 {object} database.StoredTerm "Сохраненный термин"
// @Failure 400 {object} ErrorResponse "Неверный запрос"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/dictionary/{category} [post]
func (h *DictionaryHandler) HandleDictionaryUpsertGin(c *gin.Context) {
	category := normalization.Category(c.Param("category"))

	var dto UpsertTermRequest
	if err := c.ShouldBindJSON(&dto); err != nil {
		appErr := apperrors.NewValidationError("invalid request body", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	stored, err := h.service.UpsertTerm(category, normalization.Term{
		CanonicalID:    dto.CanonicalID,
		CanonicalLabel: dto.CanonicalLabel,
		Synonyms:       dto.Synonyms,
	})
	if err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, stored)
}

// HandleDictionaryDeleteGin обработчик удаления термина
// @Summary Удалить термин
// @Description Удаляет термин из базы и перезагружает словарь матчеров
// @Tags dictionary
// @Accept json
// @Produce json
// @Param category path string true "Категория" Enums(organism, disease, data_type)
// @Param id path string true "Канонический идентификатор термина"
// @Success 200 {object} map[string]interface{} "Подтверждение удаления"
// @Failure 400 {object} ErrorResponse "Неизвестная категория"
// @Failure 404 {object} ErrorResponse "Термин не найден"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/dictionary/{category}/{id} [delete]
func (h *DictionaryHandler) HandleDictionaryDeleteGin(c *gin.Context) {
	category := normalization.Category(c.Param("category"))
	canonicalID := c.Param("id")

	if err := h.service.DeleteTerm(category, canonicalID); err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"deleted":      true,
		"category":     string(category),
		"canonical_id": canonicalID,
	})
}

// HandleDictionaryReloadGin обработчик перезагрузки словаря
// @Summary Перезагрузить словарь
// @Description Перечитывает словарь матчеров из базы терминов. Применяется после массового импорта терминов
// @Tags dictionary
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Число терминов по категориям"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/dictionary/reload [post]
func (h *DictionaryHandler) HandleDictionaryReloadGin(c *gin.Context) {
	if err := h.service.Reload(); err != nil {
		sendAppError(c, err)
		return
	}

	counts, err := h.service.Counts()
	if err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"reloaded": true,
		"counts":   counts,
	})
}
