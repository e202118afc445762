package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"bionorm/normalization"
	apperrors "bionorm/server/errors"
	"bionorm/server/services"
)

// NormalizationHandler обработчик нормализации терминов
type NormalizationHandler struct {
	service *services.NormalizationService
}

// NewNormalizationHandler создает обработчик нормализации
func NewNormalizationHandler(service *services.NormalizationService) *NormalizationHandler {
	return &NormalizationHandler{service: service}
}

// NormalizeRequest запрос на нормализацию одного термина
type NormalizeRequest struct {
	Text     string `json:"text" binding:"required" example:"E. coli"`
	Category string `json:"category" binding:"required" example:"organism"`
	Context  string `json:"context,omitempty" example:"gut microbiome study"`
}

// BatchNormalizeRequest запрос на пакетную нормализацию
type BatchNormalizeRequest struct {
	Items []NormalizeRequest `json:"items" binding:"required"`
}

// BatchNormalizeResponse ответ пакетной нормализации
type BatchNormalizeResponse struct {
	Total int                  `json:"total"`
	Items []services.BatchItem `json:"items"`
}

// toRequest преобразует DTO в доменный запрос
func (r NormalizeRequest) toRequest() (normalization.Request, error) {
	category, err := normalization.ParseCategory(r.Category)
	if err != nil {
		return normalization.Request{}, apperrors.NewValidationError(err.Error(), err)
	}
	return normalization.Request{
		RawText:  r.Text,
		Category: category,
		Context:  r.Context,
	}, nil
}

// sendAppError отправляет AppError как JSON; прочие ошибки отдаются как 500
func sendAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}
	SendJSONError(c, http.StatusInternalServerError, "internal server error")
}

// HandleNormalizeGin обработчик нормализации одного термина
// @Summary Нормализовать термин
// @Description Разрешает сырой термин в каноническую форму через каскад стратегий (словарь, авторитетные источники, нечеткий поиск, семантический поиск, LLM)
// @Tags normalization
// @Accept json
// @Produce json
// @Param request body NormalizeRequest true "Термин для нормализации"
// @Success 200 {object} normalization.Result "Результат нормализации"
// @Failure 400 {object} ErrorResponse "Неверный запрос"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/normalize [post]
func (h *NormalizationHandler) HandleNormalizeGin(c *gin.Context) {
	var dto NormalizeRequest
	if err := c.ShouldBindJSON(&dto); err != nil {
		appErr := apperrors.NewValidationError("invalid request body", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	req, err := dto.toRequest()
	if err != nil {
		sendAppError(c, err)
		return
	}

	result, err := h.service.Normalize(c.Request.Context(), req)
	if err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, result)
}

// HandleNormalizeBatchGin обработчик пакетной нормализации
// @Summary Нормализовать пакет терминов
// @Description Разрешает пакет терминов с ограниченным параллелизмом. Ошибка отдельного элемента не прерывает пакет; порядок результатов совпадает с порядком входа
// @Tags normalization
// @Accept json
// @Produce json
// @Param request body BatchNormalizeRequest true "Пакет терминов"
// @Success 200 {object} BatchNormalizeResponse "Результаты по элементам пакета"
// @Failure 400 {object} ErrorResponse "Неверный запрос"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/normalize/batch [post]
func (h *NormalizationHandler) HandleNormalizeBatchGin(c *gin.Context) {
	var dto BatchNormalizeRequest
	if err := c.ShouldBindJSON(&dto); err != nil {
		appErr := apperrors.NewValidationError("invalid request body", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	reqs := make([]normalization.Request, 0, len(dto.Items))
	for i, item := range dto.Items {
		req, err := item.toRequest()
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				SendJSONError(c, appErr.StatusCode(),
					fmt.Sprintf("item %d: %s", i, appErr.UserMessage()))
				return
			}
			sendAppError(c, err)
			return
		}
		reqs = append(reqs, req)
	}

	items, err := h.service.NormalizeBatch(c.Request.Context(), reqs)
	if err != nil {
		sendAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, BatchNormalizeResponse{
		Total: len(items),
		Items: items,
	})
}
