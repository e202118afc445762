package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bionorm/database"
	"bionorm/normalization"
	apperrors "bionorm/server/errors"
)

// RecordsHandler обработчик истории результатов нормализации
type RecordsHandler struct {
	serviceDB *database.ServiceDB
	exporter  *normalization.Exporter
}

// NewRecordsHandler создает обработчик истории результатов
func NewRecordsHandler(serviceDB *database.ServiceDB) *RecordsHandler {
	return &RecordsHandler{
		serviceDB: serviceDB,
		exporter:  normalization.NewExporter(serviceDB),
	}
}

// RecordsListResponse ответ со страницей истории результатов
type RecordsListResponse struct {
	Total   int                            `json:"total"`
	Records []database.NormalizationRecord `json:"records"`
}

// parseIntQuery читает целочисленный query-параметр; пустое значение
// дает fallback, нечисловое значение является ошибкой
func parseIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid %s %q", name, raw), err)
	}
	return value, nil
}

// HandleRecordsListGin обработчик списка результатов нормализации
// @Summary Получить историю результатов
// @Description Возвращает страницу истории результатов нормализации, новые записи первыми
// @Tags records
// @Accept json
// @Produce json
// @Param category query string false "Фильтр по категории" Enums(organism, disease, data_type)
// @Param status query string false "Фильтр по статусу" Enums(resolved, uncertain, unresolved)
// @Param limit query int false "Размер страницы (по умолчанию 100)"
// @Param offset query int false "Смещение страницы"
// @Success 200 {object} RecordsListResponse "Страница истории"
// @Failure 400 {object} ErrorResponse "Неверные параметры"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/records [get]
func (h *RecordsHandler) HandleRecordsListGin(c *gin.Context) {
	limit, err := parseIntQuery(c, "limit", 0)
	if err != nil {
		sendAppError(c, err)
		return
	}
	offset, err := parseIntQuery(c, "offset", 0)
	if err != nil {
		sendAppError(c, err)
		return
	}

	records, err := h.serviceDB.ListRecords(database.RecordFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		appErr := apperrors.NewInternalError("failed to list records", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	SendJSONResponse(c, http.StatusOK, RecordsListResponse{
		Total:   len(records),
		Records: records,
	})
}

// HandleReviewQueueGin обработчик очереди ручной проверки
// @Summary Получить очередь ручной проверки
// @Description Возвращает результаты, требующие ручной проверки: неуверенные, неразрешенные и разрешенные через LLM
// @Tags records
// @Accept json
// @Produce json
// @Param limit query int false "Размер очереди (по умолчанию 100)"
// @Success 200 {object} RecordsListResponse "Очередь проверки"
// @Failure 400 {object} ErrorResponse "Неверные параметры"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/records/review [get]
func (h *RecordsHandler) HandleReviewQueueGin(c *gin.Context) {
	limit, err := parseIntQuery(c, "limit", 0)
	if err != nil {
		sendAppError(c, err)
		return
	}

	records, err := h.serviceDB.ReviewQueue(limit)
	if err != nil {
		appErr := apperrors.NewInternalError("failed to load review queue", err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	SendJSONResponse(c, http.StatusOK, RecordsListResponse{
		Total:   len(records),
		Records: records,
	})
}

// HandleExportGin обработчик выгрузки истории результатов
// @Summary Выгрузить историю результатов
// @Description Стримит историю результатов нормализации в формате JSON, CSV или XLSX
// @Tags records
// @Accept json
// @Produce json
// @Param format query string false "Формат выгрузки (по умолчанию json)" Enums(json, csv, xlsx)
// @Param category query string false "Фильтр по категории" Enums(organism, disease, data_type)
// @Param status query string false "Фильтр по статусу" Enums(resolved, uncertain, unresolved)
// @Param limit query int false "Максимум записей"
// @Success 200 {file} file "Файл выгрузки"
// @Failure 400 {object} ErrorResponse "Неверные параметры"
// @Failure 500 {object} ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/export [get]
func (h *RecordsHandler) HandleExportGin(c *gin.Context) {
	format, err := normalization.ParseExportFormat(c.Query("format"))
	if err != nil {
		appErr := apperrors.NewValidationError(err.Error(), err)
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}

	limit, err := parseIntQuery(c, "limit", 0)
	if err != nil {
		sendAppError(c, err)
		return
	}

	filter := normalization.ExportFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    limit,
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("normalization_export_%s.%s", timestamp, format)

	switch format {
	case normalization.FormatJSON:
		c.Header("Content-Type", "application/json")
	case normalization.FormatCSV:
		c.Header("Content-Type", "text/csv")
	case normalization.FormatXLSX:
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.exporter.Export(c.Writer, format, filter); err != nil {
		// После начала стриминга статус уже отправлен, менять его поздно
		if !c.Writer.Written() {
			appErr := apperrors.NewInternalError("export failed", err)
			SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
			return
		}
		c.Error(err)
	}
}
