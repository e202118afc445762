package normalization

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFormat формат экспорта
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat разбирает формат из строки запроса
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatJSON, FormatCSV, FormatXLSX:
		return ExportFormat(s), nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format: %q", s)
	}
}

// ExportFilter параметры выборки журнала для экспорта
type ExportFilter struct {
	Category string
	Status   string
	Limit    int
}

// RecordRow строка журнала результатов, которую экспортер получает
// от хранилища
type RecordRow struct {
	ID             int64
	RequestText    string
	Category       string
	Status         string
	CanonicalID    string
	CanonicalLabel string
	Confidence     float64
	Strategy       string
	FromCache      bool
	ElapsedMs      int64
	CreatedAt      time.Time
}

// RecordSource источник строк журнала для экспорта
type RecordSource interface {
	ExportRows(filter ExportFilter) ([]RecordRow, error)
}

// ExportedRecord экспортируемая строка результата
type ExportedRecord struct {
	ID             int64   `json:"id"`
	RequestText    string  `json:"request_text"`
	Category       string  `json:"category"`
	Status         string  `json:"status"`
	CanonicalID    string  `json:"canonical_id"`
	CanonicalLabel string  `json:"canonical_label"`
	Confidence     float64 `json:"confidence"`
	Strategy       string  `json:"strategy"`
	FromCache      bool    `json:"from_cache"`
	ReviewRequired bool    `json:"review_required"`
	ElapsedMs      int64   `json:"elapsed_ms"`
	CreatedAt      string  `json:"created_at"`
}

// Exporter экспортер журнала результатов нормализации
type Exporter struct {
	source RecordSource
}

// NewExporter создает новый экспортер
func NewExporter(source RecordSource) *Exporter {
	return &Exporter{source: source}
}

// Export записывает журнал в заданном формате
func (e *Exporter) Export(w io.Writer, format ExportFormat, filter ExportFilter) error {
	switch format {
	case FormatJSON:
		return e.ExportJSON(w, filter)
	case FormatCSV:
		return e.ExportCSV(w, filter)
	case FormatXLSX:
		return e.ExportXLSX(w, filter)
	default:
		return fmt.Errorf("unknown export format: %q", format)
	}
}

// ExportToFile записывает журнал в файл
func (e *Exporter) ExportToFile(filename string, format ExportFormat, filter ExportFilter) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return e.Export(file, format, filter)
}

// ExportJSON экспортирует журнал в JSON
func (e *Exporter) ExportJSON(w io.Writer, filter ExportFilter) error {
	records, err := e.fetchRecords(filter)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"exported_at": time.Now().Format(time.RFC3339),
		"total":       len(records),
		"records":     records,
	}

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// ExportCSV экспортирует журнал в CSV
func (e *Exporter) ExportCSV(w io.Writer, filter ExportFilter) error {
	records, err := e.fetchRecords(filter)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(exportHeaders()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, rec := range records {
		row := []string{
			fmt.Sprintf("%d", rec.ID),
			rec.RequestText,
			rec.Category,
			rec.Status,
			rec.CanonicalID,
			rec.CanonicalLabel,
			fmt.Sprintf("%.2f", rec.Confidence),
			rec.Strategy,
			fmt.Sprintf("%t", rec.FromCache),
			fmt.Sprintf("%t", rec.ReviewRequired),
			fmt.Sprintf("%d", rec.ElapsedMs),
			rec.CreatedAt,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportXLSX экспортирует журнал в Excel
func (e *Exporter) ExportXLSX(w io.Writer, filter ExportFilter) error {
	records, err := e.fetchRecords(filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Normalization Results"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := exportHeaders()
	widths := make([]int, len(headers))
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		widths[i] = len(header)
	}

	for rowIdx, rec := range records {
		row := rowIdx + 2
		values := []interface{}{
			rec.ID,
			rec.RequestText,
			rec.Category,
			rec.Status,
			rec.CanonicalID,
			rec.CanonicalLabel,
			rec.Confidence,
			rec.Strategy,
			rec.FromCache,
			rec.ReviewRequired,
			rec.ElapsedMs,
			rec.CreatedAt,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, value)
			if width := len(fmt.Sprintf("%v", value)); width > widths[col] {
				widths[col] = width
			}
		}
	}

	// Ширина по самому длинному значению колонки, с разумным потолком
	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(widths[i]) + 2
		if width > 50 {
			width = 50
		}
		f.SetColWidth(sheetName, col, col, width)
	}

	f.SetActiveSheet(index)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}

	return nil
}

// fetchRecords получает строки журнала и размечает их флагом ручной
// проверки: неразрешенные, неуверенные и полученные через LLM результаты
// должен просмотреть человек
func (e *Exporter) fetchRecords(filter ExportFilter) ([]ExportedRecord, error) {
	rows, err := e.source.ExportRows(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	records := make([]ExportedRecord, 0, len(rows))
	for _, row := range rows {
		createdAt := ""
		if !row.CreatedAt.IsZero() {
			createdAt = row.CreatedAt.UTC().Format(time.RFC3339)
		}
		records = append(records, ExportedRecord{
			ID:             row.ID,
			RequestText:    row.RequestText,
			Category:       row.Category,
			Status:         row.Status,
			CanonicalID:    row.CanonicalID,
			CanonicalLabel: row.CanonicalLabel,
			Confidence:     row.Confidence,
			Strategy:       row.Strategy,
			FromCache:      row.FromCache,
			ReviewRequired: reviewRequired(row.Status, row.Strategy),
			ElapsedMs:      row.ElapsedMs,
			CreatedAt:      createdAt,
		})
	}

	return records, nil
}

func exportHeaders() []string {
	return []string{
		"ID", "Request", "Category", "Status",
		"Canonical ID", "Canonical Label", "Confidence", "Strategy",
		"From Cache", "Review Required", "Elapsed Ms", "Created At",
	}
}

func reviewRequired(status, strategy string) bool {
	if status != string(StatusResolved) {
		return true
	}
	return strategy == string(StrategyLLM)
}
