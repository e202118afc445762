package normalization

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

type stubRecordSource struct {
	rows       []RecordRow
	err        error
	lastFilter ExportFilter
}

func (s *stubRecordSource) ExportRows(filter ExportFilter) ([]RecordRow, error) {
	s.lastFilter = filter
	return s.rows, s.err
}

func exportRowsFixture() []RecordRow {
	createdAt := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	return []RecordRow{
		{
			ID:             1,
			RequestText:    "homo sapiens",
			Category:       "organism",
			Status:         "resolved",
			CanonicalID:    "9606",
			CanonicalLabel: "Homo sapiens",
			Confidence:     1.0,
			Strategy:       "exact",
			ElapsedMs:      2,
			CreatedAt:      createdAt,
		},
		{
			ID:             2,
			RequestText:    "alzheimers",
			Category:       "disease",
			Status:         "resolved",
			CanonicalID:    "D000544",
			CanonicalLabel: "Alzheimer's Disease",
			Confidence:     0.91,
			Strategy:       "llm",
			ElapsedMs:      840,
			CreatedAt:      createdAt,
		},
		{
			ID:          3,
			RequestText: "qwerty",
			Category:    "organism",
			Status:      "unresolved",
			ElapsedMs:   1200,
			CreatedAt:   createdAt,
		},
	}
}

// Тест экспорта в JSON: конверт с total и записями, флаг ручной
// проверки у LLM-результатов и неразрешенных запросов
func TestExporter_JSON(t *testing.T) {
	source := &stubRecordSource{rows: exportRowsFixture()}
	exporter := NewExporter(source)

	var buf bytes.Buffer
	if err := exporter.ExportJSON(&buf, ExportFilter{Category: "organism", Limit: 50}); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	if source.lastFilter.Category != "organism" || source.lastFilter.Limit != 50 {
		t.Errorf("filter not passed to source: %+v", source.lastFilter)
	}

	var payload struct {
		ExportedAt string           `json:"exported_at"`
		Total      int              `json:"total"`
		Records    []ExportedRecord `json:"records"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse exported JSON: %v", err)
	}

	if payload.Total != 3 {
		t.Errorf("expected total 3, got %d", payload.Total)
	}
	if len(payload.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(payload.Records))
	}

	first := payload.Records[0]
	if first.CanonicalLabel != "Homo sapiens" || first.Strategy != "exact" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.ReviewRequired {
		t.Error("resolved exact match should not require review")
	}
	if first.CreatedAt != "2026-03-14T12:30:00Z" {
		t.Errorf("expected RFC3339 created_at, got %q", first.CreatedAt)
	}

	if !payload.Records[1].ReviewRequired {
		t.Error("llm-sourced record should require review")
	}
	if !payload.Records[2].ReviewRequired {
		t.Error("unresolved record should require review")
	}
}

// Тест экспорта в CSV: заголовок и форматирование значений
func TestExporter_CSV(t *testing.T) {
	exporter := NewExporter(&stubRecordSource{rows: exportRowsFixture()})

	var buf bytes.Buffer
	if err := exporter.ExportCSV(&buf, ExportFilter{}); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse exported CSV: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][1] != "Request" || rows[0][9] != "Review Required" {
		t.Errorf("unexpected header row: %v", rows[0])
	}

	second := rows[2]
	if second[1] != "alzheimers" {
		t.Errorf("expected request alzheimers, got %q", second[1])
	}
	if second[6] != "0.91" {
		t.Errorf("expected confidence 0.91, got %q", second[6])
	}
	if second[9] != "true" {
		t.Errorf("expected review_required true for llm row, got %q", second[9])
	}
}

// Тест экспорта в Excel: лист с заголовком и строками читается обратно
func TestExporter_XLSX(t *testing.T) {
	exporter := NewExporter(&stubRecordSource{rows: exportRowsFixture()})

	var buf bytes.Buffer
	if err := exporter.ExportXLSX(&buf, ExportFilter{}); err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to open exported workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Normalization Results")
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][5] != "Canonical Label" {
		t.Errorf("unexpected header row: %v", rows[0])
	}
	if rows[1][5] != "Homo sapiens" {
		t.Errorf("expected Homo sapiens in first data row, got %v", rows[1])
	}
}

// Тест записи в файл
func TestExporter_ExportToFile(t *testing.T) {
	exporter := NewExporter(&stubRecordSource{rows: exportRowsFixture()})

	path := filepath.Join(t.TempDir(), "records.json")
	if err := exporter.ExportToFile(path, FormatJSON, ExportFilter{}); err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read exported file: %v", err)
	}
	if !json.Valid(data) {
		t.Error("exported file is not valid JSON")
	}
}

// Тест диспетчера форматов
func TestExporter_UnknownFormat(t *testing.T) {
	exporter := NewExporter(&stubRecordSource{})

	var buf bytes.Buffer
	if err := exporter.Export(&buf, ExportFormat("pdf"), ExportFilter{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

// Тест разбора формата из строки запроса
func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    ExportFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"", FormatJSON, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExportFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseExportFormat(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseExportFormat(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Тест правил флага ручной проверки
func TestReviewRequired(t *testing.T) {
	tests := []struct {
		status   string
		strategy string
		want     bool
	}{
		{"resolved", "exact", false},
		{"resolved", "authority", false},
		{"resolved", "llm", true},
		{"uncertain", "fuzzy", true},
		{"unresolved", "", true},
	}

	for _, tt := range tests {
		if got := reviewRequired(tt.status, tt.strategy); got != tt.want {
			t.Errorf("reviewRequired(%q, %q) = %v, want %v", tt.status, tt.strategy, got, tt.want)
		}
	}
}
