package importer

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"bionorm/normalization"
)

func writeTermWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				t.Fatalf("failed to build cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "terms.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// Тест разбора Excel-словаря: колонки находятся по заголовкам
func TestParseXLSXFile(t *testing.T) {
	path := writeTermWorkbook(t, [][]interface{}{
		{"Category", "Canonical ID", "Label", "Synonyms"},
		{"organism", "9606", "Homo sapiens", "human; H. sapiens"},
		{"disease", "D000544", "Alzheimer's Disease", "AD"},
		{"", "", "", ""},
		{"organism", "10090", "Mus musculus", ""},
	})

	records, err := ParseXLSXFile(path, normalization.CategoryDataType)
	if err != nil {
		t.Fatalf("ParseXLSXFile failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.Category != normalization.CategoryOrganism {
		t.Errorf("expected organism category, got %q", first.Category)
	}
	if first.CanonicalID != "9606" || first.CanonicalLabel != "Homo sapiens" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if len(first.Synonyms) != 2 {
		t.Errorf("expected 2 synonyms, got %v", first.Synonyms)
	}

	if records[1].Category != normalization.CategoryDisease {
		t.Errorf("expected disease category, got %q", records[1].Category)
	}
	if len(records[2].Synonyms) != 0 {
		t.Errorf("expected no synonyms, got %v", records[2].Synonyms)
	}
}

// Тест перестановки колонок: порядок в файле не важен
func TestParseXLSXFile_ShuffledColumns(t *testing.T) {
	path := writeTermWorkbook(t, [][]interface{}{
		{"Synonyms", "Name", "Identifier"},
		{"human", "Homo sapiens", "9606"},
	})

	records, err := ParseXLSXFile(path, normalization.CategoryOrganism)
	if err != nil {
		t.Fatalf("ParseXLSXFile failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].CanonicalID != "9606" || records[0].CanonicalLabel != "Homo sapiens" {
		t.Errorf("unexpected record: %+v", records[0])
	}
	if len(records[0].Synonyms) != 1 || records[0].Synonyms[0] != "human" {
		t.Errorf("unexpected synonyms: %v", records[0].Synonyms)
	}
}

// Тест ошибки при отсутствии колонки метки
func TestParseXLSXFile_MissingLabelColumn(t *testing.T) {
	path := writeTermWorkbook(t, [][]interface{}{
		{"Foo", "Bar"},
		{"1", "2"},
	})

	if _, err := ParseXLSXFile(path, normalization.CategoryOrganism); err == nil {
		t.Error("expected error for missing label column")
	}
}

// Тест ошибки для файла без данных
func TestParseXLSXFile_NoData(t *testing.T) {
	path := writeTermWorkbook(t, [][]interface{}{
		{"Canonical ID", "Label"},
	})

	if _, err := ParseXLSXFile(path, normalization.CategoryOrganism); err == nil {
		t.Error("expected error for header-only file")
	}
}
