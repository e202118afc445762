package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"bionorm/normalization"
)

// ParseXLSXFile парсит Excel-файл словаря терминов. Колонки находятся
// по заголовкам первой строки; строки без категории получают категорию
// по умолчанию
func ParseXLSXFile(filePath string, defaultCategory normalization.Category) ([]TermRecord, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	return parseTermRows(rows, defaultCategory)
}

// parseTermRows разбирает табличные строки словаря: первая строка —
// заголовок, остальные — данные
func parseTermRows(rows [][]string, defaultCategory normalization.Category) ([]TermRecord, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file is too short, expected at least header row and one data row")
	}

	colIndices := findTermColumnIndices(rows[0])
	if colIndices.label == -1 {
		return nil, fmt.Errorf("required label column not found in headers")
	}

	var records []TermRecord
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if isEmptyRow(row) {
			continue
		}

		record := TermRecord{
			Category:       parseCategory(cellAt(row, colIndices.category), defaultCategory),
			CanonicalID:    cellAt(row, colIndices.id),
			CanonicalLabel: cellAt(row, colIndices.label),
			Synonyms:       splitSynonyms(cellAt(row, colIndices.synonyms)),
		}

		// Пропускаем строки без канонической метки
		if record.CanonicalLabel == "" {
			continue
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no valid records found in Excel file. Check column mapping")
	}

	return records, nil
}
