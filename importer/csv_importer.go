package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"bionorm/normalization"
)

// CSVConfig параметры разбора CSV-файла словаря
type CSVConfig struct {
	Delimiter rune // разделитель; 0 включает автоопределение
	HasHeader bool // есть ли строка заголовков
	MaxErrors int  // предел ошибок строк, после которого разбор прерывается
}

// DefaultCSVConfig возвращает конфигурацию по умолчанию
func DefaultCSVConfig() CSVConfig {
	return CSVConfig{
		Delimiter: 0,
		HasHeader: true,
		MaxErrors: 100,
	}
}

// ParseCSVFile парсит CSV-файл словаря терминов
func ParseCSVFile(filePath string, defaultCategory normalization.Category, config CSVConfig) ([]TermRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseCSVData(data, defaultCategory, config)
}

// ParseCSVData парсит CSV-данные словаря. Не-UTF-8 файлы декодируются
// из Latin-1: легаси-выгрузки словарей нередко приходят в нем
func ParseCSVData(data []byte, defaultCategory normalization.Category, config CSVConfig) ([]TermRecord, error) {
	converted, err := decodeToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding: %w", err)
	}

	delimiter := config.Delimiter
	if delimiter == 0 {
		delimiter = sniffDelimiter(converted)
	}

	reader := csv.NewReader(strings.NewReader(string(converted)))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// Без заголовков действует фиксированный порядок колонок:
	// идентификатор, метка, синонимы
	colIndices := termColumnIndices{category: -1, id: 0, label: 1, synonyms: 2}
	if config.HasHeader {
		headers, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV headers: %w", err)
		}
		colIndices = findTermColumnIndices(headers)
		if colIndices.label == -1 {
			return nil, fmt.Errorf("required label column not found in CSV headers")
		}
	}

	var records []TermRecord
	errorCount := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errorCount++
			if errorCount > config.MaxErrors {
				return nil, fmt.Errorf("too many malformed rows (%d), last error: %w", errorCount, err)
			}
			continue
		}

		if isEmptyRow(row) {
			continue
		}

		record := TermRecord{
			Category:       parseCategory(cellAt(row, colIndices.category), defaultCategory),
			CanonicalID:    cellAt(row, colIndices.id),
			CanonicalLabel: cellAt(row, colIndices.label),
			Synonyms:       splitSynonyms(cellAt(row, colIndices.synonyms)),
		}

		if record.CanonicalLabel == "" {
			continue
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no valid records found in CSV data")
	}

	return records, nil
}

// decodeToUTF8 возвращает данные в UTF-8. Файлы в другой кодировке
// декодируются из Latin-1
func decodeToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	decoder := charmap.ISO8859_1.NewDecoder()
	converted, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("latin-1 decode failed: %w", err)
	}
	return converted, nil
}

// sniffDelimiter определяет разделитель по первой строке: побеждает
// самый частый из типовых кандидатов, при равенстве — запятая
func sniffDelimiter(data []byte) rune {
	firstLine := string(data)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}

	best := ','
	bestCount := strings.Count(firstLine, ",")
	for _, candidate := range []rune{';', '\t'} {
		if count := strings.Count(firstLine, string(candidate)); count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}
