package importer

import (
	"fmt"
	"log"
	"strings"
	"time"

	"bionorm/database"
	"bionorm/normalization"
)

// TermRecord разобранная строка словаря из внешнего файла
type TermRecord struct {
	Category       normalization.Category
	CanonicalID    string
	CanonicalLabel string
	Synonyms       []string
}

// ImportResult содержит результаты импорта
type ImportResult struct {
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Updated   int           `json:"updated"`
	Errors    []string      `json:"errors"`
	Started   time.Time     `json:"started"`
	Completed time.Time     `json:"completed"`
	Duration  time.Duration `json:"duration"`
}

// TermImporter импортер словарных терминов в базу
type TermImporter struct {
	db *database.TermDB
}

// NewTermImporter создает новый импортер
func NewTermImporter(db *database.TermDB) *TermImporter {
	return &TermImporter{db: db}
}

// Import загружает разобранные записи в словарь. Ошибки отдельных строк
// не прерывают импорт и собираются в результат
func (ti *TermImporter) Import(records []TermRecord) (*ImportResult, error) {
	result := &ImportResult{
		Total:   len(records),
		Errors:  make([]string, 0),
		Started: time.Now(),
	}

	// Логируем прогресс каждые 100 записей
	logInterval := 100
	if len(records) > 1000 {
		logInterval = 500
	}

	for idx, record := range records {
		wasUpdated, err := ti.importTerm(record)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Row %d: %s: %v", idx+1, record.CanonicalLabel, err))
		} else {
			result.Success++
			if wasUpdated {
				result.Updated++
			}
		}

		if (idx+1)%logInterval == 0 {
			log.Printf("Import progress: %d/%d terms processed", idx+1, len(records))
		}
	}

	result.Completed = time.Now()
	result.Duration = result.Completed.Sub(result.Started)

	log.Printf("Import finished: %d/%d succeeded, %d updated, %d errors in %v",
		result.Success, result.Total, result.Updated, len(result.Errors), result.Duration)

	return result, nil
}

func (ti *TermImporter) importTerm(record TermRecord) (bool, error) {
	if !record.Category.Valid() {
		return false, fmt.Errorf("invalid category: %q", record.Category)
	}
	if record.CanonicalLabel == "" {
		return false, fmt.Errorf("empty canonical label")
	}

	term := normalization.Term{
		CanonicalID:    record.CanonicalID,
		CanonicalLabel: record.CanonicalLabel,
		Synonyms:       record.Synonyms,
	}
	// Записи без идентификатора авторитетного источника получают метку
	// в качестве идентификатора
	if term.CanonicalID == "" {
		term.CanonicalID = record.CanonicalLabel
	}

	existing, err := ti.db.GetTerm(record.Category, term.CanonicalID)
	if err != nil {
		return false, err
	}

	if _, err := ti.db.UpsertTerm(record.Category, term); err != nil {
		return false, err
	}

	return existing != nil, nil
}

// termColumnIndices хранит индексы колонок словарного файла
type termColumnIndices struct {
	category int
	id       int
	label    int
	synonyms int
}

// findTermColumnIndices находит индексы колонок по заголовкам
func findTermColumnIndices(headers []string) termColumnIndices {
	indices := termColumnIndices{
		category: -1,
		id:       -1,
		label:    -1,
		synonyms: -1,
	}

	// Каждый заголовок закрепляется не более чем за одной колонкой,
	// проверки идут от более специфичных к более общим
	for i, header := range headers {
		headerLower := strings.ToLower(strings.TrimSpace(header))
		if headerLower == "" {
			continue
		}

		switch {
		case indices.category == -1 && containsAny(headerLower, []string{"category"}):
			indices.category = i
		case indices.synonyms == -1 && containsAny(headerLower, []string{"synonym", "alias", "alternative"}):
			indices.synonyms = i
		case indices.id == -1 && (headerLower == "id" ||
			containsAny(headerLower, []string{"canonical_id", "canonical id", "identifier", "taxid", "mesh", "uid"})):
			indices.id = i
		case indices.label == -1 && containsAny(headerLower, []string{"label", "preferred", "term", "name"}):
			indices.label = i
		}
	}

	return indices
}

// containsAny проверяет, содержит ли строка любое из подстрок
func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// isEmptyRow проверяет, является ли строка пустой
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellAt безопасно возвращает значение ячейки по индексу
func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// splitSynonyms разбивает ячейку синонимов по типовым разделителям
func splitSynonyms(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}

	sep := ";"
	switch {
	case strings.Contains(cell, "|"):
		sep = "|"
	case strings.Contains(cell, ";"):
		sep = ";"
	case strings.Contains(cell, ","):
		sep = ","
	}

	var synonyms []string
	for _, part := range strings.Split(cell, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			synonyms = append(synonyms, trimmed)
		}
	}
	return synonyms
}

// parseCategory приводит обозначение категории из файла к внутреннему
// виду; нераспознанные значения получают категорию по умолчанию
func parseCategory(cell string, fallback normalization.Category) normalization.Category {
	value := strings.ToLower(strings.TrimSpace(cell))
	switch {
	case value == "":
		return fallback
	case containsAny(value, []string{"organism", "species", "taxon"}):
		return normalization.CategoryOrganism
	case containsAny(value, []string{"disease", "disorder", "condition"}):
		return normalization.CategoryDisease
	case containsAny(value, []string{"data_type", "data type", "datatype", "assay"}):
		return normalization.CategoryDataType
	default:
		return fallback
	}
}
