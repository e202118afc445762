package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"bionorm/normalization"
)

// CorpusEntry зашумленный термин с ожидаемым каноническим соответствием
type CorpusEntry struct {
	ID            int      `json:"id"`
	Category      string   `json:"category"`
	Input         string   `json:"input"`
	AppliedNoise  []string `json:"applied_noise"`
	ExpectedID    string   `json:"expected_id"`
	ExpectedLabel string   `json:"expected_label"`
}

// Corpus набор тестовых данных для прогона через каскад
type Corpus struct {
	Count   int           `json:"count"`
	Entries []CorpusEntry `json:"entries"`
}

// poolItem одна форма термина встроенного словаря
type poolItem struct {
	category normalization.Category
	id       string
	label    string
	form     string
}

func main() {
	// Фиксированный seed, наборы воспроизводимы между запусками
	gofakeit.Seed(0)

	sizes := []struct {
		name string
		size int
	}{
		{"100", 100},
		{"1K", 1000},
		{"10K", 10000},
	}

	dataDir := filepath.Join("testdata", "corpora")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	pool := buildPool(normalization.DefaultDictionary())
	if len(pool) == 0 {
		log.Fatalf("Builtin dictionary is empty")
	}

	for _, size := range sizes {
		fmt.Printf("Generating %s entries...\n", size.name)

		entries := make([]CorpusEntry, size.size)
		for i := 0; i < size.size; i++ {
			entries[i] = randomEntry(pool, i+1)
		}

		corpus := Corpus{Count: size.size, Entries: entries}
		data, err := json.MarshalIndent(corpus, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal corpus: %v", err)
		}

		filename := filepath.Join(dataDir, fmt.Sprintf("corpus_%s.json", size.name))
		if err := os.WriteFile(filename, data, 0644); err != nil {
			log.Fatalf("Failed to write file %s: %v", filename, err)
		}

		fmt.Printf("Generated %s entries in %s\n", size.name, filename)
	}
}

// buildPool собирает все формы терминов встроенного словаря: каноническую
// метку и каждый синоним как отдельный исходный вариант
func buildPool(dict *normalization.Dictionary) []poolItem {
	var pool []poolItem
	for _, category := range normalization.AllCategories() {
		for _, term := range dict.Terms(category) {
			forms := append([]string{term.CanonicalLabel}, term.Synonyms...)
			for _, form := range forms {
				pool = append(pool, poolItem{
					category: category,
					id:       term.CanonicalID,
					label:    term.CanonicalLabel,
					form:     form,
				})
			}
		}
	}
	return pool
}

// randomEntry выбирает случайную форму и зашумляет ее. Примерно пятая
// часть записей остается точной, чтобы корпус покрывал и словарную стадию
func randomEntry(pool []poolItem, id int) CorpusEntry {
	item := pool[gofakeit.Number(0, len(pool)-1)]
	input := item.form
	var applied []string

	if gofakeit.Number(1, 5) > 1 {
		input, applied = applyNoise(input)
	}

	return CorpusEntry{
		ID:            id,
		Category:      string(item.category),
		Input:         input,
		AppliedNoise:  applied,
		ExpectedID:    item.id,
		ExpectedLabel: item.label,
	}
}

// applyNoise применяет один-два оператора опечаток и, случайно, шум
// регистра и пробелов
func applyNoise(s string) (string, []string) {
	var applied []string

	typos := gofakeit.Number(1, 2)
	for i := 0; i < typos; i++ {
		switch gofakeit.Number(0, 2) {
		case 0:
			s = transposeRunes(s)
			applied = append(applied, "transposition")
		case 1:
			s = deleteRune(s)
			applied = append(applied, "deletion")
		case 2:
			s = duplicateRune(s)
			applied = append(applied, "duplication")
		}
	}

	if gofakeit.Bool() {
		s = noiseCase(s)
		applied = append(applied, "casing")
	}
	if gofakeit.Bool() {
		s = noiseWhitespace(s)
		applied = append(applied, "whitespace")
	}

	return s, applied
}

// transposeRunes меняет местами два соседних символа
func transposeRunes(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return s
	}
	i := gofakeit.Number(0, len(r)-2)
	r[i], r[i+1] = r[i+1], r[i]
	return string(r)
}

// deleteRune удаляет один символ, оставляя строку непустой
func deleteRune(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return s
	}
	i := gofakeit.Number(0, len(r)-1)
	return string(append(r[:i], r[i+1:]...))
}

// duplicateRune удваивает один символ
func duplicateRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	i := gofakeit.Number(0, len(r)-1)
	out := make([]rune, 0, len(r)+1)
	out = append(out, r[:i+1]...)
	out = append(out, r[i])
	out = append(out, r[i+1:]...)
	return string(out)
}

// noiseCase искажает регистр: весь текст вверх, вниз или первая буква
func noiseCase(s string) string {
	switch gofakeit.Number(0, 2) {
	case 0:
		return strings.ToUpper(s)
	case 1:
		return strings.ToLower(s)
	default:
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		return string(r)
	}
}

// noiseWhitespace добавляет краевые пробелы или удваивает внутренний
func noiseWhitespace(s string) string {
	switch gofakeit.Number(0, 2) {
	case 0:
		return "  " + s
	case 1:
		return s + " "
	default:
		return strings.Replace(s, " ", "  ", 1)
	}
}
