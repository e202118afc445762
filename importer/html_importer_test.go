package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bionorm/normalization"
)

const vocabularyPage = `<!DOCTYPE html>
<html>
<head><title>Disease Vocabulary</title></head>
<body>
<h1>Descriptors</h1>
<table>
  <tr><th>Identifier</th><th>Preferred Term</th><th>Synonyms</th></tr>
  <tr><td>D000544</td><td>Alzheimer's Disease</td><td>Alzheimer Disease; AD</td></tr>
  <tr><td>D010300</td><td>Parkinson Disease</td><td>Parkinson's disease</td></tr>
  <tr><td></td><td></td><td></td></tr>
</table>
</body>
</html>`

// Тест извлечения словаря из HTML-таблицы с заголовками
func TestParseHTML(t *testing.T) {
	records, err := ParseHTML(strings.NewReader(vocabularyPage), normalization.CategoryDisease)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.CanonicalID != "D000544" {
		t.Errorf("expected D000544, got %q", first.CanonicalID)
	}
	if first.CanonicalLabel != "Alzheimer's Disease" {
		t.Errorf("expected Alzheimer's Disease, got %q", first.CanonicalLabel)
	}
	if len(first.Synonyms) != 2 || first.Synonyms[1] != "AD" {
		t.Errorf("unexpected synonyms: %v", first.Synonyms)
	}
	if first.Category != normalization.CategoryDisease {
		t.Errorf("expected disease category, got %q", first.Category)
	}
}

// Тест таблицы без заголовка: фиксированный порядок колонок
func TestParseHTML_HeaderlessTable(t *testing.T) {
	page := `<html><body>
<table>
  <tr><td>9606</td><td>Homo sapiens</td><td>human</td></tr>
  <tr><td>10090</td><td>Mus musculus</td><td>mouse; house mouse</td></tr>
</table>
</body></html>`

	records, err := ParseHTML(strings.NewReader(page), normalization.CategoryOrganism)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].CanonicalLabel != "Mus musculus" || len(records[1].Synonyms) != 2 {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

// Тест выбора таблицы: навигационные таблицы без словарных колонок
// пропускаются
func TestParseHTML_SkipsUnrelatedTables(t *testing.T) {
	page := `<html><body>
<table>
  <tr><th>Menu</th><th>Link</th></tr>
  <tr><td>Home</td><td>/home</td></tr>
</table>
<table>
  <tr><th>ID</th><th>Label</th></tr>
  <tr><td>9606</td><td>Homo sapiens</td></tr>
</table>
</body></html>`

	records, err := ParseHTML(strings.NewReader(page), normalization.CategoryOrganism)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}
	if len(records) != 1 || records[0].CanonicalLabel != "Homo sapiens" {
		t.Errorf("unexpected records: %+v", records)
	}
}

// Тест документа без таблиц
func TestParseHTML_NoTables(t *testing.T) {
	if _, err := ParseHTML(strings.NewReader("<html><body><p>nothing</p></body></html>"), normalization.CategoryOrganism); err == nil {
		t.Error("expected error for table-free document")
	}
}

// Тест чтения из файла
func TestParseHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.html")
	if err := os.WriteFile(path, []byte(vocabularyPage), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	records, err := ParseHTMLFile(path, normalization.CategoryDisease)
	if err != nil {
		t.Fatalf("ParseHTMLFile failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}
