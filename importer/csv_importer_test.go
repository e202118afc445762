package importer

import (
	"os"
	"path/filepath"
	"testing"

	"bionorm/normalization"
)

// Тест разбора CSV с заголовками и запятой-разделителем
func TestParseCSVData(t *testing.T) {
	data := []byte(`category,canonical_id,label,synonyms
organism,9606,Homo sapiens,human; H. sapiens
disease,D000544,Alzheimer's Disease,Alzheimer Disease; AD
,10090,Mus musculus,mouse
`)

	records, err := ParseCSVData(data, normalization.CategoryOrganism, DefaultCSVConfig())
	if err != nil {
		t.Fatalf("ParseCSVData failed: %v", err)
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
	if len(first.Synonyms) != 2 || first.Synonyms[0] != "human" || first.Synonyms[1] != "H. sapiens" {
		t.Errorf("unexpected synonyms: %v", first.Synonyms)
	}

	if records[1].Category != normalization.CategoryDisease {
		t.Errorf("expected disease category, got %q", records[1].Category)
	}

	// Пустая категория получает значение по умолчанию
	if records[2].Category != normalization.CategoryOrganism {
		t.Errorf("expected default category, got %q", records[2].Category)
	}
}

// Тест автоопределения разделителя: точка с запятой и табуляция
func TestParseCSVData_DelimiterSniffing(t *testing.T) {
	semicolon := []byte(`canonical_id;label;synonyms
9606;Homo sapiens;human|man
`)
	records, err := ParseCSVData(semicolon, normalization.CategoryOrganism, DefaultCSVConfig())
	if err != nil {
		t.Fatalf("semicolon parse failed: %v", err)
	}
	if len(records) != 1 || records[0].CanonicalLabel != "Homo sapiens" {
		t.Errorf("unexpected semicolon records: %+v", records)
	}
	if len(records[0].Synonyms) != 2 {
		t.Errorf("expected 2 synonyms, got %v", records[0].Synonyms)
	}

	tabbed := []byte("canonical_id\tlabel\n9606\tHomo sapiens\n")
	records, err = ParseCSVData(tabbed, normalization.CategoryOrganism, DefaultCSVConfig())
	if err != nil {
		t.Fatalf("tab parse failed: %v", err)
	}
	if len(records) != 1 || records[0].CanonicalID != "9606" {
		t.Errorf("unexpected tab records: %+v", records)
	}
}

// Тест декодирования Latin-1: байт 0xE9 это e с акутом
func TestParseCSVData_Latin1Fallback(t *testing.T) {
	data := append([]byte("canonical_id,label\nD003715,M"), 0xE9)
	data = append(data, []byte("ni")...)
	data = append(data, 0xE8)
	data = append(data, []byte("re's disease\n")...)

	records, err := ParseCSVData(data, normalization.CategoryDisease, DefaultCSVConfig())
	if err != nil {
		t.Fatalf("ParseCSVData failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].CanonicalLabel != "Ménière's disease" {
		t.Errorf("expected decoded label, got %q", records[0].CanonicalLabel)
	}
}

// Тест разбора без заголовков: фиксированный порядок колонок
func TestParseCSVData_NoHeader(t *testing.T) {
	data := []byte("9606,Homo sapiens,human\n10090,Mus musculus,mouse\n")

	config := DefaultCSVConfig()
	config.HasHeader = false

	records, err := ParseCSVData(data, normalization.CategoryOrganism, config)
	if err != nil {
		t.Fatalf("ParseCSVData failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].CanonicalID != "10090" || records[1].CanonicalLabel != "Mus musculus" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

// Тест пропуска пустых строк и строк без метки
func TestParseCSVData_SkipsInvalidRows(t *testing.T) {
	data := []byte(`canonical_id,label
9606,Homo sapiens

無,
10090,Mus musculus
`)

	records, err := ParseCSVData(data, normalization.CategoryOrganism, DefaultCSVConfig())
	if err != nil {
		t.Fatalf("ParseCSVData failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d: %+v", len(records), records)
	}
}

// Тест ошибок: отсутствие колонки метки и пустой файл
func TestParseCSVData_Errors(t *testing.T) {
	if _, err := ParseCSVData([]byte("foo,bar\n1,2\n"), normalization.CategoryOrganism, DefaultCSVConfig()); err == nil {
		t.Error("expected error for missing label column")
	}

	if _, err := ParseCSVData([]byte("canonical_id,label\n"), normalization.CategoryOrganism, DefaultCSVConfig()); err == nil {
		t.Error("expected error for data-free file")
	}
}

// Тест чтения из файла
func TestParseCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.csv")
	content := "canonical_id,label,synonyms\n9606,Homo sapiens,human\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	records, err := ParseCSVFile(path, normalization.CategoryOrganism, DefaultCSVConfig())
	if err != nil {
		t.Fatalf("ParseCSVFile failed: %v", err)
	}
	if len(records) != 1 || records[0].CanonicalLabel != "Homo sapiens" {
		t.Errorf("unexpected records: %+v", records)
	}
}

// Тест определителя разделителя
func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"Comma", "a,b,c\n1,2,3", ','},
		{"Semicolon", "a;b;c\n1;2;3", ';'},
		{"Tab", "a\tb\tc\n", '\t'},
		{"MixedPrefersFrequent", "a;b,c;d\n", ';'},
		{"NoDelimiter", "plain text\n", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("sniffDelimiter(%q) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}
