package quality

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"bionorm/database"
	"bionorm/normalization"
)

// setupTestDB создает тестовую сервисную базу данных
func setupTestDB(t *testing.T) *database.ServiceDB {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "service.db")

	db, err := database.NewServiceDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test service DB: %v", err)
	}

	return db
}

// seedRecord вставляет запись журнала с заданным исходом
func seedRecord(t *testing.T, db *database.ServiceDB, text, status, strategy string, confidence float64) {
	t.Helper()

	record := &database.NormalizationRecord{
		RequestText: text,
		Category:    "organism",
		Status:      status,
	}
	if strategy != "" {
		record.Strategy = strategy
		record.Confidence = confidence
		record.CanonicalID = "NCBITaxon:9606"
		record.CanonicalLabel = "Homo sapiens"
	}

	if err := db.InsertRecord(record); err != nil {
		t.Fatalf("Failed to seed record %q: %v", text, err)
	}
}

// seedJournal заполняет журнал известным распределением исходов:
// три точных совпадения, по одному нечеткому, LLM и семантическому,
// одна запись без кандидатов
func seedJournal(t *testing.T, db *database.ServiceDB) {
	t.Helper()

	resolved := string(normalization.StatusResolved)
	seedRecord(t, db, "human", resolved, string(normalization.StrategyExact), 1.0)
	seedRecord(t, db, "Human", resolved, string(normalization.StrategyExact), 1.0)
	seedRecord(t, db, "homo sapiens", resolved, string(normalization.StrategyExact), 1.0)
	seedRecord(t, db, "humann", resolved, string(normalization.StrategyFuzzy), 0.87)
	seedRecord(t, db, "h. sapiens patient", resolved, string(normalization.StrategyLLM), 0.55)
	seedRecord(t, db, "humman", string(normalization.StatusUncertain), string(normalization.StrategySemantic), 0.72)
	seedRecord(t, db, "xyzzy", string(normalization.StatusUnresolved), "", 0)
}

// floatNear сравнивает числа с плавающей точкой с допуском
func floatNear(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

// TestNewReportGenerator проверяет создание генератора отчетов
func TestNewReportGenerator(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	generator := NewReportGenerator(db)

	if generator == nil {
		t.Fatal("NewReportGenerator() returned nil")
	}

	if generator.db == nil {
		t.Error("ReportGenerator.db is nil")
	}

	if generator.reviewLimit != defaultReviewLimit {
		t.Errorf("reviewLimit = %d, want %d", generator.reviewLimit, defaultReviewLimit)
	}
}

// TestReportGenerator_EmptyJournal проверяет отчет по пустому журналу
func TestReportGenerator_EmptyJournal(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	report, err := NewReportGenerator(db).Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if report.TotalRecords != 0 {
		t.Errorf("TotalRecords = %d, want 0", report.TotalRecords)
	}
	if report.ResolvedRate != 0 {
		t.Errorf("ResolvedRate = %f, want 0", report.ResolvedRate)
	}
	if report.AvgConfidence != 0 {
		t.Errorf("AvgConfidence = %f, want 0", report.AvgConfidence)
	}
	if len(report.Statuses) != 0 {
		t.Errorf("Statuses has %d entries, want 0", len(report.Statuses))
	}
	if len(report.Strategies) != 0 {
		t.Errorf("Strategies has %d entries, want 0", len(report.Strategies))
	}

	if len(report.Histogram) != 10 {
		t.Fatalf("Histogram has %d bins, want 10", len(report.Histogram))
	}
	for _, bin := range report.Histogram {
		if bin.Count != 0 {
			t.Errorf("Histogram bin %s count = %d, want 0", bin.Range, bin.Count)
		}
	}

	if report.ReviewQueue.Pending != 0 {
		t.Errorf("ReviewQueue.Pending = %d, want 0", report.ReviewQueue.Pending)
	}
	if len(report.ReviewQueue.Items) != 0 {
		t.Errorf("ReviewQueue has %d items, want 0", len(report.ReviewQueue.Items))
	}

	if report.GeneratedAt == "" {
		t.Error("GeneratedAt is empty")
	}
}

// TestReportGenerator_Generate проверяет распределения по заполненному журналу
func TestReportGenerator_Generate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seedJournal(t, db)

	report, err := NewReportGenerator(db).Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if report.TotalRecords != 7 {
		t.Errorf("TotalRecords = %d, want 7", report.TotalRecords)
	}

	// Статусы упорядочены по убыванию, равные счетчики по имени
	wantStatuses := []StatusShare{
		{Status: "resolved", Count: 5},
		{Status: "uncertain", Count: 1},
		{Status: "unresolved", Count: 1},
	}
	if len(report.Statuses) != len(wantStatuses) {
		t.Fatalf("Statuses has %d entries, want %d", len(report.Statuses), len(wantStatuses))
	}
	for i, want := range wantStatuses {
		got := report.Statuses[i]
		if got.Status != want.Status || got.Count != want.Count {
			t.Errorf("Statuses[%d] = %s/%d, want %s/%d", i, got.Status, got.Count, want.Status, want.Count)
		}
	}
	if !floatNear(report.Statuses[0].Percentage, 100.0*5.0/7.0) {
		t.Errorf("resolved percentage = %f, want %f", report.Statuses[0].Percentage, 100.0*5.0/7.0)
	}

	if !floatNear(report.ResolvedRate, 100.0*5.0/7.0) {
		t.Errorf("ResolvedRate = %f, want %f", report.ResolvedRate, 100.0*5.0/7.0)
	}

	// Самая частая стратегия первая, остальные ищем по имени
	if len(report.Strategies) != 4 {
		t.Fatalf("Strategies has %d entries, want 4", len(report.Strategies))
	}
	exact := report.Strategies[0]
	if exact.Strategy != "exact" || exact.Count != 3 {
		t.Errorf("Strategies[0] = %s/%d, want exact/3", exact.Strategy, exact.Count)
	}
	if !floatNear(exact.AvgConfidence, 1.0) {
		t.Errorf("exact AvgConfidence = %f, want 1.0", exact.AvgConfidence)
	}
	if !floatNear(exact.Percentage, 50.0) {
		t.Errorf("exact percentage = %f, want 50.0", exact.Percentage)
	}

	wantAvg := map[string]float64{"fuzzy": 0.87, "llm": 0.55, "semantic": 0.72}
	for name, avg := range wantAvg {
		found := false
		for _, usage := range report.Strategies {
			if usage.Strategy != name {
				continue
			}
			found = true
			if usage.Count != 1 {
				t.Errorf("%s count = %d, want 1", name, usage.Count)
			}
			if !floatNear(usage.AvgConfidence, avg) {
				t.Errorf("%s AvgConfidence = %f, want %f", name, usage.AvgConfidence, avg)
			}
			if !floatNear(usage.Percentage, 100.0/6.0) {
				t.Errorf("%s percentage = %f, want %f", name, usage.Percentage, 100.0/6.0)
			}
		}
		if !found {
			t.Errorf("strategy %s missing from report", name)
		}
	}

	// Взвешенное среднее: (3*1.0 + 0.87 + 0.55 + 0.72) / 6
	if !floatNear(report.AvgConfidence, 5.14/6.0) {
		t.Errorf("AvgConfidence = %f, want %f", report.AvgConfidence, 5.14/6.0)
	}

	wantBins := map[string]int64{"0.9-1.0": 3, "0.8-0.9": 1, "0.7-0.8": 1, "0.5-0.6": 1}
	if len(report.Histogram) != 10 {
		t.Fatalf("Histogram has %d bins, want 10", len(report.Histogram))
	}
	for _, bin := range report.Histogram {
		if bin.Count != wantBins[bin.Range] {
			t.Errorf("Histogram bin %s count = %d, want %d", bin.Range, bin.Count, wantBins[bin.Range])
		}
	}
}

// TestReportGenerator_ReviewQueue проверяет очередь проверки: размер,
// порядок от новых к старым и причину для каждой записи
func TestReportGenerator_ReviewQueue(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seedJournal(t, db)

	report, err := NewReportGenerator(db).Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if report.ReviewQueue.Pending != 3 {
		t.Errorf("ReviewQueue.Pending = %d, want 3", report.ReviewQueue.Pending)
	}

	items := report.ReviewQueue.Items
	if len(items) != 3 {
		t.Fatalf("ReviewQueue has %d items, want 3", len(items))
	}

	wantReasons := []struct {
		text   string
		reason string
	}{
		{"xyzzy", "unresolved"},
		{"humman", "low_confidence"},
		{"h. sapiens patient", "llm_sourced"},
	}
	for i, want := range wantReasons {
		if items[i].Text != want.text {
			t.Errorf("Items[%d].Text = %q, want %q", i, items[i].Text, want.text)
		}
		if items[i].Reason != want.reason {
			t.Errorf("Items[%d].Reason = %q, want %q", i, items[i].Reason, want.reason)
		}
	}

	if items[2].CanonicalLabel != "Homo sapiens" {
		t.Errorf("llm item CanonicalLabel = %q, want %q", items[2].CanonicalLabel, "Homo sapiens")
	}
}

// TestReportGenerator_ReviewLimit проверяет, что лимит ограничивает выборку,
// но не полный размер очереди
func TestReportGenerator_ReviewLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seedJournal(t, db)

	generator := NewReportGenerator(db)
	generator.SetReviewLimit(1)

	report, err := generator.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if report.ReviewQueue.Pending != 3 {
		t.Errorf("ReviewQueue.Pending = %d, want 3", report.ReviewQueue.Pending)
	}
	if len(report.ReviewQueue.Items) != 1 {
		t.Errorf("ReviewQueue has %d items, want 1", len(report.ReviewQueue.Items))
	}
}

// TestReviewReason проверяет определение причины попадания в очередь
func TestReviewReason(t *testing.T) {
	tests := []struct {
		name   string
		record database.NormalizationRecord
		want   string
	}{
		{
			name:   "unresolved record",
			record: database.NormalizationRecord{Status: "unresolved"},
			want:   "unresolved",
		},
		{
			name:   "uncertain record",
			record: database.NormalizationRecord{Status: "uncertain", Strategy: "semantic"},
			want:   "low_confidence",
		},
		{
			name:   "resolved via llm",
			record: database.NormalizationRecord{Status: "resolved", Strategy: "llm"},
			want:   "llm_sourced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reviewReason(tt.record); got != tt.want {
				t.Errorf("reviewReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestReportGenerator_GenerateAndSave проверяет сохранение отчета в JSON-файл
func TestReportGenerator_GenerateAndSave(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seedJournal(t, db)

	reportPath := filepath.Join(t.TempDir(), "quality_report.json")
	if err := NewReportGenerator(db).GenerateAndSave(reportPath); err != nil {
		t.Fatalf("GenerateAndSave() error = %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Failed to read saved report: %v", err)
	}

	var saved Report
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Saved report is not valid JSON: %v", err)
	}

	if saved.TotalRecords != 7 {
		t.Errorf("Saved TotalRecords = %d, want 7", saved.TotalRecords)
	}
	if len(saved.Histogram) != 10 {
		t.Errorf("Saved Histogram has %d bins, want 10", len(saved.Histogram))
	}
}
