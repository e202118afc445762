// Package quality строит сводные отчеты о качестве нормализации по журналу
// normalization_records: распределение статусов, использование стратегий,
// гистограмма уверенности и очередь ручной проверки.
package quality

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"bionorm/database"
	"bionorm/normalization"
)

// defaultReviewLimit размер выборки очереди проверки в отчете
const defaultReviewLimit = 20

// Report сводный отчет о качестве нормализации
type Report struct {
	GeneratedAt   string          `json:"generated_at"`
	TotalRecords  int64           `json:"total_records"`
	ResolvedRate  float64         `json:"resolved_rate"`
	AvgConfidence float64         `json:"avg_confidence"`
	Statuses      []StatusShare   `json:"statuses"`
	Strategies    []StrategyUsage `json:"strategies"`
	Histogram     []HistogramBin  `json:"confidence_histogram"`
	ReviewQueue   ReviewQueueInfo `json:"review_queue"`
}

// StatusShare доля записей журнала с одним статусом
type StatusShare struct {
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StrategyUsage использование одной стратегии каскада
type StrategyUsage struct {
	Strategy      string  `json:"strategy"`
	Count         int64   `json:"count"`
	Percentage    float64 `json:"percentage"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// HistogramBin корзина гистограммы уверенности выбранных кандидатов
type HistogramBin struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// ReviewQueueInfo очередь ручной проверки: полный размер и свежая выборка
type ReviewQueueInfo struct {
	Pending int64        `json:"pending"`
	Items   []ReviewItem `json:"items"`
}

// ReviewItem запись, требующая внимания оператора
type ReviewItem struct {
	ID             int64   `json:"id"`
	Text           string  `json:"text"`
	Category       string  `json:"category"`
	Status         string  `json:"status"`
	CanonicalLabel string  `json:"canonical_label,omitempty"`
	Strategy       string  `json:"strategy,omitempty"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// ReportGenerator генератор отчетов о качестве
type ReportGenerator struct {
	db          *database.ServiceDB
	reviewLimit int
}

// NewReportGenerator создает генератор отчетов поверх сервисной базы
func NewReportGenerator(db *database.ServiceDB) *ReportGenerator {
	return &ReportGenerator{
		db:          db,
		reviewLimit: defaultReviewLimit,
	}
}

// SetReviewLimit задает размер выборки очереди проверки в отчете
func (g *ReportGenerator) SetReviewLimit(limit int) {
	if limit > 0 {
		g.reviewLimit = limit
	}
}

// Generate строит полный отчет по текущему содержимому журнала
func (g *ReportGenerator) Generate() (*Report, error) {
	report := &Report{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Statuses:    []StatusShare{},
		Strategies:  []StrategyUsage{},
	}

	total, err := g.db.CountRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}
	report.TotalRecords = total

	if err := g.collectStatuses(report); err != nil {
		return nil, fmt.Errorf("failed to collect status distribution: %w", err)
	}

	if err := g.collectStrategies(report); err != nil {
		return nil, fmt.Errorf("failed to collect strategy usage: %w", err)
	}

	if err := g.collectHistogram(report); err != nil {
		return nil, fmt.Errorf("failed to collect confidence histogram: %w", err)
	}

	if err := g.collectReviewQueue(report); err != nil {
		return nil, fmt.Errorf("failed to collect review queue: %w", err)
	}

	return report, nil
}

// collectStatuses собирает распределение по статусам и долю разрешенных
func (g *ReportGenerator) collectStatuses(report *Report) error {
	counts, err := g.db.StatusCounts()
	if err != nil {
		return err
	}

	for status, count := range counts {
		share := StatusShare{Status: status, Count: count}
		if report.TotalRecords > 0 {
			share.Percentage = float64(count) / float64(report.TotalRecords) * 100.0
		}
		report.Statuses = append(report.Statuses, share)
	}

	sort.Slice(report.Statuses, func(i, j int) bool {
		if report.Statuses[i].Count != report.Statuses[j].Count {
			return report.Statuses[i].Count > report.Statuses[j].Count
		}
		return report.Statuses[i].Status < report.Statuses[j].Status
	})

	if report.TotalRecords > 0 {
		resolved := counts[string(normalization.StatusResolved)]
		report.ResolvedRate = float64(resolved) / float64(report.TotalRecords) * 100.0
	}

	return nil
}

// collectStrategies собирает использование стратегий и среднюю уверенность.
// Общая средняя уверенность считается взвешенно по числу записей стратегии
func (g *ReportGenerator) collectStrategies(report *Report) error {
	aggregates, err := g.db.StrategyStats()
	if err != nil {
		return err
	}

	var chosen int64
	var weighted float64
	for _, agg := range aggregates {
		chosen += agg.Count
		weighted += float64(agg.Count) * agg.AvgConfidence
	}

	for _, agg := range aggregates {
		usage := StrategyUsage{
			Strategy:      agg.Strategy,
			Count:         agg.Count,
			AvgConfidence: agg.AvgConfidence,
		}
		if chosen > 0 {
			usage.Percentage = float64(agg.Count) / float64(chosen) * 100.0
		}
		report.Strategies = append(report.Strategies, usage)
	}

	if chosen > 0 {
		report.AvgConfidence = weighted / float64(chosen)
	}

	return nil
}

// collectHistogram собирает гистограмму уверенности. Отчет всегда содержит
// десять корзин от 0.0-0.1 до 0.9-1.0, пустые корзины с нулевым счетчиком
func (g *ReportGenerator) collectHistogram(report *Report) error {
	buckets, err := g.db.ConfidenceBuckets()
	if err != nil {
		return err
	}

	report.Histogram = make([]HistogramBin, 0, 10)
	for b := 0; b < 10; b++ {
		report.Histogram = append(report.Histogram, HistogramBin{
			Range: fmt.Sprintf("%.1f-%.1f", float64(b)/10.0, float64(b+1)/10.0),
			Count: buckets[b],
		})
	}

	return nil
}

// collectReviewQueue собирает очередь ручной проверки: полный размер
// и свежую выборку с причиной попадания для каждой записи
func (g *ReportGenerator) collectReviewQueue(report *Report) error {
	pending, err := g.db.ReviewQueueSize()
	if err != nil {
		return err
	}
	report.ReviewQueue.Pending = pending

	records, err := g.db.ReviewQueue(g.reviewLimit)
	if err != nil {
		return err
	}

	report.ReviewQueue.Items = make([]ReviewItem, 0, len(records))
	for _, record := range records {
		report.ReviewQueue.Items = append(report.ReviewQueue.Items, ReviewItem{
			ID:             record.ID,
			Text:           record.RequestText,
			Category:       record.Category,
			Status:         record.Status,
			CanonicalLabel: record.CanonicalLabel,
			Strategy:       record.Strategy,
			Confidence:     record.Confidence,
			Reason:         reviewReason(record),
		})
	}

	return nil
}

// reviewReason определяет причину попадания записи в очередь проверки
func reviewReason(record database.NormalizationRecord) string {
	switch record.Status {
	case string(normalization.StatusUnresolved):
		return "unresolved"
	case string(normalization.StatusUncertain):
		return "low_confidence"
	default:
		return "llm_sourced"
	}
}

// SaveReportToFile сохраняет отчет в файл в формате JSON
func (g *ReportGenerator) SaveReportToFile(report *Report, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return nil
}

// GenerateAndSave генерирует отчет и сохраняет в файл
func (g *ReportGenerator) GenerateAndSave(filename string) error {
	report, err := g.Generate()
	if err != nil {
		return err
	}

	return g.SaveReportToFile(report, filename)
}
