// Утилита построения отчета о качестве нормализации по журналу сервисной
// базы данных.
//
// Использование:
//
//	go run cmd/quality_report/main.go -db service.db
//	go run cmd/quality_report/main.go -db service.db -json
//	go run cmd/quality_report/main.go -db service.db -out report.json -review 50
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"bionorm/database"
	"bionorm/quality"
)

func main() {
	var (
		dbPath      = flag.String("db", "service.db", "Путь к сервисной базе данных")
		outPath     = flag.String("out", "", "Сохранить отчет в JSON-файл")
		jsonOut     = flag.Bool("json", false, "Вывести отчет в формате JSON")
		reviewLimit = flag.Int("review", 20, "Размер выборки очереди проверки")
	)
	flag.Parse()

	// Открытие создало бы пустую базу и пустой отчет вместо ошибки
	if _, err := os.Stat(*dbPath); errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Service database not found: %s", *dbPath)
	}

	db, err := database.NewServiceDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open service database: %v", err)
	}
	defer db.Close()

	generator := quality.NewReportGenerator(db)
	generator.SetReviewLimit(*reviewLimit)

	report, err := generator.Generate()
	if err != nil {
		log.Fatalf("Failed to generate quality report: %v", err)
	}

	if *outPath != "" {
		if err := generator.SaveReportToFile(report, *outPath); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
		fmt.Printf("Report saved to %s\n", *outPath)
	}

	if *jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
		return
	}

	printReport(report)
}

// printReport печатает человекочитаемую сводку отчета
func printReport(report *quality.Report) {
	fmt.Println("=== Quality Report ===")
	fmt.Printf("Generated:      %s\n", report.GeneratedAt)
	fmt.Printf("Total records:  %d\n", report.TotalRecords)
	fmt.Printf("Resolved rate:  %.1f%%\n", report.ResolvedRate)
	fmt.Printf("Avg confidence: %.2f\n", report.AvgConfidence)

	fmt.Println("\n--- Status Distribution ---")
	if len(report.Statuses) == 0 {
		fmt.Println("  (no records)")
	}
	for _, status := range report.Statuses {
		fmt.Printf("  %-12s %6d  %5.1f%%\n", status.Status, status.Count, status.Percentage)
	}

	fmt.Println("\n--- Strategy Usage ---")
	if len(report.Strategies) == 0 {
		fmt.Println("  (no records with chosen candidates)")
	}
	for _, usage := range report.Strategies {
		fmt.Printf("  %-12s %6d  %5.1f%%  avg confidence %.2f\n",
			usage.Strategy, usage.Count, usage.Percentage, usage.AvgConfidence)
	}

	fmt.Println("\n--- Confidence Histogram ---")
	for _, bin := range report.Histogram {
		fmt.Printf("  %s  %6d\n", bin.Range, bin.Count)
	}

	fmt.Printf("\n--- Review Queue (%d pending, showing %d) ---\n",
		report.ReviewQueue.Pending, len(report.ReviewQueue.Items))
	if len(report.ReviewQueue.Items) == 0 {
		fmt.Println("  (empty)")
	}
	for _, item := range report.ReviewQueue.Items {
		label := item.CanonicalLabel
		if label == "" {
			label = "-"
		}
		fmt.Printf("  [%d] %-28s %-10s %-12s conf=%.2f  %-24s reason=%s\n",
			item.ID, truncate(item.Text, 28), item.Category, item.Status,
			item.Confidence, truncate(label, 24), item.Reason)
	}
}

// truncate обрезает строку до максимальной длины с многоточием
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
