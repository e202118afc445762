package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"bionorm/database"
	"bionorm/importer"
	"bionorm/normalization"
)

func main() {
	var (
		filePath = flag.String("file", "", "Path to the vocabulary file (xlsx, csv or html)")
		format   = flag.String("format", "", "File format: xlsx, csv or html (default: by file extension)")
		category = flag.String("category", "", "Default category for rows without one: organism, disease or data_type")
		dbPath   = flag.String("db", "terms.db", "Path to the term database")
		verbose  = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	if *filePath == "" || *category == "" {
		fmt.Println("Usage: import_terms -file <path> -category <organism|disease|data_type> [-format <xlsx|csv|html>] [-db <database_path>] [-verbose]")
		os.Exit(1)
	}

	defaultCategory, err := normalization.ParseCategory(*category)
	if err != nil {
		log.Fatalf("Invalid category %q: valid values are organism, disease, data_type", *category)
	}

	if _, err := os.Stat(*filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Fatalf("File not found: %s", *filePath)
		}
		log.Fatalf("Error checking file %s: %v", *filePath, err)
	}

	// Формат определяется по расширению, если не задан явно
	fileFormat := strings.ToLower(*format)
	if fileFormat == "" {
		fileFormat = strings.TrimPrefix(strings.ToLower(filepath.Ext(*filePath)), ".")
	}

	if *verbose {
		log.Printf("Parsing %s file: %s", fileFormat, *filePath)
	}

	var records []importer.TermRecord
	switch fileFormat {
	case "xlsx":
		records, err = importer.ParseXLSXFile(*filePath, defaultCategory)
	case "csv", "txt":
		records, err = importer.ParseCSVFile(*filePath, defaultCategory, importer.DefaultCSVConfig())
	case "html", "htm":
		records, err = importer.ParseHTMLFile(*filePath, defaultCategory)
	default:
		log.Fatalf("Unsupported format %q: use xlsx, csv or html", fileFormat)
	}
	if err != nil {
		log.Fatalf("Failed to parse file: %v", err)
	}

	if *verbose {
		log.Printf("Parsed %d records", len(records))
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	db, err := database.NewTermDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open term database: %v", err)
	}
	defer db.Close()

	result, err := importer.NewTermImporter(db).Import(records)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("\n=== Import Results ===\n")
	fmt.Printf("Total records: %d\n", result.Total)
	fmt.Printf("Imported: %d\n", result.Success)
	fmt.Printf("Updated: %d\n", result.Updated)
	fmt.Printf("Errors: %d\n", len(result.Errors))
	fmt.Printf("Duration: %v\n", result.Duration)

	if *verbose && len(result.Errors) > 0 {
		fmt.Printf("\n=== Errors ===\n")
		for _, e := range result.Errors {
			fmt.Printf(" - %s\n", e)
		}
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
