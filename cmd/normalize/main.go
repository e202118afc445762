package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"bionorm/authority"
	"bionorm/database"
	"bionorm/internal/config"
	"bionorm/internal/infrastructure/ai"
	"bionorm/normalization"
)

func main() {
	var (
		categoryFlag = flag.String("category", "", "Term category: organism, disease or data_type")
		filePath     = flag.String("file", "", "Read terms from a file, one per line")
		termContext  = flag.String("context", "", "Free-form context passed to the LLM stage")
		dbPath       = flag.String("db", "terms.db", "Path to the term database")
		jsonOut      = flag.Bool("json", false, "Print results as JSON")
		useNCBI      = flag.Bool("ncbi", false, "Enable the NCBI authority stage (network access)")
		useLLM       = flag.Bool("llm", false, "Enable the LLM fallback stage (requires OPENROUTER_API_KEY)")
	)
	flag.Parse()

	if *categoryFlag == "" || (*filePath == "" && flag.NArg() == 0) {
		fmt.Println("Usage: normalize -category <organism|disease|data_type> [-file <path>] [-db <database_path>] [-context <text>] [-ncbi] [-llm] [-json] [term ...]")
		os.Exit(1)
	}

	category, err := normalization.ParseCategory(*categoryFlag)
	if err != nil {
		log.Fatalf("Invalid category %q: valid values are organism, disease, data_type", *categoryFlag)
	}

	terms, err := collectTerms(*filePath, flag.Args())
	if err != nil {
		log.Fatalf("Failed to read terms: %v", err)
	}
	if len(terms) == 0 {
		log.Fatalf("No terms to normalize")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	termDB, err := database.NewTermDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open term database: %v", err)
	}
	defer termDB.Close()
	if err := termDB.SeedDefaults(); err != nil {
		log.Fatalf("Failed to seed builtin terms: %v", err)
	}
	dict, err := termDB.LoadDictionary()
	if err != nil {
		log.Fatalf("Failed to load dictionary: %v", err)
	}

	normalizer, err := buildCascade(cfg, dict, *useNCBI, *useLLM)
	if err != nil {
		log.Fatalf("Failed to build the cascade: %v", err)
	}

	started := time.Now()
	results := make([]*normalization.Result, 0, len(terms))
	for _, term := range terms {
		request, err := normalization.NewRequest(term, category, *termContext)
		if err != nil {
			log.Fatalf("Invalid term %q: %v", term, err)
		}
		result, err := normalizer.Resolve(context.Background(), request)
		if err != nil {
			log.Fatalf("Failed to normalize %q: %v", term, err)
		}
		results = append(results, result)
	}

	if *jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			log.Fatalf("Failed to encode results: %v", err)
		}
		return
	}

	printTable(results)

	var resolved, uncertain, unresolved int
	for _, r := range results {
		switch r.Status {
		case normalization.StatusResolved:
			resolved++
		case normalization.StatusUncertain:
			uncertain++
		case normalization.StatusUnresolved:
			unresolved++
		}
	}
	fmt.Println("\n--- Normalization Summary ---")
	fmt.Printf("Terms: %d\n", len(results))
	fmt.Printf("Resolved: %d\n", resolved)
	fmt.Printf("Uncertain: %d\n", uncertain)
	fmt.Printf("Unresolved: %d\n", unresolved)
	fmt.Printf("Duration: %s\n", time.Since(started).Round(time.Millisecond))
}

// collectTerms объединяет термины из аргументов и файла. Пустые строки и
// строки-комментарии пропускаются
func collectTerms(filePath string, args []string) ([]string, error) {
	terms := make([]string, 0, len(args))
	terms = append(terms, args...)

	if filePath == "" {
		return terms, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	return terms, scanner.Err()
}

// buildCascade собирает каскад для пакетного запуска: словарные стадии
// всегда включены, сетевые стадии подключаются флагами
func buildCascade(cfg *config.Config, dict *normalization.Dictionary, useNCBI, useLLM bool) (*normalization.Normalizer, error) {
	matchers := []normalization.Matcher{normalization.NewExactMatcher(dict)}

	if useNCBI {
		ncbi := authority.NewNCBIClient(authority.NCBIConfig{
			BaseURL:   cfg.NCBIBaseURL,
			APIKey:    cfg.NCBIAPIKey,
			Email:     cfg.NCBIEmail,
			Tool:      cfg.NCBITool,
			RateLimit: cfg.NCBIRateLimit,
			Timeout:   cfg.NCBITimeout,
		})
		am := normalization.NewAuthorityMatcher()
		am.SetTimeout(cfg.NCBITimeout)
		for cat, lookup := range authority.NewDefaultRegistry(ncbi).Lookups() {
			am.Register(cat, lookup)
		}
		matchers = append(matchers, am)
	}

	fuzzy := normalization.NewFuzzyMatcher(dict)
	fuzzy.SetFloor(cfg.FuzzyFloor)
	fuzzy.SetTopK(cfg.FuzzyTopK)
	matchers = append(matchers, fuzzy)

	if useLLM {
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("LLM stage requires OPENROUTER_API_KEY")
		}
		llm := normalization.NewLLMMatcher(ai.NewOpenRouterClient(ai.OpenRouterConfig{
			BaseURL:     cfg.OpenRouterBaseURL,
			APIKey:      cfg.OpenRouterAPIKey,
			Model:       cfg.OpenRouterModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     cfg.AITimeout,
		}))
		llm.SetTimeout(cfg.AITimeout)
		matchers = append(matchers, llm)
	}

	// Кэш в памяти схлопывает повторяющиеся термины внутри одного запуска
	cache := normalization.NewMemoryCache(cfg.CacheMaxSize)
	return normalization.NewNormalizer(cfg.NormalizerConfig(), cache, matchers...)
}

func printTable(results []*normalization.Result) {
	fmt.Printf("%-28s %-11s %-36s %-14s %-6s %s\n", "TERM", "STATUS", "CANONICAL", "ID", "CONF", "STRATEGY")
	for _, r := range results {
		label, id, conf, strategy := "-", "-", "-", "-"
		if r.Chosen != nil {
			label = r.Chosen.CanonicalLabel
			id = r.Chosen.CanonicalID
			conf = fmt.Sprintf("%.2f", r.Chosen.Confidence)
			strategy = string(r.Chosen.Source)
		}
		fmt.Printf("%-28s %-11s %-36s %-14s %-6s %s\n",
			truncate(r.Request.RawText, 28), string(r.Status), truncate(label, 36), id, conf, strategy)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
