// @title BioNorm API
// @version 1.0
// @description Сервис нормализации биомедицинских терминов. Свободный текст (организмы, заболевания, типы данных) приводится к каноническим идентификаторам каскадом стратегий: словарь, авторитетные источники NCBI, нечеткий поиск, семантический поиск, LLM.

// @contact.name API Support

// @host localhost:8080
// @BasePath /
// @schemes http https

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bionorm/authority"
	"bionorm/database"
	"bionorm/internal/config"
	"bionorm/internal/infrastructure/ai"
	"bionorm/internal/logging"
	"bionorm/normalization"
	"bionorm/server"
)

// semanticIndexBuildTimeout предельное время прогрева семантического
// индекса: каждый термин словаря векторизуется через внешний API
const semanticIndexBuildTimeout = 5 * time.Minute

func main() {
	log.Println("Запуск сервера нормализации биомедицинских терминов...")
	log.Printf("Рабочая директория: %s", getWorkingDir())

	// Загружаем конфигурацию из окружения; после инициализации сервисной
	// БД она перечитывается оттуда
	log.Println("[1/8] Загрузка конфигурации...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("✗ Ошибка загрузки конфигурации: %v", err)
	}
	log.Printf("✓ Конфигурация загружена. Порт: %s", cfg.Port)

	log.Println("[2/8] Настройка логирования...")
	flushLogs := logging.Setup(cfg.LogLevel, cfg.LogBufferSize)
	defer flushLogs()
	log.Printf("✓ Структурированное логирование настроено. Уровень: %s", cfg.LogLevel)

	dbConfig := database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	log.Println("[3/8] Инициализация базы терминов...")
	termDB, err := database.NewTermDBWithConfig(cfg.TermDatabasePath, dbConfig)
	if err != nil {
		log.Fatalf("✗ Не удалось инициализировать базу терминов по пути %s: %v", cfg.TermDatabasePath, err)
	}
	defer termDB.Close()
	if err := termDB.SeedDefaults(); err != nil {
		log.Fatalf("✗ Не удалось загрузить встроенный словарь: %v", err)
	}
	dict, err := termDB.LoadDictionary()
	if err != nil {
		log.Fatalf("✗ Не удалось загрузить словарь терминов: %v", err)
	}
	log.Printf("✓ База терминов инициализирована: %s", cfg.TermDatabasePath)

	log.Println("[4/8] Инициализация сервисной базы данных...")
	serviceDB, err := database.NewServiceDBWithConfig(cfg.ServiceDatabasePath, dbConfig)
	if err != nil {
		log.Fatalf("✗ Не удалось инициализировать сервисную базу данных по пути %s: %v", cfg.ServiceDatabasePath, err)
	}
	defer serviceDB.Close()
	log.Printf("✓ Сервисная БД инициализирована: %s", cfg.ServiceDatabasePath)

	// Перечитываем конфигурацию из БД; если ее там еще нет, сохраняем
	// текущую как первую ревизию
	if reloaded, err := config.LoadConfig(serviceDB); err != nil {
		log.Printf("⚠ Конфигурация из БД не загружена: %v. Используются переменные окружения", err)
	} else {
		cfg = reloaded
	}
	if _, found, _ := serviceDB.LoadConfig(); !found {
		if err := config.SaveConfigWithHistory(cfg, serviceDB, "initial configuration"); err != nil {
			log.Printf("⚠ Не удалось сохранить конфигурацию в БД: %v", err)
		} else {
			log.Println("✓ Конфигурация сохранена в сервисную БД")
		}
	}

	log.Println("[5/8] Инициализация кэша результатов...")
	var cache normalization.CacheStore
	switch {
	case !cfg.CacheEnabled:
		log.Println("⚠ Кэш отключен конфигурацией, каждый запрос проходит каскад")
	case cfg.CacheBackend == "sqlite":
		cacheDB, err := database.NewCacheDBWithConfig(cfg.CacheDatabasePath, dbConfig)
		if err != nil {
			log.Fatalf("✗ Не удалось инициализировать кэш по пути %s: %v", cfg.CacheDatabasePath, err)
		}
		defer cacheDB.Close()
		cache = cacheDB
		log.Printf("✓ Кэш на sqlite: %s", cfg.CacheDatabasePath)
	default:
		cache = normalization.NewMemoryCache(cfg.CacheMaxSize)
		log.Printf("✓ Кэш в памяти, до %d записей", cfg.CacheMaxSize)
	}

	log.Println("[6/8] Сборка каскада нормализации...")
	normalizer, err := buildNormalizer(cfg, dict, cache)
	if err != nil {
		log.Fatalf("✗ Не удалось собрать каскад: %v", err)
	}
	log.Println("✓ Каскад собран")

	log.Println("[7/8] Создание сервера...")
	srv := server.NewServer(cfg, normalizer, dict, cache, termDB, serviceDB)
	log.Println("✓ Сервер создан")

	startErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			startErrChan <- err
		}
	}()

	// Если за две секунды ошибки нет, порт занят не был и сервер слушает
	log.Println("[8/8] Ожидание запуска сервера...")
	select {
	case err := <-startErrChan:
		log.Fatalf("✗ Сервер не запустился: %v", err)
	case <-time.After(2 * time.Second):
	}

	log.Printf("✓ Сервер запущен на порту %s", cfg.Port)
	log.Printf("Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
	log.Println("Для остановки нажмите Ctrl+C")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Получен сигнал завершения, останавливаем сервер...")
	case err := <-startErrChan:
		log.Fatalf("✗ Сервер аварийно остановлен: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}

// buildNormalizer собирает каскад из доступных стратегий. Словарные
// стадии работают всегда; авторитетные источники, семантический поиск и
// LLM подключаются по конфигурации
func buildNormalizer(cfg *config.Config, dict *normalization.Dictionary, cache normalization.CacheStore) (*normalization.Normalizer, error) {
	matchers := []normalization.Matcher{normalization.NewExactMatcher(dict)}

	// Организмы проверяются по NCBI Taxonomy, заболевания по MeSH.
	// Ключ API не обязателен, без него действует щадящий лимит частоты
	ncbi := authority.NewNCBIClient(authority.NCBIConfig{
		BaseURL:   cfg.NCBIBaseURL,
		APIKey:    cfg.NCBIAPIKey,
		Email:     cfg.NCBIEmail,
		Tool:      cfg.NCBITool,
		RateLimit: cfg.NCBIRateLimit,
		Timeout:   cfg.NCBITimeout,
	})
	authorityMatcher := normalization.NewAuthorityMatcher()
	authorityMatcher.SetTimeout(cfg.NCBITimeout)
	for category, lookup := range authority.NewDefaultRegistry(ncbi).Lookups() {
		authorityMatcher.Register(category, lookup)
	}
	matchers = append(matchers, authorityMatcher)

	fuzzy := normalization.NewFuzzyMatcher(dict)
	fuzzy.SetFloor(cfg.FuzzyFloor)
	fuzzy.SetTopK(cfg.FuzzyTopK)
	matchers = append(matchers, fuzzy)

	if cfg.EmbeddingsEnabled {
		embedder := ai.NewEmbeddingsClient(ai.EmbeddingsConfig{
			BaseURL: cfg.EmbeddingsBaseURL,
			APIKey:  cfg.EmbeddingsAPIKey,
			Model:   cfg.EmbeddingsModel,
		})
		index := normalization.NewSemanticIndex(embedder)
		buildCtx, cancel := context.WithTimeout(context.Background(), semanticIndexBuildTimeout)
		err := index.Build(buildCtx, dict)
		cancel()
		if err != nil {
			log.Printf("⚠ Семантический индекс не построен: %v. Стадия отключена", err)
		} else {
			semantic := normalization.NewSemanticMatcher(index, embedder)
			semantic.SetTopK(cfg.SemanticTopK)
			matchers = append(matchers, semantic)
			log.Printf("✓ Семантический индекс построен: %d векторов", index.Len())
		}
	}

	if cfg.OpenRouterAPIKey != "" {
		llm := normalization.NewLLMMatcher(buildCompletionProvider(cfg))
		llm.SetTimeout(cfg.AITimeout)
		matchers = append(matchers, llm)
	} else {
		log.Println("⚠ OPENROUTER_API_KEY не задан, LLM-стадия отключена")
	}

	return normalization.NewNormalizer(cfg.NormalizerConfig(), cache, matchers...)
}

// buildCompletionProvider создает провайдера завершений для LLM-стадии.
// При включенной мульти-провайдерной нормализации запасные модели
// опрашиваются через тот же шлюз OpenRouter
func buildCompletionProvider(cfg *config.Config) normalization.CompletionProvider {
	primary := ai.NewOpenRouterClient(ai.OpenRouterConfig{
		BaseURL:     cfg.OpenRouterBaseURL,
		APIKey:      cfg.OpenRouterAPIKey,
		Model:       cfg.OpenRouterModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.AITimeout,
	})
	if !cfg.MultiProviderEnabled || len(cfg.FallbackModels) == 0 {
		return primary
	}

	multi := ai.NewMultiProvider(ai.AggregationStrategy(cfg.AggregationStrategy))
	multi.Register(primary)
	for _, model := range cfg.FallbackModels {
		multi.Register(ai.NewOpenRouterClient(ai.OpenRouterConfig{
			BaseURL:     cfg.OpenRouterBaseURL,
			APIKey:      cfg.OpenRouterAPIKey,
			Model:       model,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     cfg.AITimeout,
		}))
	}
	return multi
}

// getWorkingDir возвращает рабочую директорию или путь к исполняемому файлу
func getWorkingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		if exePath, err := os.Executable(); err == nil {
			return filepath.Dir(exePath)
		}
		return "unknown"
	}
	return wd
}
