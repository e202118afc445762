package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bionorm/normalization"
)

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	// Валидация путей к базам данных
	if c.TermDatabasePath == "" {
		errors = append(errors, "term database path is required")
	}
	if c.ServiceDatabasePath == "" {
		errors = append(errors, "service database path is required")
	}
	if c.CacheBackend == "sqlite" && c.CacheDatabasePath == "" {
		errors = append(errors, "cache database path is required for sqlite cache backend")
	}

	// Валидация connection pooling
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	// Валидация логирования
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if c.LogLevel != "" {
		valid := false
		logLevelUpper := strings.ToUpper(c.LogLevel)
		for _, level := range validLogLevels {
			if logLevelUpper == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
				c.LogLevel, strings.Join(validLogLevels, ", ")))
		}
	}
	if c.LogBufferSize < 1 {
		errors = append(errors, "log buffer size must be at least 1")
	}

	// Валидация порогов каскада
	if err := c.CascadeThresholds().Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("cascade thresholds: %v", err))
	}
	if c.FuzzyFloor < 0 || c.FuzzyFloor >= 1 {
		errors = append(errors, fmt.Sprintf("fuzzy floor must be in [0, 1), got %g", c.FuzzyFloor))
	}
	if c.FuzzyTopK < 1 {
		errors = append(errors, "fuzzy top-k must be at least 1")
	}
	if c.SemanticTopK < 1 {
		errors = append(errors, "semantic top-k must be at least 1")
	}

	// Валидация кэша
	validBackends := []string{"memory", "sqlite"}
	backendValid := false
	for _, backend := range validBackends {
		if c.CacheBackend == backend {
			backendValid = true
			break
		}
	}
	if !backendValid {
		errors = append(errors, fmt.Sprintf("invalid cache backend: %s (valid: %s)",
			c.CacheBackend, strings.Join(validBackends, ", ")))
	}
	if c.CacheEnabled {
		if c.CacheTTL < time.Minute {
			errors = append(errors, "cache TTL must be at least 1 minute")
		}
		if c.CacheNegativeTTL < time.Minute {
			errors = append(errors, "negative cache TTL must be at least 1 minute")
		}
	}
	if c.CacheMaxSize < 1 {
		errors = append(errors, "cache max size must be at least 1")
	}

	// Валидация NCBI
	if c.NCBIBaseURL == "" {
		errors = append(errors, "NCBI base URL is required")
	}
	if c.NCBIRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("NCBI rate limit must be positive, got %g", c.NCBIRateLimit))
	}
	if c.NCBITimeout < time.Second {
		errors = append(errors, "NCBI timeout must be at least 1 second")
	}

	// Валидация LLM
	if c.OpenRouterModel == "" {
		errors = append(errors, "OpenRouter model is required")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errors = append(errors, fmt.Sprintf("LLM temperature must be in [0, 2], got %g", c.LLMTemperature))
	}
	if c.LLMMaxTokens < 1 {
		errors = append(errors, "LLM max tokens must be at least 1")
	}
	if c.AITimeout < time.Second {
		errors = append(errors, "AI timeout must be at least 1 second")
	}

	// Валидация стратегии агрегации
	validStrategies := []string{"first_success", "majority"}
	if c.AggregationStrategy != "" {
		valid := false
		for _, strategy := range validStrategies {
			if c.AggregationStrategy == strategy {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid aggregation strategy: %s (valid: %s)",
				c.AggregationStrategy, strings.Join(validStrategies, ", ")))
		}
	}

	// Валидация эмбеддингов
	if c.EmbeddingsEnabled {
		if c.EmbeddingsBaseURL == "" {
			errors = append(errors, "embeddings base URL is required when embeddings are enabled")
		}
		if c.EmbeddingsModel == "" {
			errors = append(errors, "embeddings model is required when embeddings are enabled")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	thresholds := normalization.DefaultThresholds()

	return &Config{
		Port:                 "8080",
		TermDatabasePath:     "terms.db",
		CacheDatabasePath:    "cache.db",
		ServiceDatabasePath:  "service.db",
		MaxOpenConns:         10,
		MaxIdleConns:         3,
		ConnMaxLifetime:      5 * time.Minute,
		LogLevel:             "INFO",
		LogBufferSize:        100,
		ExactThreshold:       thresholds.Exact,
		AuthorityThreshold:   thresholds.Authority,
		FuzzyThreshold:       thresholds.Fuzzy,
		SemanticThreshold:    thresholds.Semantic,
		LLMThreshold:         thresholds.LLM,
		FuzzyFloor:           normalization.DefaultFuzzyFloor,
		FuzzyTopK:            normalization.DefaultFuzzyTopK,
		SemanticTopK:         normalization.DefaultSemanticTopK,
		CacheEnabled:         true,
		CacheBackend:         "memory",
		CacheTTL:             normalization.DefaultCacheTTL,
		CacheNegativeTTL:     normalization.DefaultNegativeCacheTTL,
		CacheMaxSize:         normalization.DefaultCacheMaxSize,
		NCBIBaseURL:          "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		NCBITool:             "bionorm",
		NCBIRateLimit:        0.34,
		NCBITimeout:          normalization.DefaultAuthorityTimeout,
		OpenRouterBaseURL:    "https://openrouter.ai/api/v1",
		OpenRouterModel:      "deepseek/deepseek-chat",
		LLMTemperature:       0.1,
		LLMMaxTokens:         1000,
		AITimeout:            normalization.DefaultLLMTimeout,
		MultiProviderEnabled: false,
		AggregationStrategy:  "first_success",
		EmbeddingsEnabled:    false,
		EmbeddingsBaseURL:    "https://openrouter.ai/api/v1",
		EmbeddingsModel:      "openai/text-embedding-ada-002",
	}
}
