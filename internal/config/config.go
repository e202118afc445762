package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"bionorm/database"
	"bionorm/normalization"
)

// Config конфигурация сервиса нормализации
type Config struct {
	// Сервер
	Port string `json:"port"`

	// Базы данных
	TermDatabasePath    string `json:"term_database_path"`
	CacheDatabasePath   string `json:"cache_database_path"`
	ServiceDatabasePath string `json:"service_database_path"`

	// Connection pooling
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Логирование
	LogLevel      string `json:"log_level"`
	LogBufferSize int    `json:"log_buffer_size"`

	// Пороги каскада
	ExactThreshold     float64 `json:"exact_threshold"`
	AuthorityThreshold float64 `json:"authority_threshold"`
	FuzzyThreshold     float64 `json:"fuzzy_threshold"`
	SemanticThreshold  float64 `json:"semantic_threshold"`
	LLMThreshold       float64 `json:"llm_threshold"`

	// Нечеткий и семантический поиск
	FuzzyFloor   float64 `json:"fuzzy_floor"`
	FuzzyTopK    int     `json:"fuzzy_top_k"`
	SemanticTopK int     `json:"semantic_top_k"`

	// Кэш результатов
	CacheEnabled     bool          `json:"cache_enabled"`
	CacheBackend     string        `json:"cache_backend"` // memory | sqlite
	CacheTTL         time.Duration `json:"cache_ttl"`
	CacheNegativeTTL time.Duration `json:"cache_negative_ttl"`
	CacheMaxSize     int           `json:"cache_max_size"`

	// NCBI E-utilities
	NCBIBaseURL   string        `json:"ncbi_base_url"`
	NCBIAPIKey    string        `json:"ncbi_api_key"`
	NCBIEmail     string        `json:"ncbi_email"`
	NCBITool      string        `json:"ncbi_tool"`
	NCBIRateLimit float64       `json:"ncbi_rate_limit"`
	NCBITimeout   time.Duration `json:"ncbi_timeout"`

	// LLM через OpenRouter
	OpenRouterAPIKey  string        `json:"openrouter_api_key"`
	OpenRouterBaseURL string        `json:"openrouter_base_url"`
	OpenRouterModel   string        `json:"openrouter_model"`
	LLMTemperature    float64       `json:"llm_temperature"`
	LLMMaxTokens      int           `json:"llm_max_tokens"`
	AITimeout         time.Duration `json:"ai_timeout"`

	// Мульти-провайдерная нормализация: запасные модели опрашиваются
	// через тот же шлюз OpenRouter
	MultiProviderEnabled bool     `json:"multi_provider_enabled"`
	AggregationStrategy  string   `json:"aggregation_strategy"`
	FallbackModels       []string `json:"fallback_models,omitempty"`

	// Эмбеддинги для семантической стратегии
	EmbeddingsEnabled bool   `json:"embeddings_enabled"`
	EmbeddingsBaseURL string `json:"embeddings_base_url"`
	EmbeddingsAPIKey  string `json:"embeddings_api_key"`
	EmbeddingsModel   string `json:"embeddings_model"`

	// Идентификаторы репозиториев данных; пробрасываются в вывод без интерпретации
	Repositories []string `json:"repositories,omitempty"`
}

// LoadConfig загружает конфигурацию из сервисной БД (если serviceDB передан) или из переменных окружения
func LoadConfig(serviceDB ...*database.ServiceDB) (*Config, error) {
	// Пытаемся загрузить из БД, если передан serviceDB
	if len(serviceDB) > 0 && serviceDB[0] != nil {
		configJSONStr, found, err := serviceDB[0].LoadConfig()
		if err == nil && found {
			var cfgJSON configJSON
			if err := json.Unmarshal([]byte(configJSONStr), &cfgJSON); err == nil {
				config := cfgJSON.toConfig()

				log.Printf("Config loaded from service database")
				if err := config.Validate(); err != nil {
					log.Printf("Invalid config from DB, falling back to env: %v", err)
				} else {
					return config, nil
				}
			} else {
				log.Printf("Failed to parse config from DB, falling back to env: %v", err)
			}
		}
	}

	// Fallback на переменные окружения
	config := &Config{
		// Сервер
		Port: getEnv("SERVER_PORT", "8080"),

		// Базы данных
		TermDatabasePath:    getEnv("TERM_DATABASE_PATH", "terms.db"),
		CacheDatabasePath:   getEnv("CACHE_DATABASE_PATH", "cache.db"),
		ServiceDatabasePath: getEnv("SERVICE_DATABASE_PATH", "service.db"),

		// Connection pooling
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 3),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		// Логирование
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogBufferSize: getEnvInt("LOG_BUFFER_SIZE", 100),

		// Пороги каскада
		ExactThreshold:     getEnvFloat("EXACT_THRESHOLD", normalization.DefaultThresholds().Exact),
		AuthorityThreshold: getEnvFloat("AUTHORITY_THRESHOLD", normalization.DefaultThresholds().Authority),
		FuzzyThreshold:     getEnvFloat("FUZZY_THRESHOLD", normalization.DefaultThresholds().Fuzzy),
		SemanticThreshold:  getEnvFloat("SEMANTIC_THRESHOLD", normalization.DefaultThresholds().Semantic),
		LLMThreshold:       getEnvFloat("LLM_THRESHOLD", normalization.DefaultThresholds().LLM),

		// Нечеткий и семантический поиск
		FuzzyFloor:   getEnvFloat("FUZZY_FLOOR", normalization.DefaultFuzzyFloor),
		FuzzyTopK:    getEnvInt("FUZZY_TOP_K", normalization.DefaultFuzzyTopK),
		SemanticTopK: getEnvInt("SEMANTIC_TOP_K", normalization.DefaultSemanticTopK),

		// Кэш результатов
		CacheEnabled:     getEnv("CACHE_ENABLED", "true") == "true",
		CacheBackend:     getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:         getEnvDuration("CACHE_TTL", normalization.DefaultCacheTTL),
		CacheNegativeTTL: getEnvDuration("CACHE_NEGATIVE_TTL", normalization.DefaultNegativeCacheTTL),
		CacheMaxSize:     getEnvInt("CACHE_MAX_SIZE", normalization.DefaultCacheMaxSize),

		// NCBI E-utilities
		NCBIBaseURL:   getEnv("NCBI_BASE_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"),
		NCBIAPIKey:    os.Getenv("NCBI_API_KEY"),
		NCBIEmail:     os.Getenv("NCBI_EMAIL"),
		NCBITool:      getEnv("NCBI_TOOL", "bionorm"),
		NCBIRateLimit: getEnvFloat("NCBI_RATE_LIMIT", 0.34),
		NCBITimeout:   getEnvDuration("NCBI_TIMEOUT", normalization.DefaultAuthorityTimeout),

		// LLM через OpenRouter
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
		LLMTemperature:    getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:      getEnvInt("LLM_MAX_TOKENS", 1000),
		AITimeout:         getEnvDuration("AI_TIMEOUT", normalization.DefaultLLMTimeout),

		// Мульти-провайдерная нормализация
		MultiProviderEnabled: getEnv("MULTI_PROVIDER_ENABLED", "false") == "true",
		AggregationStrategy:  getEnv("AGGREGATION_STRATEGY", "first_success"),
		FallbackModels:       splitList(os.Getenv("OPENROUTER_FALLBACK_MODELS")),

		// Эмбеддинги
		EmbeddingsEnabled: getEnv("EMBEDDINGS_ENABLED", "false") == "true",
		EmbeddingsBaseURL: getEnv("EMBEDDINGS_BASE_URL", "https://openrouter.ai/api/v1"),
		EmbeddingsAPIKey:  os.Getenv("EMBEDDINGS_API_KEY"),
		EmbeddingsModel:   getEnv("EMBEDDINGS_MODEL", "openai/text-embedding-ada-002"),

		// Репозитории
		Repositories: splitList(os.Getenv("REPOSITORIES")),
	}

	// Валидация
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// CascadeThresholds возвращает пороги каскада в типах ядра нормализации
func (c *Config) CascadeThresholds() normalization.Thresholds {
	return normalization.Thresholds{
		Exact:     c.ExactThreshold,
		Authority: c.AuthorityThreshold,
		Fuzzy:     c.FuzzyThreshold,
		Semantic:  c.SemanticThreshold,
		LLM:       c.LLMThreshold,
	}
}

// NormalizerConfig собирает конфигурацию оркестратора каскада
func (c *Config) NormalizerConfig() normalization.NormalizerConfig {
	return normalization.NormalizerConfig{
		Thresholds:       c.CascadeThresholds(),
		CacheEnabled:     c.CacheEnabled,
		CacheTTL:         c.CacheTTL,
		NegativeCacheTTL: c.CacheNegativeTTL,
	}
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// splitList разбирает список значений через запятую
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// configJSON структура для сериализации конфигурации в JSON
type configJSON struct {
	Port                 string   `json:"port"`
	TermDatabasePath     string   `json:"term_database_path"`
	CacheDatabasePath    string   `json:"cache_database_path"`
	ServiceDatabasePath  string   `json:"service_database_path"`
	MaxOpenConns         int      `json:"max_open_conns"`
	MaxIdleConns         int      `json:"max_idle_conns"`
	ConnMaxLifetime      string   `json:"conn_max_lifetime"` // time.Duration как строка
	LogLevel             string   `json:"log_level"`
	LogBufferSize        int      `json:"log_buffer_size"`
	ExactThreshold       float64  `json:"exact_threshold"`
	AuthorityThreshold   float64  `json:"authority_threshold"`
	FuzzyThreshold       float64  `json:"fuzzy_threshold"`
	SemanticThreshold    float64  `json:"semantic_threshold"`
	LLMThreshold         float64  `json:"llm_threshold"`
	FuzzyFloor           float64  `json:"fuzzy_floor"`
	FuzzyTopK            int      `json:"fuzzy_top_k"`
	SemanticTopK         int      `json:"semantic_top_k"`
	CacheEnabled         bool     `json:"cache_enabled"`
	CacheBackend         string   `json:"cache_backend"`
	CacheTTL             string   `json:"cache_ttl"`          // time.Duration как строка
	CacheNegativeTTL     string   `json:"cache_negative_ttl"` // time.Duration как строка
	CacheMaxSize         int      `json:"cache_max_size"`
	NCBIBaseURL          string   `json:"ncbi_base_url"`
	NCBIAPIKey           string   `json:"ncbi_api_key"`
	NCBIEmail            string   `json:"ncbi_email"`
	NCBITool             string   `json:"ncbi_tool"`
	NCBIRateLimit        float64  `json:"ncbi_rate_limit"`
	NCBITimeout          string   `json:"ncbi_timeout"` // time.Duration как строка
	OpenRouterAPIKey     string   `json:"openrouter_api_key"`
	OpenRouterBaseURL    string   `json:"openrouter_base_url"`
	OpenRouterModel      string   `json:"openrouter_model"`
	LLMTemperature       float64  `json:"llm_temperature"`
	LLMMaxTokens         int      `json:"llm_max_tokens"`
	AITimeout            string   `json:"ai_timeout"` // time.Duration как строка
	MultiProviderEnabled bool     `json:"multi_provider_enabled"`
	AggregationStrategy  string   `json:"aggregation_strategy"`
	FallbackModels       []string `json:"fallback_models,omitempty"`
	EmbeddingsEnabled    bool     `json:"embeddings_enabled"`
	EmbeddingsBaseURL    string   `json:"embeddings_base_url"`
	EmbeddingsAPIKey     string   `json:"embeddings_api_key"`
	EmbeddingsModel      string   `json:"embeddings_model"`
	Repositories         []string `json:"repositories,omitempty"`
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// toConfig преобразует сериализованную форму в Config
func (j *configJSON) toConfig() *Config {
	return &Config{
		Port:                 j.Port,
		TermDatabasePath:     j.TermDatabasePath,
		CacheDatabasePath:    j.CacheDatabasePath,
		ServiceDatabasePath:  j.ServiceDatabasePath,
		MaxOpenConns:         j.MaxOpenConns,
		MaxIdleConns:         j.MaxIdleConns,
		ConnMaxLifetime:      parseDurationOr(j.ConnMaxLifetime, 5*time.Minute),
		LogLevel:             j.LogLevel,
		LogBufferSize:        j.LogBufferSize,
		ExactThreshold:       j.ExactThreshold,
		AuthorityThreshold:   j.AuthorityThreshold,
		FuzzyThreshold:       j.FuzzyThreshold,
		SemanticThreshold:    j.SemanticThreshold,
		LLMThreshold:         j.LLMThreshold,
		FuzzyFloor:           j.FuzzyFloor,
		FuzzyTopK:            j.FuzzyTopK,
		SemanticTopK:         j.SemanticTopK,
		CacheEnabled:         j.CacheEnabled,
		CacheBackend:         j.CacheBackend,
		CacheTTL:             parseDurationOr(j.CacheTTL, normalization.DefaultCacheTTL),
		CacheNegativeTTL:     parseDurationOr(j.CacheNegativeTTL, normalization.DefaultNegativeCacheTTL),
		CacheMaxSize:         j.CacheMaxSize,
		NCBIBaseURL:          j.NCBIBaseURL,
		NCBIAPIKey:           j.NCBIAPIKey,
		NCBIEmail:            j.NCBIEmail,
		NCBITool:             j.NCBITool,
		NCBIRateLimit:        j.NCBIRateLimit,
		NCBITimeout:          parseDurationOr(j.NCBITimeout, normalization.DefaultAuthorityTimeout),
		OpenRouterAPIKey:     j.OpenRouterAPIKey,
		OpenRouterBaseURL:    j.OpenRouterBaseURL,
		OpenRouterModel:      j.OpenRouterModel,
		LLMTemperature:       j.LLMTemperature,
		LLMMaxTokens:         j.LLMMaxTokens,
		AITimeout:            parseDurationOr(j.AITimeout, normalization.DefaultLLMTimeout),
		MultiProviderEnabled: j.MultiProviderEnabled,
		AggregationStrategy:  j.AggregationStrategy,
		FallbackModels:       j.FallbackModels,
		EmbeddingsEnabled:    j.EmbeddingsEnabled,
		EmbeddingsBaseURL:    j.EmbeddingsBaseURL,
		EmbeddingsAPIKey:     j.EmbeddingsAPIKey,
		EmbeddingsModel:      j.EmbeddingsModel,
		Repositories:         j.Repositories,
	}
}

// fromConfig преобразует Config в сериализуемую форму
func fromConfig(cfg *Config) *configJSON {
	return &configJSON{
		Port:                 cfg.Port,
		TermDatabasePath:     cfg.TermDatabasePath,
		CacheDatabasePath:    cfg.CacheDatabasePath,
		ServiceDatabasePath:  cfg.ServiceDatabasePath,
		MaxOpenConns:         cfg.MaxOpenConns,
		MaxIdleConns:         cfg.MaxIdleConns,
		ConnMaxLifetime:      cfg.ConnMaxLifetime.String(),
		LogLevel:             cfg.LogLevel,
		LogBufferSize:        cfg.LogBufferSize,
		ExactThreshold:       cfg.ExactThreshold,
		AuthorityThreshold:   cfg.AuthorityThreshold,
		FuzzyThreshold:       cfg.FuzzyThreshold,
		SemanticThreshold:    cfg.SemanticThreshold,
		LLMThreshold:         cfg.LLMThreshold,
		FuzzyFloor:           cfg.FuzzyFloor,
		FuzzyTopK:            cfg.FuzzyTopK,
		SemanticTopK:         cfg.SemanticTopK,
		CacheEnabled:         cfg.CacheEnabled,
		CacheBackend:         cfg.CacheBackend,
		CacheTTL:             cfg.CacheTTL.String(),
		CacheNegativeTTL:     cfg.CacheNegativeTTL.String(),
		CacheMaxSize:         cfg.CacheMaxSize,
		NCBIBaseURL:          cfg.NCBIBaseURL,
		NCBIAPIKey:           cfg.NCBIAPIKey,
		NCBIEmail:            cfg.NCBIEmail,
		NCBITool:             cfg.NCBITool,
		NCBIRateLimit:        cfg.NCBIRateLimit,
		NCBITimeout:          cfg.NCBITimeout.String(),
		OpenRouterAPIKey:     cfg.OpenRouterAPIKey,
		OpenRouterBaseURL:    cfg.OpenRouterBaseURL,
		OpenRouterModel:      cfg.OpenRouterModel,
		LLMTemperature:       cfg.LLMTemperature,
		LLMMaxTokens:         cfg.LLMMaxTokens,
		AITimeout:            cfg.AITimeout.String(),
		MultiProviderEnabled: cfg.MultiProviderEnabled,
		AggregationStrategy:  cfg.AggregationStrategy,
		FallbackModels:       cfg.FallbackModels,
		EmbeddingsEnabled:    cfg.EmbeddingsEnabled,
		EmbeddingsBaseURL:    cfg.EmbeddingsBaseURL,
		EmbeddingsAPIKey:     cfg.EmbeddingsAPIKey,
		EmbeddingsModel:      cfg.EmbeddingsModel,
		Repositories:         cfg.Repositories,
	}
}

// SaveConfig сохраняет конфигурацию в сервисную БД
func SaveConfig(cfg *Config, serviceDB *database.ServiceDB) error {
	return SaveConfigWithHistory(cfg, serviceDB, "")
}

// SaveConfigWithHistory сохраняет конфигурацию в сервисную БД с комментарием к ревизии
func SaveConfigWithHistory(cfg *Config, serviceDB *database.ServiceDB, comment string) error {
	if serviceDB == nil {
		return fmt.Errorf("serviceDB is nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	configJSONBytes, err := json.Marshal(fromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := serviceDB.SaveConfig(string(configJSONBytes), comment); err != nil {
		return fmt.Errorf("failed to save config to database: %w", err)
	}

	log.Printf("Config saved to service database")
	return nil
}
