package normalization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category категория нормализуемого биомедицинского термина
type Category string

const (
	CategoryOrganism Category = "organism"
	CategoryDisease  Category = "disease"
	CategoryDataType Category = "data_type"
)

// AllCategories возвращает все поддерживаемые категории
func AllCategories() []Category {
	return []Category{CategoryOrganism, CategoryDisease, CategoryDataType}
}

// ParseCategory разбирает строку в категорию
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryOrganism:
		return CategoryOrganism, nil
	case CategoryDisease:
		return CategoryDisease, nil
	case CategoryDataType:
		return CategoryDataType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Valid проверяет что категория одна из поддерживаемых
func (c Category) Valid() bool {
	switch c {
	case CategoryOrganism, CategoryDisease, CategoryDataType:
		return true
	}
	return false
}

// Strategy стратегия сопоставления в каскаде
type Strategy string

const (
	StrategyExact     Strategy = "exact"
	StrategyAuthority Strategy = "authority"
	StrategyFuzzy     Strategy = "fuzzy"
	StrategySemantic  Strategy = "semantic"
	StrategyLLM       Strategy = "llm"
)

// StrategyOrder фиксированный порядок каскада: от дешевых и детерминированных
// стратегий к дорогим и вероятностным. Порядок является требованием корректности.
var StrategyOrder = []Strategy{
	StrategyExact,
	StrategyAuthority,
	StrategyFuzzy,
	StrategySemantic,
	StrategyLLM,
}

// rank возвращает позицию стратегии в каскаде (для разрешения ничьих)
func (s Strategy) rank() int {
	for i, st := range StrategyOrder {
		if st == s {
			return i
		}
	}
	return len(StrategyOrder)
}

// Status статус результата нормализации
type Status string

const (
	// StatusResolved лучший кандидат стратегии достиг её порога
	StatusResolved Status = "resolved"
	// StatusUncertain ни одна стратегия не достигла порога, но кандидаты есть
	StatusUncertain Status = "uncertain"
	// StatusUnresolved ни одного кандидата не найдено; валидный терминальный исход
	StatusUnresolved Status = "unresolved"
)

// Ошибки нормализации. Фатальна только ErrInvalidCategory (и ErrEmptyTerm как
// её аналог для пустого ввода): они отклоняют запрос до запуска каскада.
// Все остальные сбои деградируют до пустого списка кандидатов.
var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyTerm       = errors.New("empty term after cleaning")
)

// Request запрос на нормализацию. Неизменяем после создания.
type Request struct {
	RawText  string   `json:"raw_text"`
	Category Category `json:"category"`
	Context  string   `json:"context,omitempty"`
}

// NewRequest создает запрос и валидирует его
func NewRequest(rawText string, category Category, context string) (Request, error) {
	req := Request{RawText: rawText, Category: category, Context: context}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate проверяет ограничения запроса
func (r Request) Validate() error {
	if !r.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(r.Category))
	}
	if strings.TrimSpace(r.RawText) == "" {
		return ErrEmptyTerm
	}
	return nil
}

// Candidate кандидат нормализации, произведенный одной стратегией.
// Не мутируется после создания.
type Candidate struct {
	CanonicalID    string   `json:"canonical_id"`
	CanonicalLabel string   `json:"canonical_label"`
	Source         Strategy `json:"source_strategy"`
	Confidence     float64  `json:"confidence"`
	Synonyms       []string `json:"synonyms,omitempty"`
}

// Result результат нормализации.
// Инварианты: Status=resolved => Chosen.Confidence >= порога его стратегии;
// Status=unresolved => Candidates пуст и Chosen == nil.
type Result struct {
	Request Request `json:"request"`
	// Chosen выбранный кандидат (nil для unresolved)
	Chosen *Candidate `json:"chosen_candidate,omitempty"`
	// Candidates все собранные кандидаты в порядке стратегий каскада,
	// не в порядке убывания уверенности
	Candidates []Candidate `json:"all_candidates"`
	Status     Status      `json:"status"`
	// FromCache признак что результат отдан из кэша без запуска каскада
	FromCache  bool      `json:"from_cache,omitempty"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// CacheEntry запись кэша результатов нормализации
type CacheEntry struct {
	Key       string    `json:"key"`
	Result    *Result   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired проверяет истечение TTL записи
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// CacheKey вычисляет ключ кэша из категории и очищенного текста термина
func CacheKey(category Category, cleaned string) string {
	h := sha256.Sum256([]byte(string(category) + "|" + cleaned))
	return hex.EncodeToString(h[:])
}

// CacheStats статистика кэша
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// CacheStore хранилище кэша результатов. Реализации обязаны быть безопасными
// для конкурентного доступа; гонка записей по одному ключу разрешается по
// принципу "последняя запись побеждает".
type CacheStore interface {
	// Get возвращает неистекшую запись по ключу
	Get(key string) (*CacheEntry, bool)
	// Put сохраняет результат с заданным TTL; ошибки записи не фатальны
	Put(key string, result *Result, ttl time.Duration)
	// Stats возвращает счетчики кэша
	Stats() CacheStats
}

// Query очищенный запрос, передаваемый матчерам каскада
type Query struct {
	// Text очищенный текст (нижний регистр, схлопнутые пробелы, без диакритики)
	Text string
	// Raw исходный текст запроса
	Raw      string
	Category Category
	// Context опциональная свободная подсказка (используется LLM-стратегией)
	Context string
}

// Matcher единый интерфейс стратегии сопоставления в каскаде.
// Match возвращает ноль и более кандидатов; ошибка означает недоступность
// стратегии и обрабатывается оркестратором как пустой список.
type Matcher interface {
	Strategy() Strategy
	Match(ctx context.Context, query Query) ([]Candidate, error)
}

// MatchQuality качество совпадения во внешнем справочнике
type MatchQuality string

const (
	// QualityExact каноническое имя совпало с запросом
	QualityExact MatchQuality = "exact"
	// QualitySynonym запрос совпал с известным синонимом
	QualitySynonym MatchQuality = "synonym"
	// QualityPartial запрос является частью имени или синонима
	QualityPartial MatchQuality = "partial"
	// QualityAmbiguous справочник вернул запись без явного совпадения имен
	QualityAmbiguous MatchQuality = "ambiguous"
)

// AuthorityMatch результат поиска во внешнем контролируемом словаре
type AuthorityMatch struct {
	ID       string
	Label    string
	Quality  MatchQuality
	Synonyms []string
}

// AuthorityLookup коллаборатор: внешний справочник канонических терминов
// (таксономия организмов, тезаурус заболеваний). Реализации сами отвечают за
// ограничение частоты запросов.
type AuthorityLookup interface {
	// Lookup возвращает nil, nil если термин не найден
	Lookup(ctx context.Context, text string, category Category) (*AuthorityMatch, error)
}

// EmbeddingProvider коллаборатор: поставщик векторных представлений текста
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionProvider коллаборатор: языковая модель для резервной стратегии
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
	Enabled() bool
}
