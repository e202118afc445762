package normalization

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bionorm/normalization/algorithms"
)

const (
	// DefaultCacheTTL время жизни кэшированных разрешенных результатов
	DefaultCacheTTL = 24 * time.Hour

	// DefaultNegativeCacheTTL сокращенное время жизни для uncertain и
	// unresolved результатов: источники и модели со временем улучшаются
	DefaultNegativeCacheTTL = 1 * time.Hour
)

// Thresholds пороги уверенности по стратегиям. Лучший кандидат стадии,
// достигший порога своей стратегии, разрешает запрос и останавливает каскад
type Thresholds struct {
	Exact     float64 `json:"exact"`
	Authority float64 `json:"authority"`
	Fuzzy     float64 `json:"fuzzy"`
	Semantic  float64 `json:"semantic"`
	LLM       float64 `json:"llm"`
}

// DefaultThresholds пороги по умолчанию. Порог словарной стадии ниже 1.0,
// чтобы курируемые расширения (0.9) и вхождения вариантов (0.8) разрешали
// запрос без обращения к внешним источникам
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:     0.8,
		Authority: 0.7,
		Fuzzy:     0.85,
		Semantic:  0.75,
		LLM:       0.5,
	}
}

// For возвращает порог указанной стратегии
func (t Thresholds) For(strategy Strategy) float64 {
	switch strategy {
	case StrategyExact:
		return t.Exact
	case StrategyAuthority:
		return t.Authority
	case StrategyFuzzy:
		return t.Fuzzy
	case StrategySemantic:
		return t.Semantic
	case StrategyLLM:
		return t.LLM
	}
	return 1.0
}

// Validate проверяет что все пороги лежат в диапазоне (0, 1]
func (t Thresholds) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"exact", t.Exact},
		{"authority", t.Authority},
		{"fuzzy", t.Fuzzy},
		{"semantic", t.Semantic},
		{"llm", t.LLM},
	}
	for _, c := range checks {
		if c.value <= 0 || c.value > 1 {
			return fmt.Errorf("threshold %s must be in (0, 1], got %.4f", c.name, c.value)
		}
	}
	return nil
}

// NormalizerConfig конфигурация оркестратора каскада
type NormalizerConfig struct {
	Thresholds       Thresholds    `json:"thresholds"`
	CacheEnabled     bool          `json:"cache_enabled"`
	CacheTTL         time.Duration `json:"cache_ttl"`
	NegativeCacheTTL time.Duration `json:"negative_cache_ttl"`
}

// DefaultNormalizerConfig конфигурация по умолчанию
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		Thresholds:       DefaultThresholds(),
		CacheEnabled:     true,
		CacheTTL:         DefaultCacheTTL,
		NegativeCacheTTL: DefaultNegativeCacheTTL,
	}
}

// Validate проверяет конфигурацию оркестратора
func (c NormalizerConfig) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive when cache is enabled, got %v", c.CacheTTL)
	}
	if c.NegativeCacheTTL < 0 {
		return fmt.Errorf("negative_cache_ttl must not be negative, got %v", c.NegativeCacheTTL)
	}
	return nil
}

// NormalizerStats счетчики работы оркестратора
type NormalizerStats struct {
	Total      int64              `json:"total"`
	Resolved   int64              `json:"resolved"`
	Uncertain  int64              `json:"uncertain"`
	Unresolved int64              `json:"unresolved"`
	CacheHits  int64              `json:"cache_hits"`
	ByStrategy map[Strategy]int64 `json:"by_strategy"`
}

// Normalizer оркестратор каскада нормализации. Прогоняет запрос через
// стратегии в фиксированном порядке (словарь, авторитетные источники,
// нечеткий поиск, семантический поиск, LLM) и останавливается на первой
// стратегии, чей лучший кандидат достиг порога. Проверка порога выполняется
// до запуска следующей стратегии.
//
// Сбой отдельной стратегии (ошибка или паника) деградирует до пустого
// списка кандидатов и не прерывает каскад. Все результаты, включая
// неразрешенные, кэшируются.
//
// Потокобезопасен: допускает конкурентные вызовы Resolve
type Normalizer struct {
	config   NormalizerConfig
	matchers []Matcher
	cache    CacheStore
	logger   *slog.Logger

	mu         sync.Mutex
	total      int64
	resolved   int64
	uncertain  int64
	unresolved int64
	cacheHits  int64
	byStrategy map[Strategy]int64
}

// NewNormalizer создает оркестратор. Матчеры упорядочиваются по позиции
// их стратегии в каскаде; nil-матчеры игнорируются. Кэш опционален:
// nil отключает кэширование независимо от конфигурации
func NewNormalizer(config NormalizerConfig, cache CacheStore, matchers ...Matcher) (*Normalizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalizer config: %w", err)
	}

	ordered := make([]Matcher, 0, len(matchers))
	for _, strategy := range StrategyOrder {
		for _, m := range matchers {
			if m != nil && m.Strategy() == strategy {
				ordered = append(ordered, m)
			}
		}
	}

	return &Normalizer{
		config:     config,
		matchers:   ordered,
		cache:      cache,
		logger:     slog.Default().With("component", "normalizer"),
		byStrategy: make(map[Strategy]int64),
	}, nil
}

// Resolve нормализует один термин. Единственные фатальные ошибки:
// неподдерживаемая категория и пустой термин (в том числе пустой после
// очистки), а также отмена контекста между стадиями
func (n *Normalizer) Resolve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	cleaned := algorithms.Clean(req.RawText)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyTerm, req.RawText)
	}

	key := CacheKey(req.Category, cleaned)
	if n.cacheEnabled() {
		if entry, found := n.cache.Get(key); found && entry.Result != nil {
			cached := *entry.Result
			cached.Request = req
			cached.FromCache = true
			cached.ElapsedMs = time.Since(start).Milliseconds()
			n.recordCacheHit()
			return &cached, nil
		}
	}

	query := Query{
		Text:     cleaned,
		Raw:      req.RawText,
		Category: req.Category,
		Context:  req.Context,
	}

	result, err := n.runCascade(ctx, req, query)
	if err != nil {
		return nil, err
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	result.ResolvedAt = time.Now().UTC()

	if n.cacheEnabled() {
		ttl := n.config.CacheTTL
		if result.Status != StatusResolved {
			ttl = n.config.NegativeCacheTTL
		}
		n.cache.Put(key, result, ttl)
	}

	n.recordOutcome(result)
	return result, nil
}

// runCascade прогоняет запрос через стратегии в фиксированном порядке
func (n *Normalizer) runCascade(ctx context.Context, req Request, query Query) (*Result, error) {
	all := make([]Candidate, 0, 8)

	for _, matcher := range n.matchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates := n.runMatcher(ctx, matcher, query)
		for _, c := range candidates {
			if c.Confidence > 0 {
				all = append(all, c)
			}
		}

		// Проверка порога до запуска следующей стратегии
		top := bestOf(candidates)
		threshold := n.config.Thresholds.For(matcher.Strategy())
		if top != nil && top.Confidence >= threshold {
			n.logger.Debug("term resolved",
				"text", query.Text,
				"category", query.Category,
				"strategy", matcher.Strategy(),
				"label", top.CanonicalLabel,
				"confidence", top.Confidence)
			return &Result{
				Request:    req,
				Chosen:     top,
				Candidates: all,
				Status:     StatusResolved,
			}, nil
		}
	}

	// Каскад исчерпан: выбираем лучшего глобального кандидата.
	// Строгое сравнение сохраняет приоритет более ранней стратегии при ничьей
	best := bestOf(all)
	if best == nil {
		n.logger.Debug("term unresolved",
			"text", query.Text,
			"category", query.Category)
		return &Result{
			Request:    req,
			Candidates: []Candidate{},
			Status:     StatusUnresolved,
		}, nil
	}

	n.logger.Debug("term uncertain",
		"text", query.Text,
		"category", query.Category,
		"best_label", best.CanonicalLabel,
		"best_confidence", best.Confidence,
		"best_strategy", best.Source)
	return &Result{
		Request:    req,
		Chosen:     best,
		Candidates: all,
		Status:     StatusUncertain,
	}, nil
}

// runMatcher запускает одну стратегию с изоляцией сбоев: ошибка или
// паника стратегии дает пустой список кандидатов
func (n *Normalizer) runMatcher(ctx context.Context, matcher Matcher, query Query) (candidates []Candidate) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("matcher panicked",
				"strategy", matcher.Strategy(),
				"text", query.Text,
				"panic", r)
			candidates = nil
		}
	}()

	stageStart := time.Now()
	candidates, err := matcher.Match(ctx, query)
	if err != nil {
		n.logger.Warn("matcher failed, continuing cascade",
			"strategy", matcher.Strategy(),
			"text", query.Text,
			"elapsed_ms", time.Since(stageStart).Milliseconds(),
			"error", err)
		return nil
	}
	return candidates
}

// bestOf возвращает кандидата с максимальной уверенностью.
// Строгое сравнение: при равенстве побеждает более ранний кандидат
func bestOf(candidates []Candidate) *Candidate {
	var best *Candidate
	for i := range candidates {
		if best == nil || candidates[i].Confidence > best.Confidence {
			best = &candidates[i]
		}
	}
	return best
}

func (n *Normalizer) cacheEnabled() bool {
	return n.config.CacheEnabled && n.cache != nil
}

func (n *Normalizer) recordCacheHit() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.total++
	n.cacheHits++
}

func (n *Normalizer) recordOutcome(result *Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.total++
	switch result.Status {
	case StatusResolved:
		n.resolved++
		if result.Chosen != nil {
			n.byStrategy[result.Chosen.Source]++
		}
	case StatusUncertain:
		n.uncertain++
	case StatusUnresolved:
		n.unresolved++
	}
}

// Statistics возвращает снимок счетчиков оркестратора
func (n *Normalizer) Statistics() NormalizerStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	byStrategy := make(map[Strategy]int64, len(n.byStrategy))
	for k, v := range n.byStrategy {
		byStrategy[k] = v
	}
	return NormalizerStats{
		Total:      n.total,
		Resolved:   n.resolved,
		Uncertain:  n.uncertain,
		Unresolved: n.unresolved,
		CacheHits:  n.cacheHits,
		ByStrategy: byStrategy,
	}
}

// CacheStats возвращает счетчики кэша, либо нулевую статистику если
// кэш не подключен
func (n *Normalizer) CacheStats() CacheStats {
	if n.cache == nil {
		return CacheStats{}
	}
	return n.cache.Stats()
}
