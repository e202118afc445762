package normalization

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultAuthorityTimeout предельное время одного обращения к
// авторитетному источнику
const DefaultAuthorityTimeout = 10 * time.Second

// QualityConfidence отображение качества совпадения в уверенность
type QualityConfidence map[MatchQuality]float64

// DefaultQualityConfidence градации уверенности авторитетной стадии:
// точное совпадение имени, совпадение по синониму, частичное совпадение
// и неоднозначное попадание (первый результат источника)
func DefaultQualityConfidence() QualityConfidence {
	return QualityConfidence{
		QualityExact:     1.0,
		QualitySynonym:   0.95,
		QualityPartial:   0.85,
		QualityAmbiguous: 0.8,
	}
}

// AuthorityMatcher стратегия авторитетных источников: поиск термина в
// официальных номенклатурах (NCBI Taxonomy для организмов, MeSH для
// заболеваний). Источники регистрируются по категориям; категория без
// источника пропускает стадию
type AuthorityMatcher struct {
	lookups map[Category]AuthorityLookup
	quality QualityConfidence
	timeout time.Duration
	retry   RetryConfig
	logger  *slog.Logger
}

// NewAuthorityMatcher создает матчер без зарегистрированных источников
func NewAuthorityMatcher() *AuthorityMatcher {
	return &AuthorityMatcher{
		lookups: make(map[Category]AuthorityLookup),
		quality: DefaultQualityConfidence(),
		timeout: DefaultAuthorityTimeout,
		retry:   SingleRetryConfig(),
		logger:  slog.Default().With("component", "authority_matcher"),
	}
}

// Register привязывает источник к категории. Повторная регистрация
// заменяет предыдущий источник
func (m *AuthorityMatcher) Register(category Category, lookup AuthorityLookup) {
	if lookup == nil {
		return
	}
	m.lookups[category] = lookup
}

// SetTimeout задает предельное время одного обращения к источнику
func (m *AuthorityMatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		m.timeout = timeout
	}
}

// Strategy возвращает идентификатор стратегии
func (m *AuthorityMatcher) Strategy() Strategy {
	return StrategyAuthority
}

// Match запрашивает авторитетный источник категории. Отсутствие
// источника или совпадения дает пустой результат без ошибки,
// временные сбои повторяются не более одного раза
func (m *AuthorityMatcher) Match(ctx context.Context, query Query) ([]Candidate, error) {
	lookup, found := m.lookups[query.Category]
	if !found {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var match *AuthorityMatch
	err := RetryWithLog(callCtx, m.logger, "authority lookup", m.retry, func() error {
		result, lookupErr := lookup.Lookup(callCtx, query.Text, query.Category)
		if lookupErr != nil {
			return lookupErr
		}
		match = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("authority lookup failed for %q: %w", query.Text, err)
	}
	if match == nil {
		return nil, nil
	}

	confidence, known := m.quality[match.Quality]
	if !known {
		confidence = m.quality[QualityAmbiguous]
	}

	m.logger.Debug("authority match found",
		"text", query.Text,
		"label", match.Label,
		"quality", match.Quality,
		"confidence", confidence)

	return []Candidate{{
		CanonicalID:    match.ID,
		CanonicalLabel: match.Label,
		Source:         StrategyAuthority,
		Confidence:     confidence,
		Synonyms:       match.Synonyms,
	}}, nil
}
