package normalization

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultSemanticTopK максимальное количество кандидатов семантической стадии
const DefaultSemanticTopK = 5

// SemanticMatcher семантическая стратегия: запрос эмбеддится тем же
// провайдером, что и индекс, затем выполняется локальный поиск по
// косинусной близости. Уверенность кандидата равна близости,
// обрезанной в диапазон [0, 1]
type SemanticMatcher struct {
	index    *SemanticIndex
	provider EmbeddingProvider
	topK     int
	retry    RetryConfig
	logger   *slog.Logger
}

// NewSemanticMatcher создает семантический матчер поверх готового индекса
func NewSemanticMatcher(index *SemanticIndex, provider EmbeddingProvider) *SemanticMatcher {
	return &SemanticMatcher{
		index:    index,
		provider: provider,
		topK:     DefaultSemanticTopK,
		retry:    SingleRetryConfig(),
		logger:   slog.Default().With("component", "semantic_matcher"),
	}
}

// SetTopK задает максимальное количество возвращаемых кандидатов
func (m *SemanticMatcher) SetTopK(k int) {
	if k > 0 {
		m.topK = k
	}
}

// Strategy возвращает идентификатор стратегии
func (m *SemanticMatcher) Strategy() Strategy {
	return StrategySemantic
}

// Match эмбеддит запрос и ищет ближайшие термины в индексе.
// Временные сбои провайдера повторяются не более одного раза
func (m *SemanticMatcher) Match(ctx context.Context, query Query) ([]Candidate, error) {
	if m.provider == nil || m.index == nil || m.index.Len() == 0 {
		return nil, nil
	}

	var vector []float32
	err := RetryWithLog(ctx, m.logger, "embed query", m.retry, func() error {
		v, embedErr := m.provider.Embed(ctx, query.Text)
		if embedErr != nil {
			return embedErr
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query %q: %w", query.Text, err)
	}

	hits := m.index.Search(query.Category, vector, m.topK)
	if len(hits) == 0 {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, Candidate{
			CanonicalID:    hit.CanonicalID,
			CanonicalLabel: hit.CanonicalLabel,
			Source:         StrategySemantic,
			Confidence:     hit.Score,
			Synonyms:       hit.Synonyms,
		})
	}

	m.logger.Debug("semantic candidates ranked",
		"text", query.Text,
		"count", len(candidates),
		"top_label", candidates[0].CanonicalLabel,
		"top_confidence", candidates[0].Confidence)
	return candidates, nil
}
