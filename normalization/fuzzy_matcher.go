package normalization

import (
	"context"
	"log/slog"
	"sort"

	"bionorm/normalization/algorithms"
)

const (
	// DefaultFuzzyFloor минимальная схожесть, ниже которой кандидат отбрасывается
	DefaultFuzzyFloor = 0.5

	// DefaultFuzzyTopK максимальное количество кандидатов нечеткой стадии
	DefaultFuzzyTopK = 5
)

// FuzzyMatcher нечеткая стратегия: строковая схожесть запроса со всеми
// известными терминами категории. Комбинирует несколько метрик
// (Левенштейн, n-граммы, Жаккар, пересечение стемм, Soundex) во
// взвешенную оценку. Работает локально, без сетевых вызовов
type FuzzyMatcher struct {
	dict    *Dictionary
	algos   *FuzzyAlgorithms
	weights SimilarityWeights
	floor   float64
	topK    int
	logger  *slog.Logger
}

// NewFuzzyMatcher создает нечеткий матчер с настройками по умолчанию
func NewFuzzyMatcher(dict *Dictionary) *FuzzyMatcher {
	return &FuzzyMatcher{
		dict:    dict,
		algos:   NewFuzzyAlgorithms(),
		weights: DefaultSimilarityWeights(),
		floor:   DefaultFuzzyFloor,
		topK:    DefaultFuzzyTopK,
		logger:  slog.Default().With("component", "fuzzy_matcher"),
	}
}

// SetFloor задает минимальный порог схожести для кандидатов
func (m *FuzzyMatcher) SetFloor(floor float64) {
	if floor > 0 {
		m.floor = floor
	}
}

// SetTopK задает максимальное количество возвращаемых кандидатов
func (m *FuzzyMatcher) SetTopK(k int) {
	if k > 0 {
		m.topK = k
	}
}

// Strategy возвращает идентификатор стратегии
func (m *FuzzyMatcher) Strategy() Strategy {
	return StrategyFuzzy
}

// Match оценивает схожесть запроса с каждым термином категории.
// Для термина берется максимум по канонической метке и всем синонимам,
// кандидаты сортируются по убыванию уверенности и обрезаются до topK
func (m *FuzzyMatcher) Match(ctx context.Context, query Query) ([]Candidate, error) {
	terms := m.dict.Terms(query.Category)
	if len(terms) == 0 {
		return nil, nil
	}

	candidates := make([]Candidate, 0, m.topK)

	for _, term := range terms {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		best := m.bestFormScore(query.Text, term)
		if best < m.floor {
			continue
		}

		candidates = append(candidates, Candidate{
			CanonicalID:    term.CanonicalID,
			CanonicalLabel: term.CanonicalLabel,
			Source:         StrategyFuzzy,
			Confidence:     best,
			Synonyms:       term.Synonyms,
		})
	}

	// Стабильная сортировка: при равной уверенности сохраняется порядок словаря
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if len(candidates) > m.topK {
		candidates = candidates[:m.topK]
	}

	if len(candidates) > 0 {
		m.logger.Debug("fuzzy candidates ranked",
			"text", query.Text,
			"count", len(candidates),
			"top_label", candidates[0].CanonicalLabel,
			"top_confidence", candidates[0].Confidence)
	}

	return candidates, nil
}

// bestFormScore возвращает максимальную схожесть запроса с канонической
// меткой термина и каждым его синонимом
func (m *FuzzyMatcher) bestFormScore(text string, term Term) float64 {
	best := m.algos.CombinedSimilarity(text, algorithms.Clean(term.CanonicalLabel), m.weights)
	for _, syn := range term.Synonyms {
		score := m.algos.CombinedSimilarity(text, algorithms.Clean(syn), m.weights)
		if score > best {
			best = score
		}
	}
	return best
}
