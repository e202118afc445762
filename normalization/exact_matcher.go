package normalization

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"bionorm/normalization/algorithms"
)

// ExactMatcher словарная стратегия: поиск по статической таблице синонимов.
// Самый быстрый и детерминированный путь каскада, без сетевых вызовов.
//
// Помимо точных словарных попаданий (уверенность 1.0) стадия обслуживает две
// курируемые таблицы: обобщающие вводы ("virus" разворачивается в список
// распространенных вирусов, уверенность 0.9) и вхождение ключевых вариантов
// типов данных ("single cell ..." дает scRNAseq, уверенность 0.8)
type ExactMatcher struct {
	dict         *Dictionary
	specialCases map[string]SpecialCase
	variants     map[string][]string
	logger       *slog.Logger
}

// NewExactMatcher создает словарный матчер с курируемыми таблицами по умолчанию
func NewExactMatcher(dict *Dictionary) *ExactMatcher {
	return &ExactMatcher{
		dict:         dict,
		specialCases: DefaultSpecialCases(),
		variants:     DefaultDataTypeVariants(),
		logger:       slog.Default().With("component", "exact_matcher"),
	}
}

// Strategy возвращает идентификатор стратегии
func (m *ExactMatcher) Strategy() Strategy {
	return StrategyExact
}

// Match ищет термин в словаре и курируемых таблицах
func (m *ExactMatcher) Match(_ context.Context, query Query) ([]Candidate, error) {
	// Обобщающий ввод: курируемое расширение вместо канонического имени
	if sc, found := m.specialCases[query.Text]; found && sc.Category == query.Category {
		m.logger.Debug("special case input detected",
			"text", query.Text,
			"category", query.Category)
		return []Candidate{{
			CanonicalLabel: sc.CanonicalName,
			Source:         StrategyExact,
			Confidence:     sc.Confidence,
			Synonyms:       sc.ExpandedTerms,
		}}, nil
	}

	// Точное попадание в словарь: каноническая метка или синоним
	if term, found := m.dict.Lookup(query.Category, query.Text); found {
		return []Candidate{{
			CanonicalID:    term.CanonicalID,
			CanonicalLabel: term.CanonicalLabel,
			Source:         StrategyExact,
			Confidence:     1.0,
			Synonyms:       term.Synonyms,
		}}, nil
	}

	// Для типов данных: поиск по вхождению известных вариантов написания
	if query.Category == CategoryDataType {
		if c, found := m.matchDataTypeVariant(query.Text); found {
			return []Candidate{c}, nil
		}
	}

	return nil, nil
}

// matchDataTypeVariant ищет вариант написания, входящий в запрос или
// содержащий его. При нескольких совпадениях выбирается самый длинный
// вариант как наиболее специфичный
func (m *ExactMatcher) matchDataTypeVariant(text string) (Candidate, bool) {
	canonicals := make([]string, 0, len(m.variants))
	for canonical := range m.variants {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	bestCanonical := ""
	bestLen := 0

	for _, canonical := range canonicals {
		for _, variant := range m.variants[canonical] {
			v := algorithms.Clean(variant)
			if v == "" {
				continue
			}
			if strings.Contains(text, v) || strings.Contains(v, text) {
				if len(v) > bestLen {
					bestCanonical = canonical
					bestLen = len(v)
				}
			}
		}
	}

	if bestCanonical == "" {
		return Candidate{}, false
	}

	return Candidate{
		CanonicalID:    bestCanonical,
		CanonicalLabel: bestCanonical,
		Source:         StrategyExact,
		Confidence:     0.8,
		Synonyms:       m.variants[bestCanonical],
	}, true
}
