package normalization

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"bionorm/normalization/algorithms"
)

// indexEntry одна проиндексированная поверхностная форма термина.
// Каноническая метка и каждый синоним индексируются отдельными векторами
type indexEntry struct {
	canonicalID    string
	canonicalLabel string
	form           string
	synonyms       []string
	vector         []float32
}

// SearchHit результат поиска по семантическому индексу
type SearchHit struct {
	CanonicalID    string
	CanonicalLabel string
	Synonyms       []string
	Score          float64
}

// SemanticIndex векторный индекс словарных терминов для семантического
// поиска. Векторы получаются через провайдер эмбеддингов при построении,
// поиск выполняется локально по косинусной близости.
// Потокобезопасен: построение и поиск защищены RWMutex
type SemanticIndex struct {
	mu       sync.RWMutex
	entries  map[Category][]indexEntry
	provider EmbeddingProvider
	logger   *slog.Logger
}

// NewSemanticIndex создает пустой индекс поверх провайдера эмбеддингов
func NewSemanticIndex(provider EmbeddingProvider) *SemanticIndex {
	return &SemanticIndex{
		entries:  make(map[Category][]indexEntry),
		provider: provider,
		logger:   slog.Default().With("component", "semantic_index"),
	}
}

// Build индексирует все термины словаря: каноническую метку и синонимы
// каждого термина. Ошибка эмбеддинга отдельной формы не прерывает
// построение, форма просто пропускается
func (idx *SemanticIndex) Build(ctx context.Context, dict *Dictionary) error {
	if idx.provider == nil {
		return fmt.Errorf("embedding provider is not configured")
	}

	built := make(map[Category][]indexEntry)
	total := 0
	skipped := 0

	for _, category := range AllCategories() {
		for _, term := range dict.Terms(category) {
			forms := append([]string{term.CanonicalLabel}, term.Synonyms...)
			for _, form := range forms {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				cleaned := algorithms.Clean(form)
				if cleaned == "" {
					continue
				}

				vector, err := idx.provider.Embed(ctx, cleaned)
				if err != nil {
					skipped++
					idx.logger.Warn("failed to embed term form, skipping",
						"form", cleaned,
						"category", category,
						"error", err)
					continue
				}

				built[category] = append(built[category], indexEntry{
					canonicalID:    term.CanonicalID,
					canonicalLabel: term.CanonicalLabel,
					form:           cleaned,
					synonyms:       term.Synonyms,
					vector:         vector,
				})
				total++
			}
		}
	}

	idx.mu.Lock()
	idx.entries = built
	idx.mu.Unlock()

	idx.logger.Info("semantic index built",
		"vectors", total,
		"skipped", skipped)
	return nil
}

// Search возвращает topK ближайших терминов категории по косинусной
// близости к вектору запроса. Для термина с несколькими
// проиндексированными формами берется лучшая форма.
// Отрицательная близость обрезается до нуля
func (idx *SemanticIndex) Search(category Category, vector []float32, topK int) []SearchHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.entries[category]
	if len(entries) == 0 || len(vector) == 0 {
		return nil
	}

	// Лучшая оценка на каноническую метку
	bestByLabel := make(map[string]SearchHit)
	order := make([]string, 0)

	for _, entry := range entries {
		score := clampScore(cosineSimilarity(vector, entry.vector))
		hit, seen := bestByLabel[entry.canonicalLabel]
		if !seen {
			order = append(order, entry.canonicalLabel)
			bestByLabel[entry.canonicalLabel] = SearchHit{
				CanonicalID:    entry.canonicalID,
				CanonicalLabel: entry.canonicalLabel,
				Synonyms:       entry.synonyms,
				Score:          score,
			}
			continue
		}
		if score > hit.Score {
			hit.Score = score
			bestByLabel[entry.canonicalLabel] = hit
		}
	}

	hits := make([]SearchHit, 0, len(order))
	for _, label := range order {
		hits = append(hits, bestByLabel[label])
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Len возвращает количество проиндексированных векторов
func (idx *SemanticIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, entries := range idx.entries {
		n += len(entries)
	}
	return n
}

// cosineSimilarity косинусная близость двух векторов.
// Нулевой вектор или разная размерность дают ноль
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampScore обрезает оценку в диапазон [0, 1]
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
