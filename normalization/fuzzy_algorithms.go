package normalization

import (
	"strings"
	"unicode"

	"bionorm/normalization/algorithms"
)

// FuzzyAlgorithms набор алгоритмов нечеткого сравнения биомедицинских терминов
type FuzzyAlgorithms struct {
	stemmer *algorithms.EnglishStemmer
}

// NewFuzzyAlgorithms создает новый набор алгоритмов
func NewFuzzyAlgorithms() *FuzzyAlgorithms {
	return &FuzzyAlgorithms{
		stemmer: algorithms.NewEnglishStemmer(),
	}
}

// levenshteinDistance вычисляет редакционное расстояние Левенштейна
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)

	for j := 0; j <= len(r2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// LevenshteinSimilarity нормализованная схожесть по Левенштейну в [0,1]
func (fa *FuzzyAlgorithms) LevenshteinSimilarity(s1, s2 string) float64 {
	maxLen := maxInt(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// DamerauLevenshteinDistance расстояние Дамерау-Левенштейна с транспозициями.
// Транспозиции важны для опечаток в терминах: "proteomcis" -> "proteomics"
func (fa *FuzzyAlgorithms) DamerauLevenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	d := make([][]int, len(r1)+1)
	for i := range d {
		d[i] = make([]int, len(r2)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(r2); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}

			d[i][j] = min3(
				d[i-1][j]+1,      // удаление
				d[i][j-1]+1,      // вставка
				d[i-1][j-1]+cost, // замена
			)

			// Транспозиция соседних символов
			if i > 1 && j > 1 && r1[i-1] == r2[j-2] && r1[i-2] == r2[j-1] {
				if d[i-2][j-2]+1 < d[i][j] {
					d[i][j] = d[i-2][j-2] + 1
				}
			}
		}
	}

	return d[len(r1)][len(r2)]
}

// DamerauLevenshteinSimilarity нормализованная схожесть Дамерау-Левенштейна
func (fa *FuzzyAlgorithms) DamerauLevenshteinSimilarity(s1, s2 string) float64 {
	maxLen := maxInt(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(fa.DamerauLevenshteinDistance(s1, s2))/float64(maxLen)
}

// NGramSimilarity вычисляет схожесть на основе N-грамм символов
func (fa *FuzzyAlgorithms) NGramSimilarity(s1, s2 string, n int) float64 {
	if s1 == s2 {
		return 1.0
	}

	grams1 := fa.generateNGrams(s1, n)
	grams2 := fa.generateNGrams(s2, n)

	if len(grams1) == 0 && len(grams2) == 0 {
		return 1.0
	}
	if len(grams1) == 0 || len(grams2) == 0 {
		return 0.0
	}

	return fa.jaccardIndex(grams1, grams2)
}

// BigramSimilarity вычисляет схожесть на основе биграмм
func (fa *FuzzyAlgorithms) BigramSimilarity(s1, s2 string) float64 {
	return fa.NGramSimilarity(s1, s2, 2)
}

// TrigramSimilarity вычисляет схожесть на основе триграмм
func (fa *FuzzyAlgorithms) TrigramSimilarity(s1, s2 string) float64 {
	return fa.NGramSimilarity(s1, s2, 3)
}

// generateNGrams генерирует N-граммы из строки
func (fa *FuzzyAlgorithms) generateNGrams(text string, n int) map[string]int {
	text = strings.ToLower(strings.TrimSpace(text))
	grams := make(map[string]int)

	runes := []rune(text)
	if len(runes) < n {
		// Строка короче n: сама строка становится граммой
		if len(runes) > 0 {
			grams[string(runes)] = 1
		}
		return grams
	}

	for i := 0; i <= len(runes)-n; i++ {
		gram := string(runes[i : i+n])
		grams[gram]++
	}

	return grams
}

// JaccardIndex вычисляет индекс Жаккара для множеств токенов двух строк
func (fa *FuzzyAlgorithms) JaccardIndex(s1, s2 string) float64 {
	tokens1 := fa.tokenize(s1)
	tokens2 := fa.tokenize(s2)

	return fa.jaccardIndex(tokens1, tokens2)
}

// jaccardIndex вычисляет индекс Жаккара для двух множеств
func (fa *FuzzyAlgorithms) jaccardIndex(set1, set2 map[string]int) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for key := range set1 {
		if _, exists := set2[key]; exists {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// tokenize разбивает строку на токены
func (fa *FuzzyAlgorithms) tokenize(text string) map[string]int {
	text = strings.ToLower(strings.TrimSpace(text))
	tokens := make(map[string]int)

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		if len(word) > 0 {
			tokens[word]++
		}
	}

	return tokens
}

// StemOverlapSimilarity индекс Жаккара по множествам стемов токенов.
// Сводит морфологические варианты к одной основе:
// "sequencing of exomes" и "exome sequencing" дают пересечение по стемам
func (fa *FuzzyAlgorithms) StemOverlapSimilarity(s1, s2 string) float64 {
	set1 := fa.stemTokenSet(s1)
	set2 := fa.stemTokenSet(s2)

	return fa.jaccardIndex(set1, set2)
}

func (fa *FuzzyAlgorithms) stemTokenSet(text string) map[string]int {
	set := make(map[string]int)
	for token := range fa.tokenize(text) {
		if stem := fa.stemmer.StemWithCache(token); stem != "" {
			set[stem]++
		}
	}
	return set
}

// Soundex вычисляет классический Soundex-код для латинского текста.
// Цифры и прочие не-буквы пропускаются
func (fa *FuzzyAlgorithms) Soundex(text string) string {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	codes := map[rune]byte{
		'B': '1', 'F': '1', 'P': '1', 'V': '1',
		'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
		'D': '3', 'T': '3',
		'L': '4',
		'M': '5', 'N': '5',
		'R': '6',
	}

	var first rune
	var result strings.Builder
	var prevCode byte

	for _, r := range text {
		if r < 'A' || r > 'Z' {
			// Не-буква разрывает цепочку одинаковых кодов
			prevCode = 0
			continue
		}

		code, coded := codes[r]

		if first == 0 {
			first = r
			result.WriteRune(r)
			if coded {
				prevCode = code
			}
			continue
		}

		if !coded {
			// Гласные разрывают цепочку, H и W - нет
			if r != 'H' && r != 'W' {
				prevCode = 0
			}
			continue
		}

		if code != prevCode {
			result.WriteByte(code)
			if result.Len() == 4 {
				break
			}
		}
		prevCode = code
	}

	if first == 0 {
		return ""
	}

	// Дополняем нулями до четырех символов
	for result.Len() < 4 {
		result.WriteByte('0')
	}

	return result.String()
}

// SoundexSimilarity фонетическая схожесть по Soundex-кодам
func (fa *FuzzyAlgorithms) SoundexSimilarity(s1, s2 string) float64 {
	code1 := fa.Soundex(s1)
	code2 := fa.Soundex(s2)

	if code1 == "" && code2 == "" {
		return 1.0
	}
	if code1 == "" || code2 == "" {
		return 0.0
	}
	if code1 == code2 {
		return 1.0
	}

	// Частичное совпадение кодов
	matches := 0
	for i := 0; i < 4; i++ {
		if code1[i] == code2[i] {
			matches++
		}
	}

	return float64(matches) / 4.0
}

// CombinedSimilarity вычисляет комбинированную схожесть как взвешенное
// среднее нескольких алгоритмов
func (fa *FuzzyAlgorithms) CombinedSimilarity(s1, s2 string, weights SimilarityWeights) float64 {
	var sum float64
	var totalWeight float64

	if weights.Levenshtein > 0 {
		sum += fa.LevenshteinSimilarity(s1, s2) * weights.Levenshtein
		totalWeight += weights.Levenshtein
	}

	if weights.DamerauLevenshtein > 0 {
		sum += fa.DamerauLevenshteinSimilarity(s1, s2) * weights.DamerauLevenshtein
		totalWeight += weights.DamerauLevenshtein
	}

	if weights.Bigram > 0 {
		sum += fa.BigramSimilarity(s1, s2) * weights.Bigram
		totalWeight += weights.Bigram
	}

	if weights.Trigram > 0 {
		sum += fa.TrigramSimilarity(s1, s2) * weights.Trigram
		totalWeight += weights.Trigram
	}

	if weights.Jaccard > 0 {
		sum += fa.JaccardIndex(s1, s2) * weights.Jaccard
		totalWeight += weights.Jaccard
	}

	if weights.StemOverlap > 0 {
		sum += fa.StemOverlapSimilarity(s1, s2) * weights.StemOverlap
		totalWeight += weights.StemOverlap
	}

	if weights.Soundex > 0 {
		sum += fa.SoundexSimilarity(s1, s2) * weights.Soundex
		totalWeight += weights.Soundex
	}

	if totalWeight == 0 {
		return 0.0
	}

	return sum / totalWeight
}

// SimilarityWeights веса алгоритмов в комбинированной схожести
type SimilarityWeights struct {
	Levenshtein        float64 // Вес алгоритма Левенштейна
	DamerauLevenshtein float64 // Вес алгоритма Дамерау-Левенштейна
	Bigram             float64 // Вес биграмм
	Trigram            float64 // Вес триграмм
	Jaccard            float64 // Вес индекса Жаккара по токенам
	StemOverlap        float64 // Вес пересечения стемов
	Soundex            float64 // Вес фонетического кода
}

// DefaultSimilarityWeights возвращает веса по умолчанию
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{
		Levenshtein:        0.30,
		DamerauLevenshtein: 0.20,
		Bigram:             0.15,
		Trigram:            0.10,
		Jaccard:            0.10,
		StemOverlap:        0.10,
		Soundex:            0.05,
	}
}

// Вспомогательные функции

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
