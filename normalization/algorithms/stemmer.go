package algorithms

import (
	"strings"
	"sync"

	"github.com/kljensen/snowball"
)

// Stemmer interface defines methods for stemming words
type Stemmer interface {
	// Stem returns the stemmed version of a word
	Stem(word string) string

	// StemTokens returns stemmed versions of multiple words
	StemTokens(tokens []string) []string

	// StemWithCache returns the stemmed version with caching
	StemWithCache(word string) string
}

// EnglishStemmer implements stemming for English biomedical vocabulary
// using the Snowball algorithm
type EnglishStemmer struct {
	language string
	cache    map[string]string
	mu       sync.RWMutex
	useCache bool
}

// NewEnglishStemmer creates a new English language stemmer
func NewEnglishStemmer() *EnglishStemmer {
	return &EnglishStemmer{
		language: "english",
		cache:    make(map[string]string),
		useCache: true,
	}
}

// NewEnglishStemmerWithoutCache creates a stemmer without caching
func NewEnglishStemmerWithoutCache() *EnglishStemmer {
	return &EnglishStemmer{
		language: "english",
		useCache: false,
	}
}

// Stem returns the stemmed version of a word using Snowball algorithm
// Example: "sequencing" -> "sequenc", "diseases" -> "diseas"
func (s *EnglishStemmer) Stem(word string) string {
	if word == "" {
		return ""
	}

	// Normalize to lowercase for consistency
	normalized := strings.ToLower(strings.TrimSpace(word))

	if normalized == "" {
		return ""
	}

	// Use Snowball stemmer
	stemmed, err := snowball.Stem(normalized, s.language, true)
	if err != nil {
		// If stemming fails, return the normalized word
		return normalized
	}

	return stemmed
}

// StemWithCache returns the stemmed version with caching for performance
func (s *EnglishStemmer) StemWithCache(word string) string {
	if !s.useCache {
		return s.Stem(word)
	}

	normalized := strings.ToLower(strings.TrimSpace(word))
	if normalized == "" {
		return ""
	}

	// Check cache first
	s.mu.RLock()
	if cached, found := s.cache[normalized]; found {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	// Stem the word
	stemmed := s.Stem(normalized)

	// Store in cache
	s.mu.Lock()
	s.cache[normalized] = stemmed
	s.mu.Unlock()

	return stemmed
}

// StemTokens returns stemmed versions of multiple words
// Example: ["sequencing", "sequenced", "sequences"] -> ["sequenc", "sequenc", "sequenc"]
func (s *EnglishStemmer) StemTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return []string{}
	}

	stemmed := make([]string, len(tokens))
	for i, token := range tokens {
		stemmed[i] = s.StemWithCache(token)
	}

	return stemmed
}

// StemText stems all words in a text string and returns the stemmed text
// Example: "single cell sequencing" -> "singl cell sequenc"
func (s *EnglishStemmer) StemText(text string) string {
	if text == "" {
		return ""
	}

	// Split into words
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	// Stem each word
	stemmed := s.StemTokens(words)

	// Join back
	return strings.Join(stemmed, " ")
}

// ClearCache clears the internal cache
func (s *EnglishStemmer) ClearCache() {
	if !s.useCache {
		return
	}

	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// GetCacheSize returns the number of cached items
func (s *EnglishStemmer) GetCacheSize() int {
	if !s.useCache {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// StemSimilarity calculates similarity between two words based on their stems
// Returns 1.0 if stems are identical, 0.0 if completely different
func (s *EnglishStemmer) StemSimilarity(word1, word2 string) float64 {
	stem1 := s.StemWithCache(word1)
	stem2 := s.StemWithCache(word2)

	if stem1 == "" && stem2 == "" {
		return 1.0
	}

	if stem1 == "" || stem2 == "" {
		return 0.0
	}

	if stem1 == stem2 {
		return 1.0
	}

	return 0.0
}

// BatchStem processes multiple texts in parallel
func (s *EnglishStemmer) BatchStem(texts []string, workers int) []string {
	if len(texts) == 0 {
		return []string{}
	}

	if workers <= 0 {
		workers = 4
	}

	results := make([]string, len(texts))
	var wg sync.WaitGroup
	jobs := make(chan int, len(texts))

	// Start worker goroutines
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.StemText(texts[idx])
			}
		}()
	}

	// Send jobs
	for i := range texts {
		jobs <- i
	}
	close(jobs)

	// Wait for completion
	wg.Wait()

	return results
}

// StemSet returns the set of unique stems for the given tokens
func (s *EnglishStemmer) StemSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if stem := s.StemWithCache(token); stem != "" {
			set[stem] = true
		}
	}
	return set
}
