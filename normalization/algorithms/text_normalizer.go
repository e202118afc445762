package algorithms

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TermCleaner приводит свободный текст биомедицинского термина к форме,
// пригодной для словарного поиска и ключей кэша
type TermCleaner struct {
	removeStopWords bool
	stopWords       map[string]bool
	fold            transform.Transformer
}

// NewTermCleaner создает новый очиститель терминов
func NewTermCleaner(removeStopWords bool) *TermCleaner {
	return &TermCleaner{
		removeStopWords: removeStopWords,
		stopWords:       defaultStopWords(),
		fold:            newDiacriticsFold(),
	}
}

// defaultCleaner разделяется всеми вызовами Clean; трансформер создается
// на каждый вызов, поэтому конкурентное использование безопасно
var defaultCleaner = NewTermCleaner(false)

// Clean очищает термин очистителем по умолчанию (без удаления стоп-слов)
func Clean(text string) string {
	return defaultCleaner.Clean(text)
}

// Clean выполняет полную очистку термина:
// нижний регистр, схлопывание пробелов, унификация кавычек и тире,
// удаление диакритики, фильтрация недопустимых символов
func (tc *TermCleaner) Clean(text string) string {
	// 1. Нижний регистр
	text = strings.ToLower(text)

	// 2. Схлопывание пробельных символов
	text = strings.Join(strings.Fields(strings.TrimSpace(text)), " ")

	// 3. Унификация кавычек и тире
	text = normalizeQuotes(text)
	text = normalizeHyphens(text)

	// 4. Удаление диакритических знаков (é -> e, ö -> o)
	text = tc.stripDiacritics(text)

	// 5. Фильтрация: остаются буквы, цифры, подчеркивание, пробел, дефис, точка
	text = filterTermRunes(text)

	// 6. Повторное схлопывание после фильтрации
	text = strings.Join(strings.Fields(text), " ")

	if tc.removeStopWords {
		text = tc.removeStopWordsFromText(text)
	}

	return strings.TrimSpace(text)
}

// newDiacriticsFold собирает цепочку трансформаций NFD -> удаление
// комбинируемых знаков -> NFC
func newDiacriticsFold() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// stripDiacritics удаляет диакритику через цепочку x/text
func (tc *TermCleaner) stripDiacritics(text string) string {
	// Трансформер хранит состояние, для конкурентности создаем локальную цепочку
	folded, _, err := transform.String(newDiacriticsFold(), text)
	if err != nil {
		return text
	}
	return folded
}

// filterTermRunes удаляет символы вне допустимого набора термина
func filterTermRunes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || r == ' ' || r == '-' || r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeQuotes заменяет типографские кавычки и апострофы на ASCII
func normalizeQuotes(text string) string {
	replacements := map[rune]rune{
		'“': '"',  // левая двойная кавычка
		'”': '"',  // правая двойная кавычка
		'‘': '\'', // левая одинарная кавычка
		'’': '\'', // правая одинарная кавычка (апостроф в "Alzheimer’s")
		'«':      '"',
		'»':      '"',
		'„':      '"',
		'‚':      '\'',
	}

	var builder strings.Builder
	for _, r := range text {
		if replacement, ok := replacements[r]; ok {
			builder.WriteRune(replacement)
		} else {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// normalizeHyphens заменяет тире и минусы на обычный дефис
func normalizeHyphens(text string) string {
	text = strings.ReplaceAll(text, "—", "-")
	text = strings.ReplaceAll(text, "–", "-")
	text = strings.ReplaceAll(text, "−", "-")
	return text
}

// removeStopWordsFromText удаляет стоп-слова из текста
func (tc *TermCleaner) removeStopWordsFromText(text string) string {
	words := strings.Fields(text)
	result := make([]string, 0, len(words))
	for _, word := range words {
		if word != "" && !tc.stopWords[word] {
			result = append(result, word)
		}
	}
	return strings.Join(result, " ")
}

// defaultStopWords английские стоп-слова, безопасные для биомедицинских
// терминов: союзы и артикли, не несущие смысловой нагрузки
func defaultStopWords() map[string]bool {
	return map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"of": true, "in": true, "on": true, "for": true, "with": true,
		"by": true, "from": true, "to": true, "at": true,
	}
}

// Tokenize разбивает очищенный термин на токены по пробелам и дефисам
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '-'
	})
}
