package normalization

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultLLMTimeout предельное время одного обращения к языковой модели
const DefaultLLMTimeout = 30 * time.Second

// llmResponse ожидаемая структура JSON-ответа модели
type llmResponse struct {
	CanonicalName string   `json:"canonical_name"`
	Confidence    float64  `json:"confidence"`
	Alternatives  []string `json:"alternatives"`
}

// systemPrompts инструкции модели по категориям. Модель обязана вернуть
// строгий JSON с каноническим именем, уверенностью 0-100 и альтернативами
var systemPrompts = map[Category]string{
	CategoryOrganism: `You are a biomedical terminology expert specializing in biological taxonomy.
Given an organism name, return its canonical scientific name following NCBI Taxonomy conventions.
Respond ONLY with valid JSON in this exact format:
{"canonical_name": "<scientific name>", "confidence": <0-100>, "alternatives": ["<other name>", ...]}`,

	CategoryDisease: `You are a biomedical terminology expert specializing in disease nomenclature.
Given a disease name, return its canonical name following MeSH (Medical Subject Headings) conventions.
Respond ONLY with valid JSON in this exact format:
{"canonical_name": "<MeSH term>", "confidence": <0-100>, "alternatives": ["<other name>", ...]}`,

	CategoryDataType: `You are a bioinformatics expert specializing in genomics data types.
Given a data type description, return the standard short name of the assay or data type (for example RNAseq, scRNAseq, WGS, ChIP-seq).
Respond ONLY with valid JSON in this exact format:
{"canonical_name": "<standard name>", "confidence": <0-100>, "alternatives": ["<other name>", ...]}`,
}

// LLMMatcher стратегия последней надежды: нормализация через языковую
// модель. Используется только когда словарь, авторитетные источники,
// нечеткий и семантический поиск не дали уверенного результата
type LLMMatcher struct {
	provider CompletionProvider
	timeout  time.Duration
	retry    RetryConfig
	logger   *slog.Logger
}

// NewLLMMatcher создает LLM-матчер поверх провайдера завершений
func NewLLMMatcher(provider CompletionProvider) *LLMMatcher {
	return &LLMMatcher{
		provider: provider,
		timeout:  DefaultLLMTimeout,
		retry:    SingleRetryConfig(),
		logger:   slog.Default().With("component", "llm_matcher"),
	}
}

// SetTimeout задает предельное время одного обращения к модели
func (m *LLMMatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		m.timeout = timeout
	}
}

// Strategy возвращает идентификатор стратегии
func (m *LLMMatcher) Strategy() Strategy {
	return StrategyLLM
}

// Match запрашивает у модели каноническое имя термина.
// Отключенный провайдер дает пустой результат без ошибки
func (m *LLMMatcher) Match(ctx context.Context, query Query) ([]Candidate, error) {
	if m.provider == nil || !m.provider.Enabled() {
		return nil, nil
	}

	systemPrompt, found := systemPrompts[query.Category]
	if !found {
		return nil, nil
	}

	userPrompt := fmt.Sprintf("Normalize this %s term: %q", query.Category, query.Raw)
	if query.Context != "" {
		userPrompt += fmt.Sprintf("\nAdditional context: %s", query.Context)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var raw string
	err := RetryWithLog(callCtx, m.logger, "llm completion", m.retry, func() error {
		response, completeErr := m.provider.Complete(callCtx, systemPrompt, userPrompt)
		if completeErr != nil {
			return completeErr
		}
		raw = response
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("llm completion failed for %q: %w", query.Raw, err)
	}

	candidate, ok := m.parseResponse(raw)
	if !ok {
		m.logger.Warn("llm returned unusable response",
			"text", query.Text,
			"provider", m.provider.Name())
		return nil, nil
	}

	m.logger.Debug("llm candidate parsed",
		"text", query.Text,
		"label", candidate.CanonicalLabel,
		"confidence", candidate.Confidence,
		"provider", m.provider.Name())
	return []Candidate{candidate}, nil
}

// parseResponse разбирает ответ модели. Сначала строгий JSON (в том
// числе внутри markdown-ограждений), затем запасной режим: короткий
// текстовый ответ трактуется как каноническое имя с уверенностью 0.5
func (m *LLMMatcher) parseResponse(raw string) (Candidate, bool) {
	cleaned := stripCodeFences(raw)

	var parsed llmResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Попытка вырезать JSON-объект из окружающего текста
		if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err2 != nil {
				return m.fallbackCandidate(cleaned)
			}
		} else {
			return m.fallbackCandidate(cleaned)
		}
	}

	name := strings.TrimSpace(parsed.CanonicalName)
	if name == "" {
		return Candidate{}, false
	}

	confidence := parsed.Confidence
	if confidence > 1 {
		confidence /= 100
	}
	confidence = clampScore(confidence)

	return Candidate{
		CanonicalLabel: name,
		Source:         StrategyLLM,
		Confidence:     confidence,
		Synonyms:       parsed.Alternatives,
	}, true
}

// fallbackCandidate строит кандидата из неструктурированного ответа.
// Длинный или пустой текст считается непригодным
func (m *LLMMatcher) fallbackCandidate(text string) (Candidate, bool) {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.Trim(line, `"'.`)
	if line == "" || len(line) > 100 {
		return Candidate{}, false
	}

	return Candidate{
		CanonicalLabel: line,
		Source:         StrategyLLM,
		Confidence:     0.5,
	}, true
}

// stripCodeFences убирает markdown-ограждения вида ```json ... ```
func stripCodeFences(s string) string {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	return strings.TrimSpace(cleaned)
}
