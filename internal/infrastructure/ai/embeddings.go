package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Значения по умолчанию для клиента эмбеддингов
const (
	defaultEmbeddingsModel   = "openai/text-embedding-ada-002"
	defaultEmbeddingsTimeout = 30 * time.Second
)

// EmbeddingProvider интерфейс поставщика векторных представлений текста
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingsConfig параметры клиента эмбеддингов
type EmbeddingsConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// EmbeddingsClient клиент OpenAI-совместимого endpoint /embeddings.
// Работает и через OpenRouter, и через любой другой совместимый шлюз
type EmbeddingsClient struct {
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	retryConfig RetryConfig
}

// embeddingsRequest тело запроса на векторизацию одного текста
type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embeddingsResponse тело ответа endpoint /embeddings
type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// NewEmbeddingsClient создает новый клиент эмбеддингов.
// Незаполненные поля конфигурации получают значения по умолчанию
func NewEmbeddingsClient(cfg EmbeddingsConfig) *EmbeddingsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultEmbeddingsModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultEmbeddingsTimeout
	}

	return &EmbeddingsClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		httpClient:  newPooledHTTPClient(cfg.Timeout),
		retryConfig: DefaultRetryConfig(),
	}
}

// Name возвращает имя провайдера вместе с моделью
func (c *EmbeddingsClient) Name() string {
	return "embeddings:" + c.model
}

// Enabled провайдер активен только при заданном API-ключе
func (c *EmbeddingsClient) Enabled() bool {
	return c.apiKey != ""
}

// Embed запрашивает векторное представление текста. Повторные попытки
// следуют тем же правилам, что и у клиента chat completions: 429 и 5xx
// повторяются, квота и ошибки авторизации фатальны
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("embeddings: API key is not configured")
	}

	jsonData, err := json.Marshal(embeddingsRequest{
		Model: c.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/embeddings"

	var lastErr error
	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[Embeddings] Retry attempt %d/%d after %v", attempt, c.retryConfig.MaxRetries, delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.retryConfig.BackoffMultiplier)
			if delay > c.retryConfig.MaxDelay {
				delay = c.retryConfig.MaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			log.Printf("[Embeddings] Request failed (attempt %d/%d): %v", attempt+1, c.retryConfig.MaxRetries+1, lastErr)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if retryAfter := parseRetryAfter(resp); retryAfter > 0 {
				delay = retryAfter
			}
			lastErr = fmt.Errorf("rate limit exceeded (429): %s", truncateBody(body))
			log.Printf("[Embeddings] Rate limit exceeded (attempt %d/%d), next delay %v", attempt+1, c.retryConfig.MaxRetries+1, delay)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("authorization failed (status %d): %s", resp.StatusCode, truncateBody(body))
		}

		if resp.StatusCode != http.StatusOK {
			errorMsg, errorType := parseAPIError(body)
			if isQuotaMessage(errorMsg) || isQuotaMessage(errorType) {
				log.Printf("[Embeddings] Quota exceeded, not retrying: %s", errorMsg)
				return nil, fmt.Errorf("quota exceeded: %s", errorMsg)
			}
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, errorMsg)
			if resp.StatusCode >= 500 {
				log.Printf("[Embeddings] Server error %d (attempt %d/%d), will retry", resp.StatusCode, attempt+1, c.retryConfig.MaxRetries+1)
				continue
			}
			return nil, lastErr
		}

		var response embeddingsResponse
		if err := json.Unmarshal(body, &response); err != nil {
			lastErr = fmt.Errorf("failed to decode response: %w", err)
			log.Printf("[Embeddings] Failed to decode response (attempt %d/%d): %v", attempt+1, c.retryConfig.MaxRetries+1, lastErr)
			continue
		}

		if response.Error != nil {
			if isQuotaMessage(response.Error.Message) || isQuotaMessage(response.Error.Type) {
				return nil, fmt.Errorf("quota exceeded: %s", response.Error.Message)
			}
			return nil, fmt.Errorf("API error: %s (type: %s)", response.Error.Message, response.Error.Type)
		}

		if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("no embedding in response")
		}

		return response.Data[0].Embedding, nil
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}
