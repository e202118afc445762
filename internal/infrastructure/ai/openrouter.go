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

// Значения по умолчанию для клиента OpenRouter. Совпадают с дефолтами
// конфигурации, чтобы клиент оставался работоспособным и без нее
const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "deepseek/deepseek-chat"
	defaultLLMTemperature    = 0.1
	defaultLLMMaxTokens      = 1000
	defaultLLMTimeout        = 30 * time.Second
)

// openRouterReferer идентификация приложения, OpenRouter требует HTTP-Referer
const openRouterReferer = "https://github.com/bionorm/bionorm"

// OpenRouterConfig параметры клиента OpenRouter
type OpenRouterConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenRouterClient клиент для работы с OpenRouter API
type OpenRouterClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	retryConfig RetryConfig
}

// chatMessage одно сообщение диалога в формате chat completions
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest тело запроса chat completions
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse тело ответа chat completions
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// NewOpenRouterClient создает новый клиент OpenRouter.
// Незаполненные поля конфигурации получают значения по умолчанию
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenRouterModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultLLMTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultLLMMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}

	return &OpenRouterClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  newPooledHTTPClient(cfg.Timeout),
		retryConfig: DefaultRetryConfig(),
	}
}

// Name возвращает имя провайдера вместе с моделью, чтобы различать
// несколько клиентов OpenRouter с разными моделями
func (c *OpenRouterClient) Name() string {
	return "openrouter:" + c.model
}

// Enabled провайдер активен только при заданном API-ключе
func (c *OpenRouterClient) Enabled() bool {
	return c.apiKey != ""
}

// Complete выполняет запрос chat completions и возвращает текст ответа модели.
// Ошибки rate limit (429) и 5xx повторяются с экспоненциальной задержкой,
// заголовок Retry-After учитывается. Ошибки квоты и авторизации не повторяются
func (c *OpenRouterClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openrouter: API key is not configured")
	}

	jsonData, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"

	var lastErr error
	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[OpenRouter] Retry attempt %d/%d for %s after %v", attempt, c.retryConfig.MaxRetries, c.model, delay)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.retryConfig.BackoffMultiplier)
			if delay > c.retryConfig.MaxDelay {
				delay = c.retryConfig.MaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("HTTP-Referer", openRouterReferer)
		req.Header.Set("X-Title", "bionorm")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			log.Printf("[OpenRouter] Request failed (attempt %d/%d): %v", attempt+1, c.retryConfig.MaxRetries+1, lastErr)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			log.Printf("[OpenRouter] Failed to read response (attempt %d/%d): %v", attempt+1, c.retryConfig.MaxRetries+1, lastErr)
			continue
		}

		// HTTP 429: лимит частоты, повторяем с учетом Retry-After
		if resp.StatusCode == http.StatusTooManyRequests {
			if retryAfter := parseRetryAfter(resp); retryAfter > 0 {
				delay = retryAfter
			}
			lastErr = fmt.Errorf("rate limit exceeded (429): %s", truncateBody(body))
			log.Printf("[OpenRouter] Rate limit exceeded (attempt %d/%d), next delay %v", attempt+1, c.retryConfig.MaxRetries+1, delay)
			continue
		}

		// Неверный ключ или запрет доступа не лечатся повтором
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("authorization failed (status %d): %s", resp.StatusCode, truncateBody(body))
		}

		if resp.StatusCode != http.StatusOK {
			errorMsg, errorType := parseAPIError(body)
			if isQuotaMessage(errorMsg) || isQuotaMessage(errorType) {
				log.Printf("[OpenRouter] Quota exceeded, not retrying: %s", errorMsg)
				return "", fmt.Errorf("quota exceeded: %s", errorMsg)
			}
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, errorMsg)
			if resp.StatusCode >= 500 {
				log.Printf("[OpenRouter] Server error %d (attempt %d/%d), will retry", resp.StatusCode, attempt+1, c.retryConfig.MaxRetries+1)
				continue
			}
			return "", lastErr
		}

		var response chatResponse
		if err := json.Unmarshal(body, &response); err != nil {
			lastErr = fmt.Errorf("failed to decode response: %w", err)
			log.Printf("[OpenRouter] Failed to decode response (attempt %d/%d): %v", attempt+1, c.retryConfig.MaxRetries+1, lastErr)
			continue
		}

		// Ошибка может прийти и в теле успешного по статусу ответа
		if response.Error != nil {
			if isQuotaMessage(response.Error.Message) || isQuotaMessage(response.Error.Type) {
				return "", fmt.Errorf("quota exceeded: %s", response.Error.Message)
			}
			return "", fmt.Errorf("API error: %s (type: %s)", response.Error.Message, response.Error.Type)
		}

		if len(response.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}

		return response.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("all retry attempts failed: %w", lastErr)
}
