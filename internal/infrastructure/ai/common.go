package ai

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig конфигурация повторных попыток
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig возвращает конфигурацию повторных попыток по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// apiError описание ошибки в теле ответа API
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// newPooledHTTPClient возвращает HTTP-клиент с пулом соединений,
// общий шаблон для всех AI-клиентов пакета
func newPooledHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxConnsPerHost:     5,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
		DisableCompression:  false,
		MaxIdleConnsPerHost: 5,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// parseRetryAfter парсит заголовок Retry-After из ответа.
// Поддерживает и число секунд, и HTTP-дату
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}

	return 0
}

// parseAPIError извлекает сообщение и тип ошибки из тела ответа API.
// Если тело не разбирается, возвращает его как есть
func parseAPIError(body []byte) (message, errType string) {
	var errorResp struct {
		Error *apiError `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error != nil && errorResp.Error.Message != "" {
		return errorResp.Error.Message, errorResp.Error.Type
	}
	return truncateBody(body), ""
}

// isQuotaMessage проверяет, сообщает ли текст об исчерпании квоты.
// Квота не восстанавливается между попытками, такие ошибки не повторяются
func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") ||
		strings.Contains(lower, "exceeded") ||
		strings.Contains(lower, "insufficient credits")
}

// truncateBody обрезает тело ответа для логов и сообщений об ошибках
func truncateBody(body []byte) string {
	const limit = 500
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
