package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fastRetryConfig ускоренные повторы, чтобы тесты не ждали реальных задержек
func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// newTestOpenRouterClient поднимает тестовый сервер и клиент поверх него
func newTestOpenRouterClient(t *testing.T, handler http.HandlerFunc) (*OpenRouterClient, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewOpenRouterClient(OpenRouterConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "test/model",
		Temperature: 0.25,
		MaxTokens:   512,
	})
	client.retryConfig = fastRetryConfig()
	return client, srv
}

// TestOpenRouterClient_Complete проверяет формирование запроса chat
// completions и разбор успешного ответа
func TestOpenRouterClient_Complete(t *testing.T) {
	var gotPath, gotAuth string
	var gotRequest chatRequest

	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"canonical_name\": \"Homo sapiens\", \"confidence\": 95}"}}]}`))
	})

	response, err := client.Complete(context.Background(), "system instructions", "normalize: human")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if !strings.Contains(response, "Homo sapiens") {
		t.Errorf("Expected response with Homo sapiens, got %q", response)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("Expected path /chat/completions, got %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotRequest.Model != "test/model" {
		t.Errorf("Expected model test/model, got %s", gotRequest.Model)
	}
	if gotRequest.Temperature != 0.25 {
		t.Errorf("Expected temperature 0.25, got %v", gotRequest.Temperature)
	}
	if gotRequest.MaxTokens != 512 {
		t.Errorf("Expected max_tokens 512, got %d", gotRequest.MaxTokens)
	}
	if len(gotRequest.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(gotRequest.Messages))
	}
	if gotRequest.Messages[0].Role != "system" || gotRequest.Messages[0].Content != "system instructions" {
		t.Errorf("Unexpected system message: %+v", gotRequest.Messages[0])
	}
	if gotRequest.Messages[1].Role != "user" || gotRequest.Messages[1].Content != "normalize: human" {
		t.Errorf("Unexpected user message: %+v", gotRequest.Messages[1])
	}
}

// TestOpenRouterClient_CompleteRetriesServerError проверяет повтор после 5xx
func TestOpenRouterClient_CompleteRetriesServerError(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	response, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete failed after retry: %v", err)
	}
	if response != "ok" {
		t.Errorf("Expected response ok, got %q", response)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls (initial + retry), got %d", calls.Load())
	}
}

// TestOpenRouterClient_CompleteRetriesRateLimit проверяет повтор после 429
func TestOpenRouterClient_CompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"recovered"}}]}`))
	})

	response, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete failed after rate limit retry: %v", err)
	}
	if response != "recovered" {
		t.Errorf("Expected response recovered, got %q", response)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

// TestOpenRouterClient_CompleteQuotaNotRetried проверяет, что исчерпание
// квоты фатально и не вызывает повторов
func TestOpenRouterClient_CompleteQuotaNotRetried(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Insufficient credits: quota exceeded","type":"quota_exceeded"}}`))
	})

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Expected quota error, got nil")
	}
	if !strings.Contains(err.Error(), "quota") {
		t.Errorf("Expected quota error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected single call for quota error, got %d", calls.Load())
	}
}

// TestOpenRouterClient_CompleteAuthFatal проверяет, что 401 не повторяется
func TestOpenRouterClient_CompleteAuthFatal(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
	})

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Expected authorization error, got nil")
	}
	if !strings.Contains(err.Error(), "authorization failed") {
		t.Errorf("Expected authorization failed error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected single call for auth error, got %d", calls.Load())
	}
}

// TestOpenRouterClient_CompleteNoChoices проверяет реакцию на пустой ответ
func TestOpenRouterClient_CompleteNoChoices(t *testing.T) {
	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Expected error for empty choices, got nil")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("Expected no choices error, got %v", err)
	}
}

// TestOpenRouterClient_CompleteErrorInBody проверяет ошибку в теле ответа
// со статусом 200
func TestOpenRouterClient_CompleteErrorInBody(t *testing.T) {
	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	})

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Expected API error, got nil")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("Expected model overloaded error, got %v", err)
	}
}

// TestOpenRouterClient_Disabled проверяет, что без ключа клиент неактивен
// и не ходит в сеть
func TestOpenRouterClient_Disabled(t *testing.T) {
	var called atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer srv.Close()

	client := NewOpenRouterClient(OpenRouterConfig{BaseURL: srv.URL})
	if client.Enabled() {
		t.Error("Expected client without API key to be disabled")
	}

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
	if called.Load() {
		t.Error("Expected no HTTP calls without API key")
	}
}

// TestOpenRouterClient_CompleteContextCancelled проверяет прерывание по контексту
func TestOpenRouterClient_CompleteContextCancelled(t *testing.T) {
	client, _ := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "sys", "user")
	if err == nil {
		t.Fatal("Expected context error, got nil")
	}
}

// TestOpenRouterClient_Defaults проверяет значения по умолчанию
func TestOpenRouterClient_Defaults(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "key"})

	if client.baseURL != defaultOpenRouterBaseURL {
		t.Errorf("Expected default base URL, got %s", client.baseURL)
	}
	if client.model != defaultOpenRouterModel {
		t.Errorf("Expected default model, got %s", client.model)
	}
	if client.temperature != defaultLLMTemperature {
		t.Errorf("Expected default temperature, got %v", client.temperature)
	}
	if client.maxTokens != defaultLLMMaxTokens {
		t.Errorf("Expected default max tokens, got %d", client.maxTokens)
	}
	if client.Name() != "openrouter:"+defaultOpenRouterModel {
		t.Errorf("Unexpected provider name: %s", client.Name())
	}
	if !client.Enabled() {
		t.Error("Expected client with API key to be enabled")
	}
}

// TestParseRetryAfter проверяет разбор заголовка Retry-After
func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"Seconds", "2", 2 * time.Second},
		{"Zero", "0", 0},
		{"Garbage", "soon", 0},
		{"Empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			if got := parseRetryAfter(resp); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}

	t.Run("HTTPDate", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set("Retry-After", time.Now().Add(3*time.Second).UTC().Format(http.TimeFormat))
		got := parseRetryAfter(resp)
		if got <= 0 || got > 3*time.Second {
			t.Errorf("Expected duration in (0, 3s], got %v", got)
		}
	})
}
