package ai

import "context"

// CompletionProvider интерфейс для всех провайдеров языковых моделей
type CompletionProvider interface {
	// Complete выполняет запрос к модели и возвращает текст ответа
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Name возвращает имя провайдера
	Name() string
	// Enabled проверяет, активен ли провайдер
	Enabled() bool
}
