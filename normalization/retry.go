package normalization

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultRetryAttempts количество попыток повтора по умолчанию
	DefaultRetryAttempts = 3
	// DefaultRetryDelay задержка между попытками по умолчанию
	DefaultRetryDelay = 100 * time.Millisecond
	// MaxRetryDelay максимальная задержка между попытками
	MaxRetryDelay = 2 * time.Second
)

// RetryConfig конфигурация retry-логики
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64 // Множитель экспоненциальной задержки
}

// DefaultRetryConfig возвращает конфигурацию retry по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultRetryAttempts,
		InitialDelay: DefaultRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   2.0,
	}
}

// SingleRetryConfig конфигурация для стратегий каскада: не более одного
// повтора с короткой задержкой, без многоуровневых циклов
func SingleRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 300 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   1.0,
	}
}

// RetryableFunc функция, которую можно повторить при ошибке
type RetryableFunc func() error

// IsRetryableError проверяет, можно ли повторить операцию при данной ошибке
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	// Ошибки, при которых операцию стоит повторить
	retryableErrors := []string{
		"database is locked",
		"busy",
		"timeout",
		"connection",
		"temporary",
		"network",
		"deadline exceeded",
		"rate limit",
		"too many requests",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	}

	for _, retryable := range retryableErrors {
		if contains(errStr, retryable) {
			return true
		}
	}

	return false
}

// contains проверяет вхождение подстроки без учета регистра
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Retry выполняет функцию с повторами и экспоненциальной задержкой.
// Прерывается при отмене контекста и при неповторяемых ошибках
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return err
		}

		if attempt < config.MaxAttempts {
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
			delay = time.Duration(float64(delay) * config.Multiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}
	}

	return lastErr
}

// RetryWithLog выполняет функцию с повторами и логированием попыток
func RetryWithLog(ctx context.Context, logger *slog.Logger, operationName string, config RetryConfig, fn RetryableFunc) error {
	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry",
					"operation", operationName,
					"attempts", attempt)
			}
			return nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			logger.Error("operation failed with non-retryable error",
				"operation", operationName,
				"error", err)
			return err
		}

		if attempt < config.MaxAttempts {
			logger.Warn("operation failed, retrying",
				"operation", operationName,
				"attempt", attempt,
				"max_attempts", config.MaxAttempts,
				"delay", delay,
				"error", err)
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
			delay = time.Duration(float64(delay) * config.Multiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		} else {
			logger.Error("operation failed after all attempts",
				"operation", operationName,
				"attempts", config.MaxAttempts,
				"error", err)
		}
	}

	return lastErr
}

// sleepContext ждет заданное время или отмену контекста
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
