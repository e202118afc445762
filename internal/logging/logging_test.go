package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestParseLevel проверяет разбор текстовых уровней логирования
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestAsyncHandlerDelivery проверяет, что записи доходят до внутреннего
// обработчика и Close дожидается буфера
func TestAsyncHandlerDelivery(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	sink := newAsyncSink(16)
	logger := slog.New(&asyncHandler{inner: inner, sink: sink})

	logger.Info("first message", "key", "value")
	logger.Warn("second message")
	sink.Close()

	out := buf.String()
	if !strings.Contains(out, "first message") {
		t.Errorf("Expected first message in output, got %q", out)
	}
	if !strings.Contains(out, "second message") {
		t.Errorf("Expected second message in output, got %q", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("Expected attribute in output, got %q", out)
	}
}

// TestAsyncHandlerWithAttrs проверяет, что атрибуты производного
// обработчика сохраняются при асинхронной доставке
func TestAsyncHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	sink := newAsyncSink(16)
	logger := slog.New(&asyncHandler{inner: inner, sink: sink})

	logger.With("component", "test_component").Info("tagged")
	sink.Close()

	out := buf.String()
	if !strings.Contains(out, `"component":"test_component"`) {
		t.Errorf("Expected component attribute in output, got %q", out)
	}
}

// TestAsyncHandlerLevelFilter проверяет, что уровень внутреннего
// обработчика отфильтровывает записи ниже порога
func TestAsyncHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	sink := newAsyncSink(16)
	logger := slog.New(&asyncHandler{inner: inner, sink: sink})

	logger.Info("filtered out")
	logger.Error("kept")
	sink.Close()

	out := buf.String()
	if strings.Contains(out, "filtered out") {
		t.Errorf("Info record should be filtered at WARN level, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("Expected error record in output, got %q", out)
	}
}
