// Package logging настраивает глобальный структурированный логгер.
// Записи сериализуются в JSON и пишутся в stdout асинхронно через
// буферизованный канал, чтобы обработка запросов не ждала вывода.
package logging

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// DefaultBufferSize размер буфера записей при некорректной конфигурации
const DefaultBufferSize = 100

// ParseLevel преобразует текстовый уровень логирования в slog.Level.
// Неизвестное значение дает уровень Info
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup устанавливает глобальный slog-логгер: JSON-вывод в stdout с
// асинхронной буферизацией на bufferSize записей. Возвращает функцию
// остановки, которая дописывает накопленные записи; вызывается при
// завершении процесса
func Setup(level string, bufferSize int) func() {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	inner := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	sink := newAsyncSink(bufferSize)
	slog.SetDefault(slog.New(&asyncHandler{inner: inner, sink: sink}))

	return func() {
		sink.Close()
		if n := sink.dropped.Load(); n > 0 {
			log.Printf("logging: dropped %d records due to full buffer", n)
		}
	}
}

// job запись вместе с обработчиком, накопившим ее атрибуты
type job struct {
	handler slog.Handler
	record  slog.Record
}

// asyncSink фоновый потребитель записей. Производные обработчики
// (WithAttrs/WithGroup) делят один канал и один счетчик потерь
type asyncSink struct {
	jobs    chan job
	done    chan struct{}
	dropped atomic.Int64
}

func newAsyncSink(bufferSize int) *asyncSink {
	s := &asyncSink{
		jobs: make(chan job, bufferSize),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *asyncSink) run() {
	for j := range s.jobs {
		_ = j.handler.Handle(context.Background(), j.record)
	}
	close(s.done)
}

// Close прекращает прием записей и ждет, пока фоновый потребитель
// допишет буфер. Повторный вызов паникует; вызывается один раз
func (s *asyncSink) Close() {
	close(s.jobs)
	<-s.done
}

// asyncHandler обертка slog.Handler: ставит запись в очередь вместо
// немедленной записи. Переполненный буфер отбрасывает запись, логирование
// никогда не блокирует вызывающего
type asyncHandler struct {
	inner slog.Handler
	sink  *asyncSink
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(ctx context.Context, r slog.Record) error {
	select {
	case h.sink.jobs <- job{handler: h.inner, record: r.Clone()}:
	default:
		h.sink.dropped.Add(1)
	}
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{inner: h.inner.WithAttrs(attrs), sink: h.sink}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{inner: h.inner.WithGroup(name), sink: h.sink}
}
