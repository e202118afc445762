package normalization

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultCacheMaxSize максимальное число записей до принудительной очистки
	DefaultCacheMaxSize = 10000
)

// MemoryCache потокобезопасный кэш результатов нормализации в памяти.
// Истечение TTL проверяется лениво при чтении, фоновой очистки нет;
// истекшие записи дополнительно вычищаются при достижении лимита размера.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int

	hits      int64
	misses    int64
	evictions int64

	logger *slog.Logger
}

// NewMemoryCache создает новый кэш в памяти
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		logger:  slog.Default().With("component", "memory_cache"),
	}
}

// Get возвращает неистекшую запись по ключу.
// Истекшая запись удаляется и считается промахом
func (c *MemoryCache) Get(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if entry.Expired(time.Now()) {
		c.mu.Lock()
		// Перепроверка под write-блокировкой: запись могли уже заменить
		if current, ok := c.entries[key]; ok && current.Expired(time.Now()) {
			delete(c.entries, key)
			c.evictions++
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	return entry, true
}

// Put сохраняет результат с заданным TTL.
// Повторная запись по тому же ключу перезаписывает предыдущую
func (c *MemoryCache) Put(key string, result *Result, ttl time.Duration) {
	if result == nil || ttl <= 0 {
		return
	}

	now := time.Now()
	entry := &CacheEntry{
		Key:       key,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.cleanupLocked(now)
	}

	c.entries[key] = entry
}

// cleanupLocked удаляет истекшие записи; вызывается под write-блокировкой
func (c *MemoryCache) cleanupLocked(now time.Time) {
	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}

	// Если истекших не нашлось, кэш переполнен живыми записями:
	// новые записи важнее, вытесняем самую старую
	if removed == 0 && len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldestAt time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.CreatedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.CreatedAt
			}
		}
		if oldestKey != "" {
			delete(c.entries, oldestKey)
			c.evictions++
			removed = 1
		}
	}

	if removed > 0 {
		c.logger.Debug("cache cleanup finished",
			"removed", removed,
			"size", len(c.entries))
	}
}

// Stats возвращает счетчики кэша
func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

// Clear полностью очищает кэш
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

// Len возвращает текущее число записей
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
