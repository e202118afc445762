package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"bionorm/normalization"

	_ "github.com/mattn/go-sqlite3"
)

// CacheDB персистентный кэш результатов нормализации поверх SQLite.
// Реализует normalization.CacheStore: истечение TTL проверяется лениво
// при чтении, конкурирующие записи по одному ключу разрешаются по принципу
// "последняя запись побеждает" (INSERT OR REPLACE)
type CacheDB struct {
	conn *sql.DB

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCacheDB создает новое подключение к базе данных кэша
func NewCacheDB(dbPath string) (*CacheDB, error) {
	return NewCacheDBWithConfig(dbPath, DBConfig{})
}

// NewCacheDBWithConfig создает новое подключение к базе данных кэша с конфигурацией
func NewCacheDBWithConfig(dbPath string, config DBConfig) (*CacheDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(10)
	}

	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}

	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	// WAL позволяет множественным читателям работать одновременно без блокировок
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Printf("[CacheDB] Warning: failed to enable WAL mode: %v", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Printf("[CacheDB] Warning: failed to set busy timeout: %v", err)
	}

	cacheDB := &CacheDB{conn: conn}

	if err := InitCacheSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return cacheDB, nil
}

// InitCacheSchema инициализирует схему базы данных кэша
func InitCacheSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,                    -- sha256 от категории и очищенного термина
		result_json TEXT NOT NULL,               -- сериализованный результат нормализации
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}

	return nil
}

// Close закрывает подключение к базе данных кэша
func (c *CacheDB) Close() error {
	return c.conn.Close()
}

// Get возвращает неистекшую запись по ключу.
// Истекшая или нечитаемая запись удаляется и считается промахом
func (c *CacheDB) Get(key string) (*normalization.CacheEntry, bool) {
	var resultJSON string
	var createdAt, expiresAt time.Time

	err := c.conn.QueryRow(
		`SELECT result_json, created_at, expires_at FROM cache_entries WHERE key = ?`,
		key,
	).Scan(&resultJSON, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		log.Printf("[CacheDB] Warning: failed to read cache entry: %v", err)
		c.misses.Add(1)
		return nil, false
	}

	entry := &normalization.CacheEntry{
		Key:       key,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}

	if entry.Expired(time.Now()) {
		c.deleteEntry(key)
		c.evictions.Add(1)
		c.misses.Add(1)
		return nil, false
	}

	var result normalization.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		log.Printf("[CacheDB] Warning: dropping unreadable cache entry: %v", err)
		c.deleteEntry(key)
		c.misses.Add(1)
		return nil, false
	}
	entry.Result = &result

	c.hits.Add(1)
	return entry, true
}

// Put сохраняет результат с заданным TTL.
// Ошибки записи логируются и не прерывают нормализацию
func (c *CacheDB) Put(key string, result *normalization.Result, ttl time.Duration) {
	if result == nil || ttl <= 0 {
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		log.Printf("[CacheDB] Warning: failed to marshal result: %v", err)
		return
	}

	// Времена храним в UTC: SQLite сравнивает метки как текст,
	// и смешение часовых поясов ломает выборку по expires_at
	now := time.Now().UTC()
	_, err = c.conn.Exec(
		`INSERT OR REPLACE INTO cache_entries (key, result_json, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		key, string(resultJSON), now, now.Add(ttl),
	)
	if err != nil {
		log.Printf("[CacheDB] Warning: failed to store cache entry: %v", err)
	}
}

// Stats возвращает счетчики кэша
func (c *CacheDB) Stats() normalization.CacheStats {
	stats := normalization.CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}

	var size int
	if err := c.conn.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&size); err != nil {
		log.Printf("[CacheDB] Warning: failed to count cache entries: %v", err)
	} else {
		stats.Size = size
	}

	return stats
}

// Clear полностью очищает кэш
func (c *CacheDB) Clear() error {
	if _, err := c.conn.Exec(`DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// PurgeExpired удаляет все истекшие записи и возвращает их число.
// Вызывается периодически для сдерживания роста файла БД
func (c *CacheDB) PurgeExpired() (int64, error) {
	result, err := c.conn.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}

	c.evictions.Add(purged)
	return purged, nil
}

func (c *CacheDB) deleteEntry(key string) {
	if _, err := c.conn.Exec(`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		log.Printf("[CacheDB] Warning: failed to delete cache entry: %v", err)
	}
}
