package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"bionorm/normalization"

	_ "github.com/mattn/go-sqlite3"
)

// DBConfig конфигурация подключения к БД (используется всеми обертками пакета)
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServiceDB обертка для работы с сервисной базой данных:
// конфигурация приложения, её история и журнал результатов нормализации
type ServiceDB struct {
	conn *sql.DB
}

// NewServiceDB создает новое подключение к сервисной базе данных
func NewServiceDB(dbPath string) (*ServiceDB, error) {
	config := DBConfig{}

	// Для in-memory SQLite требуется использовать ровно одно соединение,
	// иначе каждое новое соединение будет получать пустую БД без таблиц/миграций.
	if isInMemoryServiceDB(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewServiceDBWithConfig(dbPath, config)
}

// isInMemoryServiceDB определяет, что путь относится к in-memory SQLite
func isInMemoryServiceDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}

	// Формат file:memdb?_mode=memory&cache=shared также хранит БД в памяти
	if strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory") {
		return true
	}

	return false
}

// NewServiceDBWithConfig создает новое подключение к сервисной базе данных с конфигурацией
func NewServiceDBWithConfig(dbPath string, config DBConfig) (*ServiceDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open service database: %w", err)
	}

	// Настройка connection pooling
	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite плохо справляется с большим количеством одновременных соединений
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

	// Проверяем подключение
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping service database: %w", err)
	}

	// Включаем поддержку FOREIGN KEY constraints в SQLite
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL позволяет множественным читателям работать одновременно без блокировок
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Printf("[ServiceDB] Warning: failed to enable WAL mode: %v", err)
	}

	serviceDB := &ServiceDB{conn: conn}

	// Инициализируем схему сервисной БД
	if err := InitServiceSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize service schema: %w", err)
	}

	return serviceDB, nil
}

// Close закрывает подключение к сервисной базе данных
func (db *ServiceDB) Close() error {
	return db.conn.Close()
}

// Ping проверяет подключение к базе данных
func (db *ServiceDB) Ping() error {
	return db.conn.Ping()
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *ServiceDB) GetDB() *sql.DB {
	return db.conn
}

// InitServiceSchema инициализирует схему сервисной базы данных
func InitServiceSchema(db *sql.DB) error {
	schema := `
	-- Актуальная конфигурация приложения (единственная строка)
	CREATE TABLE IF NOT EXISTS app_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- История изменений конфигурации
	CREATE TABLE IF NOT EXISTS app_config_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		config_json TEXT NOT NULL,
		comment TEXT,
		changed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Журнал результатов нормализации; источник данных для экспорта и отчетов
	CREATE TABLE IF NOT EXISTS normalization_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_text TEXT NOT NULL,              -- исходный текст запроса
		category TEXT NOT NULL,                  -- organism, disease, data_type
		context TEXT,                            -- свободная подсказка запроса
		status TEXT NOT NULL,                    -- resolved, uncertain, unresolved
		canonical_id TEXT,                       -- идентификатор выбранного кандидата
		canonical_label TEXT,                    -- название выбранного кандидата
		confidence REAL,                         -- уверенность выбранного кандидата
		strategy TEXT,                           -- стратегия выбранного кандидата
		from_cache INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_normalization_records_category ON normalization_records(category);
	CREATE INDEX IF NOT EXISTS idx_normalization_records_status ON normalization_records(status);
	CREATE INDEX IF NOT EXISTS idx_normalization_records_strategy ON normalization_records(strategy);
	CREATE INDEX IF NOT EXISTS idx_normalization_records_created_at ON normalization_records(created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create service schema: %w", err)
	}

	return nil
}

// SaveConfig сохраняет конфигурацию приложения и пишет ревизию в историю
func (db *ServiceDB) SaveConfig(configJSON, comment string) error {
	if !json.Valid([]byte(configJSON)) {
		return fmt.Errorf("config is not valid JSON")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin config transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO app_config (id, config_json, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = CURRENT_TIMESTAMP
	`, configJSON)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO app_config_history (config_json, comment) VALUES (?, ?)`,
		configJSON, comment,
	)
	if err != nil {
		return fmt.Errorf("failed to record config history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit config: %w", err)
	}

	return nil
}

// LoadConfig возвращает сохраненную конфигурацию.
// Второе значение false означает, что конфигурация еще не сохранялась
func (db *ServiceDB) LoadConfig() (string, bool, error) {
	var configJSON string
	err := db.conn.QueryRow(`SELECT config_json FROM app_config WHERE id = 1`).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load config: %w", err)
	}

	return configJSON, true, nil
}

// ConfigRevision одна ревизия конфигурации из истории
type ConfigRevision struct {
	ID         int64     `json:"id"`
	ConfigJSON string    `json:"config_json"`
	Comment    string    `json:"comment,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// ConfigHistory возвращает последние ревизии конфигурации, новые первыми
func (db *ServiceDB) ConfigHistory(limit int) ([]ConfigRevision, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, config_json, comment, changed_at
		FROM app_config_history
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query config history: %w", err)
	}
	defer rows.Close()

	var revisions []ConfigRevision
	for rows.Next() {
		var rev ConfigRevision
		var comment sql.NullString
		var changedAt sql.NullTime
		if err := rows.Scan(&rev.ID, &rev.ConfigJSON, &comment, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan config revision: %w", err)
		}
		if comment.Valid {
			rev.Comment = comment.String
		}
		if changedAt.Valid {
			rev.ChangedAt = changedAt.Time
		}
		revisions = append(revisions, rev)
	}

	return revisions, rows.Err()
}

// NormalizationRecord строка журнала результатов нормализации
type NormalizationRecord struct {
	ID             int64     `json:"id"`
	RequestText    string    `json:"request_text"`
	Category       string    `json:"category"`
	Context        string    `json:"context,omitempty"`
	Status         string    `json:"status"`
	CanonicalID    string    `json:"canonical_id,omitempty"`
	CanonicalLabel string    `json:"canonical_label,omitempty"`
	Confidence     float64   `json:"confidence"`
	Strategy       string    `json:"strategy,omitempty"`
	FromCache      bool      `json:"from_cache"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordResult записывает результат нормализации в журнал
func (db *ServiceDB) RecordResult(result *normalization.Result) error {
	if result == nil {
		return fmt.Errorf("nil result")
	}

	record := &NormalizationRecord{
		RequestText: result.Request.RawText,
		Category:    string(result.Request.Category),
		Context:     result.Request.Context,
		Status:      string(result.Status),
		FromCache:   result.FromCache,
		ElapsedMs:   result.ElapsedMs,
	}
	if result.Chosen != nil {
		record.CanonicalID = result.Chosen.CanonicalID
		record.CanonicalLabel = result.Chosen.CanonicalLabel
		record.Confidence = result.Chosen.Confidence
		record.Strategy = string(result.Chosen.Source)
	}

	return db.InsertRecord(record)
}

// InsertRecord вставляет строку журнала. Пустые канонические поля
// сохраняются как NULL, чтобы агрегаты не учитывали неразрешенные запросы
func (db *ServiceDB) InsertRecord(record *NormalizationRecord) error {
	var canonicalID, canonicalLabel, strategy, context interface{}
	if record.CanonicalID != "" {
		canonicalID = record.CanonicalID
	}
	if record.CanonicalLabel != "" {
		canonicalLabel = record.CanonicalLabel
	}
	if record.Strategy != "" {
		strategy = record.Strategy
	}
	if record.Context != "" {
		context = record.Context
	}

	var confidence interface{}
	if record.Strategy != "" {
		confidence = record.Confidence
	}

	result, err := db.conn.Exec(`
		INSERT INTO normalization_records
			(request_text, category, context, status, canonical_id, canonical_label,
			 confidence, strategy, from_cache, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RequestText, record.Category, context, record.Status,
		canonicalID, canonicalLabel, confidence, strategy,
		record.FromCache, record.ElapsedMs)
	if err != nil {
		return fmt.Errorf("failed to insert normalization record: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}

	return nil
}

// RecordFilter параметры выборки журнала
type RecordFilter struct {
	Category string
	Status   string
	Limit    int
	Offset   int
}

// ExportRows отдает строки журнала экспортеру
func (db *ServiceDB) ExportRows(filter normalization.ExportFilter) ([]normalization.RecordRow, error) {
	records, err := db.ListRecords(RecordFilter{
		Category: filter.Category,
		Status:   filter.Status,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]normalization.RecordRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, normalization.RecordRow{
			ID:             rec.ID,
			RequestText:    rec.RequestText,
			Category:       rec.Category,
			Status:         rec.Status,
			CanonicalID:    rec.CanonicalID,
			CanonicalLabel: rec.CanonicalLabel,
			Confidence:     rec.Confidence,
			Strategy:       rec.Strategy,
			FromCache:      rec.FromCache,
			ElapsedMs:      rec.ElapsedMs,
			CreatedAt:      rec.CreatedAt,
		})
	}

	return rows, nil
}

// ListRecords возвращает строки журнала по фильтру, новые первыми
func (db *ServiceDB) ListRecords(filter RecordFilter) ([]NormalizationRecord, error) {
	query := `
		SELECT id, request_text, category, context, status, canonical_id,
		       canonical_label, confidence, strategy, from_cache, elapsed_ms, created_at
		FROM normalization_records
	`

	var conditions []string
	var args []interface{}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query normalization records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]NormalizationRecord, error) {
	var records []NormalizationRecord
	for rows.Next() {
		var rec NormalizationRecord
		var context, canonicalID, canonicalLabel, strategy sql.NullString
		var confidence sql.NullFloat64
		var createdAt sql.NullTime

		if err := rows.Scan(
			&rec.ID, &rec.RequestText, &rec.Category, &context, &rec.Status,
			&canonicalID, &canonicalLabel, &confidence, &strategy,
			&rec.FromCache, &rec.ElapsedMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan normalization record: %w", err)
		}

		rec.Context = context.String
		rec.CanonicalID = canonicalID.String
		rec.CanonicalLabel = canonicalLabel.String
		rec.Strategy = strategy.String
		if confidence.Valid {
			rec.Confidence = confidence.Float64
		}
		if createdAt.Valid {
			rec.CreatedAt = createdAt.Time
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountRecords возвращает общее число строк журнала
func (db *ServiceDB) CountRecords() (int64, error) {
	var count int64
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM normalization_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count normalization records: %w", err)
	}
	return count, nil
}

// StatusCounts возвращает распределение записей журнала по статусам
func (db *ServiceDB) StatusCounts() (map[string]int64, error) {
	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM normalization_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// StrategyAggregate агрегат журнала по одной стратегии
type StrategyAggregate struct {
	Strategy      string  `json:"strategy"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// StrategyStats возвращает использование стратегий и среднюю уверенность,
// по убыванию частоты. Учитываются только записи с выбранным кандидатом
func (db *ServiceDB) StrategyStats() ([]StrategyAggregate, error) {
	rows, err := db.conn.Query(`
		SELECT strategy, COUNT(*), AVG(confidence)
		FROM normalization_records
		WHERE strategy IS NOT NULL
		GROUP BY strategy
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate strategy stats: %w", err)
	}
	defer rows.Close()

	var aggregates []StrategyAggregate
	for rows.Next() {
		var agg StrategyAggregate
		var avg sql.NullFloat64
		if err := rows.Scan(&agg.Strategy, &agg.Count, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan strategy aggregate: %w", err)
		}
		if avg.Valid {
			agg.AvgConfidence = avg.Float64
		}
		aggregates = append(aggregates, agg)
	}

	return aggregates, rows.Err()
}

// ConfidenceBuckets возвращает гистограмму уверенности выбранных кандидатов.
// Ключ — нижняя граница корзины в десятых долях (0 => [0.0,0.1), ..., 9 => [0.9,1.0])
func (db *ServiceDB) ConfidenceBuckets() (map[int]int64, error) {
	rows, err := db.conn.Query(`
		SELECT
			CASE WHEN confidence >= 1.0 THEN 9 ELSE CAST(confidence * 10 AS INTEGER) END AS bucket,
			COUNT(*)
		FROM normalization_records
		WHERE confidence IS NOT NULL
		GROUP BY bucket
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to build confidence histogram: %w", err)
	}
	defer rows.Close()

	buckets := make(map[int]int64)
	for rows.Next() {
		var bucket int
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan confidence bucket: %w", err)
		}
		buckets[bucket] = count
	}

	return buckets, rows.Err()
}

// ReviewQueue возвращает записи, требующие ручной проверки: неразрешенные,
// неуверенные и все ответы LLM-стратегии. Новые первыми
func (db *ServiceDB) ReviewQueue(limit int) ([]NormalizationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, request_text, category, context, status, canonical_id,
		       canonical_label, confidence, strategy, from_cache, elapsed_ms, created_at
		FROM normalization_records
		WHERE status != ? OR strategy = ?
		ORDER BY id DESC LIMIT ?
	`, string(normalization.StatusResolved), string(normalization.StrategyLLM), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ReviewQueueSize возвращает полное количество записей, ожидающих ручной
// проверки. Условие совпадает с ReviewQueue
func (db *ServiceDB) ReviewQueueSize() (int64, error) {
	var count int64
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM normalization_records
		WHERE status != ? OR strategy = ?
	`, string(normalization.StatusResolved), string(normalization.StrategyLLM)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count review queue: %w", err)
	}
	return count, nil
}

// PurgeRecords удаляет записи журнала старше указанного момента
func (db *ServiceDB) PurgeRecords(before time.Time) (int64, error) {
	// created_at заполняется CURRENT_TIMESTAMP (UTC), сравниваем в UTC
	result, err := db.conn.Exec(`DELETE FROM normalization_records WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge normalization records: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return purged, nil
}
