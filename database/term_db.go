package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"bionorm/normalization"
	"bionorm/normalization/algorithms"

	_ "github.com/mattn/go-sqlite3"
)

// TermDB обертка для работы с базой данных словаря терминов
type TermDB struct {
	conn *sql.DB
}

// NewTermDB создает новое подключение к базе данных словаря
func NewTermDB(dbPath string) (*TermDB, error) {
	return NewTermDBWithConfig(dbPath, DBConfig{})
}

// NewTermDBWithConfig создает новое подключение к базе данных словаря с конфигурацией
func NewTermDBWithConfig(dbPath string, config DBConfig) (*TermDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open term database: %w", err)
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
		return nil, fmt.Errorf("failed to ping term database: %w", err)
	}

	// Включаем поддержку FOREIGN KEY constraints в SQLite
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL позволяет множественным читателям работать одновременно без блокировок
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Printf("[TermDB] Warning: failed to enable WAL mode: %v", err)
	}

	// Ожидание вместо немедленной ошибки "database is locked"
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Printf("[TermDB] Warning: failed to set busy timeout: %v", err)
	}

	termDB := &TermDB{conn: conn}

	// Инициализируем схему
	if err := InitTermSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize term schema: %w", err)
	}

	return termDB, nil
}

// Close закрывает подключение к базе данных словаря
func (db *TermDB) Close() error {
	return db.conn.Close()
}

// Ping проверяет подключение к базе данных
func (db *TermDB) Ping() error {
	return db.conn.Ping()
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *TermDB) GetDB() *sql.DB {
	return db.conn
}

// InitTermSchema инициализирует схему базы данных словаря
func InitTermSchema(db *sql.DB) error {
	schema := `
	-- Канонические термины по категориям
	CREATE TABLE IF NOT EXISTS terms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,                  -- organism, disease, data_type
		canonical_id TEXT NOT NULL,              -- идентификатор авторитетного источника (TaxId, MeSH UID и т.п.)
		canonical_label TEXT NOT NULL,           -- каноническое название
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(category, canonical_id)
	);

	-- Синонимы терминов; normalized хранит очищенную форму для поиска
	CREATE TABLE IF NOT EXISTS term_synonyms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		term_id INTEGER NOT NULL,
		synonym TEXT NOT NULL,
		normalized TEXT NOT NULL,
		FOREIGN KEY(term_id) REFERENCES terms(id) ON DELETE CASCADE,
		UNIQUE(term_id, normalized)
	);

	-- Индексы для ускорения выборок
	CREATE INDEX IF NOT EXISTS idx_terms_category ON terms(category);
	CREATE INDEX IF NOT EXISTS idx_terms_canonical_label ON terms(canonical_label);
	CREATE INDEX IF NOT EXISTS idx_term_synonyms_term_id ON term_synonyms(term_id);
	CREATE INDEX IF NOT EXISTS idx_term_synonyms_normalized ON term_synonyms(normalized);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create term schema: %w", err)
	}

	return nil
}

// StoredTerm запись словаря с метаданными хранения
type StoredTerm struct {
	ID             int64     `json:"id"`
	Category       string    `json:"category"`
	CanonicalID    string    `json:"canonical_id"`
	CanonicalLabel string    `json:"canonical_label"`
	Synonyms       []string  `json:"synonyms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpsertTerm создает или обновляет термин словаря вместе с синонимами
func (db *TermDB) UpsertTerm(category normalization.Category, term normalization.Term) (*StoredTerm, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("invalid category: %q", category)
	}
	if term.CanonicalID == "" || term.CanonicalLabel == "" {
		return nil, fmt.Errorf("term requires canonical_id and canonical_label")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := upsertTermTx(tx, category, term)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit term upsert: %w", err)
	}

	return db.GetTermByID(id)
}

// upsertTermTx выполняет upsert термина в рамках открытой транзакции.
// Синонимы заменяются целиком: старый набор удаляется и записывается новый
func upsertTermTx(tx *sql.Tx, category normalization.Category, term normalization.Term) (int64, error) {
	query := `
		INSERT INTO terms (category, canonical_id, canonical_label, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category, canonical_id) DO UPDATE SET
			canonical_label = excluded.canonical_label,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := tx.Exec(query, string(category), term.CanonicalID, term.CanonicalLabel); err != nil {
		return 0, fmt.Errorf("failed to upsert term: %w", err)
	}

	// При UPDATE по конфликту LastInsertId ненадежен, перечитываем ID по ключу
	var id int64
	err := tx.QueryRow(
		`SELECT id FROM terms WHERE category = ? AND canonical_id = ?`,
		string(category), term.CanonicalID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get term ID: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM term_synonyms WHERE term_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to clear term synonyms: %w", err)
	}

	for _, synonym := range term.Synonyms {
		normalized := algorithms.Clean(synonym)
		if normalized == "" {
			continue
		}
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO term_synonyms (term_id, synonym, normalized) VALUES (?, ?, ?)`,
			id, synonym, normalized,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert synonym %q: %w", synonym, err)
		}
	}

	return id, nil
}

// GetTermByID получает термин по внутреннему ID. Возвращает nil, если термин не найден
func (db *TermDB) GetTermByID(id int64) (*StoredTerm, error) {
	query := `
		SELECT id, category, canonical_id, canonical_label, created_at, updated_at
		FROM terms WHERE id = ?
	`

	stored := &StoredTerm{}
	var createdAt, updatedAt sql.NullTime

	err := db.conn.QueryRow(query, id).Scan(
		&stored.ID, &stored.Category, &stored.CanonicalID, &stored.CanonicalLabel,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term by id: %w", err)
	}

	if createdAt.Valid {
		stored.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		stored.UpdatedAt = updatedAt.Time
	}

	synonyms, err := db.termSynonyms(stored.ID)
	if err != nil {
		return nil, err
	}
	stored.Synonyms = synonyms

	return stored, nil
}

// GetTerm получает термин по категории и каноническому ID. Возвращает nil, если термин не найден
func (db *TermDB) GetTerm(category normalization.Category, canonicalID string) (*StoredTerm, error) {
	var id int64
	err := db.conn.QueryRow(
		`SELECT id FROM terms WHERE category = ? AND canonical_id = ?`,
		string(category), canonicalID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}

	return db.GetTermByID(id)
}

func (db *TermDB) termSynonyms(termID int64) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT synonym FROM term_synonyms WHERE term_id = ? ORDER BY id`,
		termID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query term synonyms: %w", err)
	}
	defer rows.Close()

	var synonyms []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan synonym: %w", err)
		}
		synonyms = append(synonyms, s)
	}

	return synonyms, rows.Err()
}

// ListTerms возвращает все термины категории, отсортированные по каноническому названию
func (db *TermDB) ListTerms(category normalization.Category) ([]StoredTerm, error) {
	rows, err := db.conn.Query(`
		SELECT id, category, canonical_id, canonical_label, created_at, updated_at
		FROM terms WHERE category = ?
		ORDER BY canonical_label COLLATE NOCASE
	`, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list terms: %w", err)
	}
	defer rows.Close()

	var terms []StoredTerm
	for rows.Next() {
		var stored StoredTerm
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(
			&stored.ID, &stored.Category, &stored.CanonicalID, &stored.CanonicalLabel,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		if createdAt.Valid {
			stored.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			stored.UpdatedAt = updatedAt.Time
		}
		terms = append(terms, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Синонимы подтягиваются отдельным запросом на каждый термин:
	// словарные категории невелики, JOIN здесь не окупается
	for i := range terms {
		synonyms, err := db.termSynonyms(terms[i].ID)
		if err != nil {
			return nil, err
		}
		terms[i].Synonyms = synonyms
	}

	return terms, nil
}

// DeleteTerm удаляет термин и его синонимы. Возвращает true, если запись существовала
func (db *TermDB) DeleteTerm(category normalization.Category, canonicalID string) (bool, error) {
	result, err := db.conn.Exec(
		`DELETE FROM terms WHERE category = ? AND canonical_id = ?`,
		string(category), canonicalID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete term: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}
	return affected > 0, nil
}

// CountTerms возвращает число терминов по категориям
func (db *TermDB) CountTerms() (map[normalization.Category]int, error) {
	rows, err := db.conn.Query(`SELECT category, COUNT(*) FROM terms GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count terms: %w", err)
	}
	defer rows.Close()

	counts := make(map[normalization.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan term count: %w", err)
		}
		counts[normalization.Category(category)] = count
	}

	return counts, rows.Err()
}

// ImportTerms массово загружает термины категории в одной транзакции.
// Возвращает число обработанных терминов
func (db *TermDB) ImportTerms(category normalization.Category, terms []normalization.Term) (int, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("invalid category: %q", category)
	}
	if len(terms) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	imported := 0
	for _, term := range terms {
		if term.CanonicalID == "" || term.CanonicalLabel == "" {
			continue
		}
		if _, err := upsertTermTx(tx, category, term); err != nil {
			return 0, err
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	log.Printf("[TermDB] Imported %d terms into category %s", imported, category)
	return imported, nil
}

// LoadDictionary загружает весь словарь из базы в память для матчеров
func (db *TermDB) LoadDictionary() (*normalization.Dictionary, error) {
	rows, err := db.conn.Query(`SELECT id, category, canonical_id, canonical_label FROM terms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load terms: %w", err)
	}
	defer rows.Close()

	type loadedTerm struct {
		id       int64
		category normalization.Category
		term     normalization.Term
	}

	var loaded []loadedTerm
	for rows.Next() {
		var lt loadedTerm
		var category string
		if err := rows.Scan(&lt.id, &category, &lt.term.CanonicalID, &lt.term.CanonicalLabel); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		lt.category = normalization.Category(category)
		loaded = append(loaded, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	synonymsByTerm := make(map[int64][]string)
	synRows, err := db.conn.Query(`SELECT term_id, synonym FROM term_synonyms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load synonyms: %w", err)
	}
	defer synRows.Close()

	for synRows.Next() {
		var termID int64
		var synonym string
		if err := synRows.Scan(&termID, &synonym); err != nil {
			return nil, fmt.Errorf("failed to scan synonym: %w", err)
		}
		synonymsByTerm[termID] = append(synonymsByTerm[termID], synonym)
	}
	if err := synRows.Err(); err != nil {
		return nil, err
	}

	dict := normalization.NewDictionary()
	skipped := 0
	for _, lt := range loaded {
		if !lt.category.Valid() {
			skipped++
			continue
		}
		lt.term.Synonyms = synonymsByTerm[lt.id]
		dict.Add(lt.category, lt.term)
	}

	if skipped > 0 {
		log.Printf("[TermDB] Warning: skipped %d terms with unknown categories", skipped)
	}
	log.Printf("[TermDB] Loaded %d terms into dictionary", dict.Size())

	return dict, nil
}

// SeedDefaults однократно загружает встроенный словарь в пустую базу.
// Повторный запуск не возвращает удаленные пользователем термины
func (db *TermDB) SeedDefaults() error {
	return ensureMigrationApplied(db.conn, "seed_builtin_terms", func() error {
		defaults := normalization.DefaultDictionary()
		total := 0
		for _, category := range normalization.AllCategories() {
			n, err := db.ImportTerms(category, defaults.Terms(category))
			if err != nil {
				return fmt.Errorf("failed to seed category %s: %w", category, err)
			}
			total += n
		}
		log.Printf("[TermDB] Seeded %d builtin terms", total)
		return nil
	})
}
