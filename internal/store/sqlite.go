package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStateStore keeps the state snapshot in a one-row key/value table.
// The upsert runs as a single statement, so the snapshot is replaced
// atomically.
type SQLiteStateStore struct {
	db *sql.DB
}

const stateKey = "session_state"

func NewSQLiteStateStore(dataSourceName string) (*SQLiteStateStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStateStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStateStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS app_state (
        key TEXT PRIMARY KEY,
        value BLOB NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStateStore) Load() ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM app_state WHERE key = ?", stateKey).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Nothing persisted yet
		}
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	return value, nil
}

func (s *SQLiteStateStore) Save(data []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO app_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		stateKey, data,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}
	return nil
}

func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}
