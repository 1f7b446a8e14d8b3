package keshavai

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/keshav-ai/keshavai/observability"
)

// SQLiteStore is an SQLite-backed implementation of Store, suitable as
// the on-device durable mirror of chat state.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger observability.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database at databasePath
// and prepares the document table.
func NewSQLiteStore(databasePath string, logger observability.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", databasePath+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if logger == nil {
		logger = observability.NewNullLogger()
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createDocumentsTableSQL := `
    CREATE TABLE IF NOT EXISTS documents (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );`

	if _, err := s.db.ExecContext(ctx, createDocumentsTableSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	return nil
}

// Get retrieves the document stored under key, or ErrKeyNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	selectSQL := `SELECT value FROM documents WHERE key = ?`
	err := s.db.QueryRowContext(ctx, selectSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to query document (key: %s): %w", key, err)
	}

	return value, nil
}

// Set stores value under key, replacing any previous document.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for set: %w", err)
	}
	defer tx.Rollback()

	upsertSQL := `
    INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
    ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := tx.ExecContext(ctx, upsertSQL, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert document (key: %s): %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit set (key: %s): %w", key, err)
	}

	return nil
}

// Delete removes the document stored under key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleteSQL := `DELETE FROM documents WHERE key = ?`
	result, err := s.db.ExecContext(ctx, deleteSQL, key)
	if err != nil {
		return fmt.Errorf("failed to delete document (key: %s): %w", key, err)
	}

	if _, err := result.RowsAffected(); err != nil {
		s.logger.WithErr(err).Warn("failed to read rows affected for delete")
	}

	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
