package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

// Store is the sqlite-backed enrollment journal.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens the journal at dbPath. An empty path or ":memory:" keeps the
// journal in memory for the life of the process.
func New(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	inMemory := dbPath == "" || dbPath == memoryDSN
	if inMemory {
		dbPath = memoryDSN
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer, and an in-memory
	// database exists only on the connection that created it. A single
	// long-lived connection covers both.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := migrateJournal(context.Background(), db, schemaFS, dbPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// Path reports where the journal lives, ":memory:" for in-memory journals.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) Close() error {
	return s.db.Close()
}
