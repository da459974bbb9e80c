package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Open opens sqlite with sensible defaults.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return db, nil
}

// MemoryDSN returns a DSN naming a fresh shared-cache in-memory database.
// The database lives as long as at least one connection to it stays open.
func MemoryDSN() string {
	return fmt.Sprintf("file:mtxshell-%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
}

// OpenMemory opens a private in-memory catalog database and applies the
// embedded migrations to it. Nothing is written to disk.
func OpenMemory() (*sql.DB, error) {
	dsn := MemoryDSN()
	db, err := Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// Pin the first connection before migrations run on their own handle,
	// otherwise the in-memory database is dropped between the two.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return db, nil
}

// WithTx runs fn in a transaction, rolling back if fn fails.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
