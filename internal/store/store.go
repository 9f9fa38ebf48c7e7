// Package store is the thin, typed contract over the relational store
// (§4.1). It exposes per-entity get/list/insert/update operations, an
// atomic-increment helper for counters, and a single-writer guard so only
// one orchestrator drains a given list at a time. Every mutating
// operation is idempotent given the same row key; constraint violations
// surface as *ConflictError.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store owns the sqlite connection backing every entity in §3.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates a new Store, creating the parent directory and applying
// the embedded schema if needed. ":memory:" is accepted for tests.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite only tolerates one writer at a time; serialize our own pool
	// rather than surfacing spurious "database is locked" errors.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the raw connection for components (fileimpact's learning
// store, grouping's suggestion store) that own additional tables on the
// same database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. This is the transactional-update(fn) operation
// of §4.1.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return &TransientError{Op: "begin transaction", Err: err}
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return &TransientError{Op: "commit transaction", Err: err}
	}
	return nil
}

// Paging bounds a list operation's result window.
type Paging struct {
	Limit  int
	Offset int
}

// normalizePaging applies a sane default/ceiling to an unset or
// oversized page size, mirroring the teacher's defensive config loader
// pattern (internal/config/config.go).
func normalizePaging(p Paging) Paging {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
