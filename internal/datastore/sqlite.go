// Package datastore exports the final parts sequence to a local SQLite database.
package datastore

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/brickmass/internal/parts"
)

// SQLiteStore implements the Store interface for local SQLite storage
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	tx     *sql.Tx
}

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
	}
}

// Connect opens a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps in-memory databases consistent across statements
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

// CreateTable creates a new table with the given schema if it doesn't exist
func (s *SQLiteStore) CreateTable(schema string) error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// BatchInsert inserts multiple records into the specified table. Inside
// ReplaceParts it joins the running transaction.
func (s *SQLiteStore) BatchInsert(table string, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		return insertAll(tx, table, records)
	})
}

// ReplaceParts recreates the contents of the parts table from pieces in a
// single transaction. Later duplicates of an id replace earlier ones.
func (s *SQLiteStore) ReplaceParts(pieces []parts.Part) error {
	if err := s.CreateTable(PartsSchema); err != nil {
		return err
	}

	records := make([]map[string]any, 0, len(pieces))
	for _, p := range pieces {
		record, err := PartRecord(p)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + PartsTable); err != nil {
			return fmt.Errorf("failed to clear %s: %w", PartsTable, err)
		}
		return s.BatchInsert(PartsTable, records)
	})
}

// inTx runs fn in a transaction, reusing the open one when called from
// inside another inTx. The pool holds a single connection, so a second
// Begin would block.
func (s *SQLiteStore) inTx(fn func(tx *sql.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	defer func() {
		s.tx = nil
		// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertAll(tx *sql.Tx, table string, records []map[string]any) error {
	// Get column names from the first record, sorted for a stable statement
	columns := make([]string, 0, len(records[0]))
	for col := range records[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = record[col]
		}

		if _, err := stmt.Exec(values...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
