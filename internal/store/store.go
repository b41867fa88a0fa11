// Package store implements the row store over SQL. Every named table is a
// header plus an ordered list of rows; rows are addressed by their position.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erazemk/labtrack/internal/db"
	"github.com/erazemk/labtrack/internal/rows"
)

// Errors returned for unknown tables and out-of-range positions.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowNotFound   = errors.New("row not found")
)

// Store is a row store backed by SQLite or Postgres.
type Store struct {
	db     *sql.DB
	driver db.Driver
}

// New returns a store over an open database with the schema applied.
func New(database *sql.DB, driver db.Driver) *Store {
	return &Store{db: database, driver: driver}
}

func (s *Store) q(query string) string {
	return db.Rebind(s.driver, query)
}

// Ensure creates the table with the given header if it doesn't exist yet.
// An existing table keeps its header.
func (s *Store) Ensure(ctx context.Context, table string, header []string) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO sheets (name, header) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		table, string(data),
	)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

// Read returns the table's header and all rows in order.
func (s *Store) Read(ctx context.Context, table string) (rows.Table, error) {
	var headerJSON string
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT header FROM sheets WHERE name = ?`), table,
	).Scan(&headerJSON)
	if err == sql.ErrNoRows {
		return rows.Table{}, fmt.Errorf("reading %s: %w", table, ErrTableNotFound)
	}
	if err != nil {
		return rows.Table{}, fmt.Errorf("reading %s header: %w", table, err)
	}

	t := rows.Table{Rows: [][]any{}}
	if err := json.Unmarshal([]byte(headerJSON), &t.Header); err != nil {
		return rows.Table{}, fmt.Errorf("decoding %s header: %w", table, err)
	}

	result, err := s.db.QueryContext(ctx,
		s.q(`SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY id`), table,
	)
	if err != nil {
		return rows.Table{}, fmt.Errorf("reading %s rows: %w", table, err)
	}
	defer result.Close()

	for result.Next() {
		var cellsJSON string
		if err := result.Scan(&cellsJSON); err != nil {
			return rows.Table{}, fmt.Errorf("scanning %s row: %w", table, err)
		}
		var cells []any
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return rows.Table{}, fmt.Errorf("decoding %s row: %w", table, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, result.Err()
}

// Append adds a row at the end of the table.
func (s *Store) Append(ctx context.Context, table string, row []any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO sheet_rows (sheet, cells) VALUES (?, ?)`),
		table, string(data),
	)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", table, err)
	}
	return nil
}

// Update replaces the row at position index (0-based, in Read order).
func (s *Store) Update(ctx context.Context, table string, index int, row []any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.rowID(ctx, tx, table, index)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE sheet_rows SET cells = ? WHERE id = ?`), string(data), id,
	); err != nil {
		return fmt.Errorf("updating %s row %d: %w", table, index, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return nil
}

// Delete removes the row at position index. Later rows shift up by one.
func (s *Store) Delete(ctx context.Context, table string, index int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.rowID(ctx, tx, table, index)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM sheet_rows WHERE id = ?`), id); err != nil {
		return fmt.Errorf("deleting %s row %d: %w", table, index, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// rowID resolves a position to the row's storage id.
func (s *Store) rowID(ctx context.Context, tx *sql.Tx, table string, index int) (int64, error) {
	if index < 0 {
		return 0, fmt.Errorf("%s row %d: %w", table, index, ErrRowNotFound)
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		s.q(`SELECT id FROM sheet_rows WHERE sheet = ? ORDER BY id LIMIT 1 OFFSET ?`),
		table, index,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%s row %d: %w", table, index, ErrRowNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("locating %s row %d: %w", table, index, err)
	}
	return id, nil
}
