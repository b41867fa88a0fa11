package db

import (
	"database/sql"
	"fmt"
)

// sqliteSchema stores every named table as a header plus rows of JSON
// encoded cells. Row order is insertion order (by id).
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sheets (
    name       TEXT PRIMARY KEY,
    header     TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sheet_rows (
    id    INTEGER PRIMARY KEY AUTOINCREMENT,
    sheet TEXT NOT NULL REFERENCES sheets(name),
    cells TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, id);

CREATE TABLE IF NOT EXISTS secrets (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sheets (
    name       TEXT PRIMARY KEY,
    header     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sheet_rows (
    id    BIGSERIAL PRIMARY KEY,
    sheet TEXT NOT NULL REFERENCES sheets(name),
    cells TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, id);

CREATE TABLE IF NOT EXISTS secrets (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB, driver Driver) error {
	schema := sqliteSchema
	if driver == Postgres {
		schema = postgresSchema
	}
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
