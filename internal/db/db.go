package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver identifies the SQL dialect behind a connection.
type Driver string

// Supported drivers.
const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

// DriverFor picks the driver from a DSN. Postgres URLs select Postgres;
// anything else is treated as a SQLite file path.
func DriverFor(dsn string) Driver {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open opens a database connection for the DSN and configures it.
func Open(dsn string) (*sql.DB, Driver, error) {
	driver := DriverFor(dsn)
	if driver == Postgres {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("opening database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("connecting to database: %w", err)
		}
		return db, driver, nil
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	// Set pragmas for performance and correctness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, driver, nil
}

// Rebind rewrites ? placeholders into the driver's native form.
func Rebind(driver Driver, query string) string {
	if driver != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
