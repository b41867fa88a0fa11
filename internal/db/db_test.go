package db

import "testing"

func TestDriverFor(t *testing.T) {
	tests := []struct {
		dsn      string
		expected Driver
	}{
		{"labtrack.sqlite3", SQLite},
		{":memory:", SQLite},
		{"postgres://lab:pw@localhost/labtrack?sslmode=disable", Postgres},
		{"PostgreSQL://db/labtrack", Postgres},
	}

	for _, tt := range tests {
		if got := DriverFor(tt.dsn); got != tt.expected {
			t.Errorf("DriverFor(%q) = %q, want %q", tt.dsn, got, tt.expected)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM sheet_rows WHERE sheet = ? ORDER BY id LIMIT 1 OFFSET ?"
	if got := Rebind(SQLite, q); got != q {
		t.Errorf("sqlite query changed: %q", got)
	}
	want := "SELECT id FROM sheet_rows WHERE sheet = $1 ORDER BY id LIMIT 1 OFFSET $2"
	if got := Rebind(Postgres, q); got != want {
		t.Errorf("Rebind(postgres) = %q, want %q", got, want)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)
	if err := EnsureSchema(database, SQLite); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}
