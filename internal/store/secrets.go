package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GetJWTSecret retrieves the local token signing key from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses insert-if-absent + re-SELECT to avoid a TOCTOU race on concurrent startup.
// The key lives outside the Settings table so snapshot reads never expose it.
func (s *Store) GetJWTSecret(ctx context.Context) (string, error) {
	// Try to generate and insert first (safe against races).
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO secrets (key, value) VALUES ('jwt_secret', ?) ON CONFLICT (key) DO NOTHING`),
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM secrets WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}
