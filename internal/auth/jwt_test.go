package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, "alice@lab.edu", "Alice", "lab.edu")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.Email != "alice@lab.edu" {
		t.Errorf("expected email 'alice@lab.edu', got %q", claims.Email)
	}
	if claims.Name != "Alice" {
		t.Errorf("expected name 'Alice', got %q", claims.Name)
	}
	if claims.HostedDomain != "lab.edu" {
		t.Errorf("expected hd 'lab.edu', got %q", claims.HostedDomain)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret1", "a@lab.edu", "A", "lab.edu")

	_, err := ValidateToken("secret2", token)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestTokenExpiry(t *testing.T) {
	// Just verify the expiry is set correctly.
	secret := "test"
	token, _ := GenerateToken(secret, "a@lab.edu", "A", "lab.edu")
	claims, _ := ValidateToken(secret, token)

	expiresAt := claims.ExpiresAt.Time
	expectedExpiry := time.Now().Add(TokenExpiry)

	// Should be within a few seconds.
	diff := expectedExpiry.Sub(expiresAt)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestJWTVerifier(t *testing.T) {
	token, _ := GenerateToken("s3cret", "bob@lab.edu", "Bob", "lab.edu")

	id, err := (&JWTVerifier{Secret: "s3cret"}).Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "bob@lab.edu" || id.Domain != "lab.edu" {
		t.Errorf("unexpected identity %+v", id)
	}

	if _, err := (&JWTVerifier{}).Verify(context.Background(), token); err == nil {
		t.Error("expected error for verifier without secret")
	}
}
