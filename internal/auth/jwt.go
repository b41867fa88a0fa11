package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims of a locally issued identity token. The
// names follow Google ID tokens so both verifiers yield the same identity.
type Claims struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	HostedDomain string `json:"hd"`
	jwt.RegisteredClaims
}

// TokenExpiry is the default token lifetime.
const TokenExpiry = 7 * 24 * time.Hour

// GenerateToken creates a new identity token with a unique JTI.
func GenerateToken(secret, email, name, domain string) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", fmt.Errorf("generating JTI: %w", err)
	}

	claims := Claims{
		Email:        email,
		Name:         name,
		HostedDomain: domain,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// JWTVerifier accepts tokens minted by GenerateToken with the same secret.
type JWTVerifier struct {
	Secret string
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if v.Secret == "" {
		return Identity{}, fmt.Errorf("jwt verifier has no secret")
	}
	claims, err := ValidateToken(v.Secret, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Email: claims.Email, Name: claims.Name, Domain: claims.HostedDomain}, nil
}

// generateJTI creates a random token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
