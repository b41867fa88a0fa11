package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Identity is what an identity provider vouches for.
type Identity struct {
	Email  string
	Name   string
	Domain string
}

// Verifier checks a bearer token with an identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// DefaultTokenInfoURL is Google's ID token introspection endpoint.
const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// TokenInfoVerifier verifies Google ID tokens with the tokeninfo endpoint.
type TokenInfoVerifier struct {
	Endpoint string
	// ClientID, when set, must equal the token's audience.
	ClientID string
	Client   *http.Client
}

// NewTokenInfoVerifier returns a verifier for the given endpoint. An empty
// endpoint uses Google's.
func NewTokenInfoVerifier(endpoint, clientID string) *TokenInfoVerifier {
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	return &TokenInfoVerifier{
		Endpoint: endpoint,
		ClientID: clientID,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfo struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	HostedDomain  string `json:"hd"`
	Audience      string `json:"aud"`
}

// Verify implements Verifier.
func (v *TokenInfoVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.Endpoint+"?id_token="+url.QueryEscape(token), nil)
	if err != nil {
		return Identity{}, fmt.Errorf("building tokeninfo request: %w", err)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Identity{}, fmt.Errorf("tokeninfo returned %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("decoding tokeninfo: %w", err)
	}
	if info.EmailVerified == "false" {
		return Identity{}, fmt.Errorf("email not verified")
	}
	if v.ClientID != "" && info.Audience != v.ClientID {
		return Identity{}, fmt.Errorf("token audience mismatch")
	}

	return Identity{Email: info.Email, Name: info.Name, Domain: info.HostedDomain}, nil
}
