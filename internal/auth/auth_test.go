package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/model"
)

type fakeVerifier struct {
	identities map[string]Identity
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (Identity, error) {
	id, ok := f.identities[token]
	if !ok {
		return Identity{}, errors.New("unknown token")
	}
	return id, nil
}

type fakeSettings map[string]string

func (f fakeSettings) Setting(_ context.Context, key string) (string, bool, error) {
	v, ok := f[key]
	return v, ok, nil
}

type brokenSettings struct{}

func (brokenSettings) Setting(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store offline")
}

func newTestAuthenticator(settings SettingsReader) *Authenticator {
	return &Authenticator{
		Verifier: &fakeVerifier{identities: map[string]Identity{
			"alice": {Email: "alice@lab.edu", Name: "Alice", Domain: "lab.edu"},
			"bob":   {Email: "bob@lab.edu", Name: "Bob", Domain: "lab.edu"},
			"eve":   {Email: "eve@evil.com", Name: "Eve", Domain: "evil.com"},
			"anon":  {Name: "No Email", Domain: "lab.edu"},
		}},
		Domain:   "lab.edu",
		Settings: settings,
	}
}

func TestAuthenticateRoles(t *testing.T) {
	a := newTestAuthenticator(fakeSettings{model.SettingAdmins: `["alice@lab.edu"]`})
	ctx := context.Background()

	p, err := a.Authenticate(ctx, "alice")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Role != model.RoleAdmin || p.Name != "Alice" {
		t.Errorf("expected admin Alice, got %+v", p)
	}

	p, err = a.Authenticate(ctx, "bob")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Role != model.RoleMember {
		t.Errorf("expected member, got %q", p.Role)
	}
}

func TestAuthenticateFailsClosed(t *testing.T) {
	a := newTestAuthenticator(fakeSettings{})
	ctx := context.Background()

	for _, token := range []string{"", "   ", "unknown", "eve", "anon", LocalToken} {
		p, err := a.Authenticate(ctx, token)
		if p != nil {
			t.Errorf("token %q: expected no principal, got %+v", token, p)
		}
		if apperr.KindOf(err) != apperr.KindUnauthorized {
			t.Errorf("token %q: expected Unauthorized, got %v", token, err)
		}
	}
}

func TestAuthenticateEmptyDomainRejectsAll(t *testing.T) {
	a := newTestAuthenticator(fakeSettings{})
	a.Domain = ""
	if _, err := a.Authenticate(context.Background(), "alice"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected Unauthorized with no configured domain, got %v", err)
	}
}

func TestAuthenticateLocalWhenEnabled(t *testing.T) {
	a := newTestAuthenticator(fakeSettings{model.SettingAdmins: `["local@lab.edu"]`})
	a.AllowLocal = true

	p, err := a.Authenticate(context.Background(), LocalToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Email != "local@lab.edu" || p.Role != model.RoleAdmin {
		t.Errorf("unexpected local principal %+v", p)
	}
}

func TestAdminCheckFailsClosed(t *testing.T) {
	for _, settings := range []SettingsReader{
		fakeSettings{},
		fakeSettings{model.SettingAdmins: "alice@lab.edu"},
		fakeSettings{model.SettingAdmins: `{"alice@lab.edu": true}`},
		brokenSettings{},
		nil,
	} {
		a := newTestAuthenticator(settings)
		p, err := a.Authenticate(context.Background(), "alice")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if p.Role != model.RoleMember {
			t.Errorf("settings %#v: expected member, got %q", settings, p.Role)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		admins   string
		email    string
		expected bool
	}{
		{`["a@lab.edu","b@lab.edu"]`, "b@lab.edu", true},
		{`["a@lab.edu"]`, "c@lab.edu", false},
		{`[]`, "a@lab.edu", false},
		{``, "a@lab.edu", false},
		{`not json`, "a@lab.edu", false},
		{`["a@lab.edu"]`, "", false},
	}

	for _, tt := range tests {
		if got := IsAdmin(tt.admins, tt.email); got != tt.expected {
			t.Errorf("IsAdmin(%q, %q) = %v, want %v", tt.admins, tt.email, got, tt.expected)
		}
	}
}

func TestAuthorize(t *testing.T) {
	admin := &model.Principal{Email: "a@lab.edu", Role: model.RoleAdmin}
	member := &model.Principal{Email: "m@lab.edu", Role: model.RoleMember}

	if err := Authorize(admin, model.RoleAdmin); err != nil {
		t.Errorf("admin denied: %v", err)
	}
	if err := Authorize(member, model.RoleMember); err != nil {
		t.Errorf("member denied: %v", err)
	}
	if err := Authorize(member, model.RoleAdmin); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected Forbidden, got %v", err)
	}
	if err := Authorize(nil, model.RoleMember); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestTokenInfoVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id_token") {
		case "good":
			w.Write([]byte(`{"email":"alice@lab.edu","email_verified":"true","name":"Alice","hd":"lab.edu","aud":"client-1"}`))
		case "unverified":
			w.Write([]byte(`{"email":"alice@lab.edu","email_verified":"false","hd":"lab.edu","aud":"client-1"}`))
		case "garbage":
			w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_token"}`))
		}
	}))
	t.Cleanup(server.Close)

	v := NewTokenInfoVerifier(server.URL, "client-1")
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "alice@lab.edu" || id.Domain != "lab.edu" || id.Name != "Alice" {
		t.Errorf("unexpected identity %+v", id)
	}

	for _, token := range []string{"unverified", "garbage", "expired"} {
		if _, err := v.Verify(ctx, token); err == nil {
			t.Errorf("token %q: expected error", token)
		}
	}

	other := NewTokenInfoVerifier(server.URL, "client-2")
	if _, err := other.Verify(ctx, "good"); err == nil {
		t.Error("expected audience mismatch error")
	}
}
