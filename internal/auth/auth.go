// Package auth turns bearer tokens into principals and checks their role.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/model"
)

// LocalToken is the literal token for local/offline use. It is refused
// unless the deployment enables it.
const LocalToken = "local"

// SettingsReader reads one settings value.
type SettingsReader interface {
	Setting(ctx context.Context, key string) (string, bool, error)
}

// Authenticator resolves tokens into principals.
type Authenticator struct {
	Verifier Verifier
	// Domain is the only accepted hosted domain. Empty rejects everyone.
	Domain     string
	AllowLocal bool
	Settings   SettingsReader
}

// Authenticate verifies the token and resolves the caller's role. Every
// failure is Unauthorized; no partial principal is ever returned.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Unauthorized("missing token")
	}

	var id Identity
	if token == LocalToken {
		if !a.AllowLocal {
			return nil, apperr.Unauthorized("local mode is disabled")
		}
		id = Identity{Email: "local@" + a.Domain, Name: "Local", Domain: a.Domain}
	} else {
		if a.Verifier == nil {
			return nil, apperr.Unauthorized("token verification failed")
		}
		var err error
		id, err = a.Verifier.Verify(ctx, token)
		if err != nil {
			slog.Warn("token verification failed", "error", err)
			return nil, apperr.Unauthorized("token verification failed")
		}
	}

	if a.Domain == "" || !strings.EqualFold(id.Domain, a.Domain) {
		return nil, apperr.Unauthorized("token verification failed")
	}
	if strings.TrimSpace(id.Email) == "" {
		return nil, apperr.Unauthorized("token verification failed")
	}

	p := &model.Principal{Email: id.Email, Name: id.Name, Role: model.RoleMember}
	if a.isAdmin(ctx, id.Email) {
		p.Role = model.RoleAdmin
	}
	return p, nil
}

func (a *Authenticator) isAdmin(ctx context.Context, email string) bool {
	if a.Settings == nil {
		return false
	}
	value, ok, err := a.Settings.Setting(ctx, model.SettingAdmins)
	if err != nil {
		slog.Error("reading admins setting", "error", err)
		return false
	}
	if !ok {
		return false
	}
	return IsAdmin(value, email)
}

// IsAdmin reports whether email appears in the JSON array of admin emails.
// A malformed list grants nothing.
func IsAdmin(admins, email string) bool {
	if email == "" {
		return false
	}
	var list []string
	if err := json.Unmarshal([]byte(admins), &list); err != nil {
		return false
	}
	for _, a := range list {
		if a == email {
			return true
		}
	}
	return false
}

// Authorize checks that the principal holds at least the given role.
func Authorize(p *model.Principal, role string) error {
	if p == nil {
		return apperr.Unauthorized("not authenticated")
	}
	if !model.RoleAtLeast(p.Role, role) {
		return apperr.Forbidden("requires " + role + " role")
	}
	return nil
}
