package model

// Principal is an authenticated caller.
type Principal struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// DisplayName is the name shown in notifications and audit entries.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:  2,
		RoleMember: 1,
	}
	return levels[minimum] > 0 && levels[role] >= levels[minimum]
}
