package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims carried by callers of the scoring service.
type Claims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Roles    []string  `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the claims carry at least one of roles.
func (c Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// Roles understood by the scoring service.
const (
	RoleAdmin = "admin"
	// RoleInvestigator may score filings and read verdicts.
	RoleInvestigator = "investigator"
	// RoleAuditor may only read verdicts.
	RoleAuditor = "auditor"
	// RoleIngest is held by the filing pipeline that submits filings for scoring.
	RoleIngest = "ingest"
)
