// Package access holds the authorization rules shared by every transport.
//
// A request is always evaluated against an explicit Caller; nothing here
// reads ambient session state.
package access

import (
	"fmt"

	"github.com/dmitrijs2005/mitrasign/internal/common"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleSigner Role = "signer"
	RoleAdmin  Role = "admin"
)

// ParseRole converts a stored or claimed role name into a Role.
// Unknown names are rejected with common.ErrorValidation.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSigner:
		return RoleSigner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", common.ErrorValidation, s)
	}
}

func (r Role) String() string { return string(r) }

// Caller identifies the authenticated principal of a single request.
type Caller struct {
	ID   string
	Role Role
}

// Anonymous reports whether the caller carries no identity.
func (c Caller) Anonymous() bool { return c.ID == "" }

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleSigner:
		return false
	default:
		return false
	}
}
