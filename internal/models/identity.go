package models

import "github.com/google/uuid"

// Identity is the authenticated caller of an operation. A nil *Identity means anonymous.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// IsAdmin reports whether the identity carries the admin role. Safe on nil.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
