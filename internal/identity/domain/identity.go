package domain

import userdomain "sockgate/internal/user/domain"

// Identity is the resolved, read-only view of an authenticated subject that
// gets attached to a connection. It is built once at authentication time;
// guards and handlers only ever read it.
type Identity struct {
	ID          string
	DisplayName string
	Role        userdomain.Role
	Status      userdomain.UserStatus
	IsActive    bool
	SessionID   string
}

// IsAdmin reports whether the identity holds the administrative role, which
// bypasses role and ownership checks.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == userdomain.RoleAdmin
}
