package core

// =============================================================================
// PRINCIPAL - The acting user, passed explicitly into every operation
// =============================================================================

// Role is a coarse permission bucket enforced at the boundary.
type Role string

const (
	RoleEmployee       Role = "EMPLOYEE"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
	RoleHRManager      Role = "HR_MANAGER"
	RoleHRAdmin        Role = "HR_ADMIN"
	RoleSystemAdmin    Role = "SYSTEM_ADMIN"
)

// Principal identifies who is performing an operation. Operations take it
// as an argument; there is no ambient "current user".
type Principal struct {
	ID    string
	Roles []Role
}

func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// IsHR reports whether the principal can act on behalf of HR.
func (p Principal) IsHR() bool {
	return p.HasAnyRole(RoleHRManager, RoleHRAdmin, RoleSystemAdmin)
}

// CanAudit reports whether the principal may read audit logs.
func (p Principal) CanAudit() bool {
	return p.HasAnyRole(RoleHRManager, RoleHRAdmin, RoleSystemAdmin, RoleDepartmentHead)
}
