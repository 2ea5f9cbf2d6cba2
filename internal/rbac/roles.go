package rbac

// Role names. Keep these stable; they are part of auth contracts.
const (
	RoleOwner      = "owner"
	RoleStaff      = "staff"
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
