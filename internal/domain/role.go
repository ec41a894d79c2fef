package domain

// Role enumerates the principal roles known to the fleet.
type Role string

const (
	RoleAdministrator     Role = "ADMINISTRATOR"
	RoleWarehouseManager  Role = "WAREHOUSE_MANAGER"
	RoleWarehouseOperator Role = "WAREHOUSE_OPERATOR"
	RoleTeacher           Role = "TEACHER"
	RoleStudent           Role = "STUDENT"
)

// Roles returns every enumerated role in declaration order.
func Roles() []Role {
	return []Role{
		RoleAdministrator,
		RoleWarehouseManager,
		RoleWarehouseOperator,
		RoleTeacher,
		RoleStudent,
	}
}

// ParseRole reports whether s names an enumerated role.
func ParseRole(s string) (Role, bool) {
	for _, role := range Roles() {
		if string(role) == s {
			return role, true
		}
	}
	return "", false
}
