package permissions

// Roles, in decreasing order of capability.
const (
	RoleAdministrador = "administrador"
	RoleExclusao      = "exclusao"
	RoleEdicao        = "edicao"
	RoleLeitura       = "leitura"
)

// Actions a role can be granted.
const (
	ActionRead        = "read"
	ActionCreate      = "create"
	ActionEdit        = "edit"
	ActionDelete      = "delete"
	ActionManageUsers = "manage_users"
)

// Roles lists every valid role. The set is fixed at compile time and is not
// configuration-driven.
var Roles = []string{RoleAdministrador, RoleExclusao, RoleEdicao, RoleLeitura}

var rolePermissions = map[string]map[string]struct{}{
	RoleAdministrador: actionSet(ActionRead, ActionCreate, ActionEdit, ActionDelete, ActionManageUsers),
	RoleExclusao:      actionSet(ActionRead, ActionCreate, ActionEdit, ActionDelete),
	RoleEdicao:        actionSet(ActionRead, ActionCreate, ActionEdit),
	RoleLeitura:       actionSet(ActionRead),
}

func actionSet(actions ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// HasPermission reports whether a user with the given role may perform action.
// Inactive users are denied everything, administrators included. An unknown
// role has no permissions.
func HasPermission(role string, isActive bool, action string) bool {
	if !isActive {
		return false
	}
	allowed, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = allowed[action]
	return ok
}

// ValidRole reports whether role is one of the fixed role names.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
