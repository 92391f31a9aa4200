package rbac

// Role identifies a closed category of authenticated user.
type Role int

// Canonical role identifiers shared with the backend token claims.
const (
	RoleNone          Role = 0
	RoleAdministrator Role = 1
	RoleOwner         Role = 2
	RoleSecurity      Role = 3
)

// Symbolic role keys exposed to screens and JSON clients.
const (
	RoleKeyAdmin    = "ADMIN"
	RoleKeyOwner    = "OWNER"
	RoleKeySecurity = "SECURITY"
)

// Roles lists every known role in display order.
func Roles() []Role {
	return []Role{RoleAdministrator, RoleOwner, RoleSecurity}
}

// Known reports whether r belongs to the canonical enumeration.
func (r Role) Known() bool {
	switch r {
	case RoleAdministrator, RoleOwner, RoleSecurity:
		return true
	}
	return false
}

// Key returns the symbolic key, or "" when the role is unknown.
func (r Role) Key() string {
	switch r {
	case RoleAdministrator:
		return RoleKeyAdmin
	case RoleOwner:
		return RoleKeyOwner
	case RoleSecurity:
		return RoleKeySecurity
	}
	return ""
}

// Name returns the display name of the role.
func (r Role) Name() string {
	switch r {
	case RoleAdministrator:
		return "Administrador"
	case RoleOwner:
		return "Propietario"
	case RoleSecurity:
		return "Seguridad"
	}
	return ""
}

// PermissionSet is the capability record of a role over one feature.
type PermissionSet struct {
	CanView   bool `json:"canView"`
	CanCreate bool `json:"canCreate"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// ViewOnly grants read access only.
func ViewOnly() PermissionSet {
	return PermissionSet{CanView: true}
}

// ManageAll grants every capability.
func ManageAll() PermissionSet {
	return PermissionSet{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true}
}

// Allows reports whether the set grants the action.
func (p PermissionSet) Allows(action Action) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionCreate:
		return p.CanCreate
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	}
	return false
}

// implicationGap is true when a mutating flag is set without view.
func (p PermissionSet) implicationGap() bool {
	return !p.CanView && (p.CanCreate || p.CanEdit || p.CanDelete)
}

// Action is one of the four capabilities of a PermissionSet.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Feature is a unit of console functionality with its own route and permissions.
type Feature struct {
	Key             string                 `json:"key"`
	Label           string                 `json:"label"`
	Icon            string                 `json:"icon"`
	Path            string                 `json:"path"`
	Group           string                 `json:"group"`
	Order           *int                   `json:"order,omitempty"`
	ShowInDashboard bool                   `json:"showInDashboard"`
	QuickAccess     bool                   `json:"quickAccess"`
	Permissions     map[Role]PermissionSet `json:"-"`
}

// PermissionsFor returns the role's set merged over the all-false default.
func (f Feature) PermissionsFor(role Role) PermissionSet {
	if f.Permissions == nil {
		return PermissionSet{}
	}
	return f.Permissions[role]
}

func (f Feature) clone() Feature {
	out := f
	if f.Order != nil {
		order := *f.Order
		out.Order = &order
	}
	if f.Permissions != nil {
		out.Permissions = make(map[Role]PermissionSet, len(f.Permissions))
		for role, set := range f.Permissions {
			out.Permissions[role] = set
		}
	}
	return out
}

// Order is a helper for building Feature literals.
func Order(n int) *int {
	return &n
}
