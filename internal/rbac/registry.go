package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AppPrefix is the authenticated root under which every feature is mounted.
const AppPrefix = "/app"

// ErrDuplicateFeature indicates two features share a key.
var ErrDuplicateFeature = errors.New("rbac: duplicate feature key")

// Registry is the immutable, ordered feature table.
type Registry struct {
	features []Feature
	index    map[string]int
	warnings []string
}

// NewRegistry builds a registry preserving the order of features.
func NewRegistry(features ...Feature) (*Registry, error) {
	reg := &Registry{
		features: make([]Feature, 0, len(features)),
		index:    make(map[string]int, len(features)),
	}
	for _, f := range features {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return nil, errors.New("rbac: feature key required")
		}
		if _, exists := reg.index[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFeature, key)
		}
		f = f.clone()
		f.Key = key
		for _, role := range sortedRoles(f.Permissions) {
			if f.Permissions[role].implicationGap() {
				reg.warnings = append(reg.warnings, fmt.Sprintf("feature %q grants role %d mutation without view", key, role))
			}
		}
		reg.index[key] = len(reg.features)
		reg.features = append(reg.features, f)
	}
	return reg, nil
}

// MustRegistry panics when the table is malformed. Used for static tables.
func MustRegistry(features ...Feature) *Registry {
	reg, err := NewRegistry(features...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Warnings lists features whose permissions allow mutation without view.
func (r *Registry) Warnings() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Features returns a copy of the ordered table.
func (r *Registry) Features() []Feature {
	if r == nil {
		return nil
	}
	out := make([]Feature, len(r.features))
	for i, f := range r.features {
		out[i] = f.clone()
	}
	return out
}

// Feature looks up a feature by key.
func (r *Registry) Feature(key string) (Feature, bool) {
	if r == nil {
		return Feature{}, false
	}
	idx, ok := r.index[key]
	if !ok {
		return Feature{}, false
	}
	return r.features[idx].clone(), true
}

// FeaturePath formats a feature path under the app root.
func FeaturePath(path string) string {
	return AppPrefix + "/" + strings.TrimPrefix(path, "/")
}

// ResolveDefaultPathForRole returns the route of the first feature the role can
// view, or "/" when none qualifies.
func (r *Registry) ResolveDefaultPathForRole(role Role) string {
	if r == nil || role == RoleNone {
		return "/"
	}
	for _, f := range r.features {
		if f.PermissionsFor(role).CanView {
			return FeaturePath(f.Path)
		}
	}
	return "/"
}

// Access is the effective permission view of one feature for one role.
// RoleKey is nil when the role is unknown.
type Access struct {
	Feature     *Feature      `json:"feature"`
	Role        Role          `json:"roleId"`
	RoleKey     *string       `json:"roleKey"`
	Permissions PermissionSet `json:"permissions"`
}

// Can mirrors Permissions for templates and JSON clients.
func (a Access) Can() PermissionSet {
	return a.Permissions
}

// Found reports whether the feature key exists in the registry.
func (a Access) Found() bool {
	return a.Feature != nil
}

// ResolveAccess computes the effective permissions of role over featureKey.
// It never fails: unknown features and roles resolve to no access.
func (r *Registry) ResolveAccess(featureKey string, role Role) Access {
	access := Access{Role: role}
	if key := role.Key(); key != "" {
		access.RoleKey = &key
	}
	f, ok := r.Feature(featureKey)
	if !ok {
		return access
	}
	access.Feature = &f
	access.Permissions = f.PermissionsFor(role)
	return access
}

// SidebarItem is a navigation entry.
type SidebarItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Path  string `json:"path"`
	Group string `json:"group"`
}

// Navigation is every derived navigation list for one role snapshot.
type Navigation struct {
	Role               Role          `json:"roleId"`
	AccessibleFeatures []Feature     `json:"accessibleFeatures"`
	SidebarItems       []SidebarItem `json:"sidebarItems"`
	DashboardCards     []Feature     `json:"dashboardCards"`
	QuickAccess        []Feature     `json:"quickAccess"`
	DefaultPath        string        `json:"defaultPath"`
}

// Navigation derives the visible features for role. All lists are computed from
// the same role value.
func (r *Registry) Navigation(role Role) Navigation {
	nav := Navigation{
		Role:               role,
		AccessibleFeatures: []Feature{},
		SidebarItems:       []SidebarItem{},
		DashboardCards:     []Feature{},
		QuickAccess:        []Feature{},
		DefaultPath:        r.ResolveDefaultPathForRole(role),
	}
	if r == nil || role == RoleNone {
		return nav
	}
	for _, f := range r.features {
		if !f.PermissionsFor(role).CanView {
			continue
		}
		f = f.clone()
		nav.AccessibleFeatures = append(nav.AccessibleFeatures, f)
		if f.Path != "" && f.Label != "" {
			nav.SidebarItems = append(nav.SidebarItems, SidebarItem{
				Key:   f.Key,
				Label: f.Label,
				Icon:  f.Icon,
				Path:  FeaturePath(f.Path),
				Group: f.Group,
			})
		}
		if f.ShowInDashboard {
			nav.DashboardCards = append(nav.DashboardCards, f)
		}
		if f.QuickAccess {
			nav.QuickAccess = append(nav.QuickAccess, f)
		}
	}
	sortByOrder(nav.DashboardCards)
	sortByOrder(nav.QuickAccess)
	return nav
}

// sortByOrder sorts ascending by Order; nil orders sort last, ties keep position.
func sortByOrder(features []Feature) {
	sort.SliceStable(features, func(i, j int) bool {
		a, b := features[i].Order, features[j].Order
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

func sortedRoles(perms map[Role]PermissionSet) []Role {
	roles := make([]Role, 0, len(perms))
	for role := range perms {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
