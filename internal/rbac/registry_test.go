package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryIsWellFormed(t *testing.T) {
	reg, err := NewRegistry(DefaultFeatures()...)
	require.NoError(t, err)
	assert.Empty(t, reg.Warnings())
	assert.Len(t, reg.Features(), len(DefaultFeatures()))
}

func TestNewRegistryRejectsDuplicateKeys(t *testing.T) {
	_, err := NewRegistry(Feature{Key: "a"}, Feature{Key: "a"})
	assert.ErrorIs(t, err, ErrDuplicateFeature)

	_, err = NewRegistry(Feature{Key: "  "})
	assert.Error(t, err)
}

func TestNewRegistryWarnsOnMutationWithoutView(t *testing.T) {
	reg, err := NewRegistry(Feature{
		Key:         "odd",
		Permissions: map[Role]PermissionSet{RoleSecurity: {CanEdit: true}},
	})
	require.NoError(t, err)
	require.Len(t, reg.Warnings(), 1)
	assert.Contains(t, reg.Warnings()[0], "odd")
	// Reported, not enforced.
	assert.Equal(t, PermissionSet{CanEdit: true}, reg.ResolveAccess("odd", RoleSecurity).Permissions)
}

func TestResolveDefaultPathForRole(t *testing.T) {
	reg := DefaultRegistry()
	cases := map[Role]string{
		RoleAdministrator: "/app/owners",
		RoleOwner:         "/app/payments",
		RoleSecurity:      "/app/apartments",
		RoleNone:          "/",
		Role(4):           "/",
		Role(-1):          "/",
	}
	for role, want := range cases {
		assert.Equal(t, want, reg.ResolveDefaultPathForRole(role), "role %d", role)
	}
}

func TestDefaultPathIsFirstViewableFeature(t *testing.T) {
	reg := DefaultRegistry()
	for _, role := range append(Roles(), RoleNone, Role(9)) {
		path := reg.ResolveDefaultPathForRole(role)
		var first *Feature
		for _, f := range reg.Features() {
			if f.PermissionsFor(role).CanView {
				f := f
				first = &f
				break
			}
		}
		if first == nil {
			assert.Equal(t, "/", path)
			continue
		}
		assert.Equal(t, FeaturePath(first.Path), path)
	}
}

func TestDefaultPathWithoutViewableFeature(t *testing.T) {
	reg := MustRegistry(Feature{Key: "x", Path: "x", Permissions: map[Role]PermissionSet{RoleOwner: {CanCreate: true}}})
	assert.Equal(t, "/", reg.ResolveDefaultPathForRole(RoleOwner))

	var nilReg *Registry
	assert.Equal(t, "/", nilReg.ResolveDefaultPathForRole(RoleAdministrator))
}

func TestResolveAccessMissingEntryIsAllFalse(t *testing.T) {
	reg := DefaultRegistry()
	for _, f := range reg.Features() {
		for _, role := range append(Roles(), Role(4)) {
			access := reg.ResolveAccess(f.Key, role)
			require.True(t, access.Found())
			if _, ok := f.Permissions[role]; !ok {
				assert.Equal(t, PermissionSet{}, access.Permissions, "%s/%d", f.Key, role)
			}
		}
	}
}

func TestResolveAccessScenarios(t *testing.T) {
	reg := DefaultRegistry()

	admin := reg.ResolveAccess(FeatureOwners, RoleAdministrator)
	assert.Equal(t, PermissionSet{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true}, admin.Permissions)
	require.NotNil(t, admin.RoleKey)
	assert.Equal(t, RoleKeyAdmin, *admin.RoleKey)
	assert.Equal(t, admin.Permissions, admin.Can())

	owner := reg.ResolveAccess(FeatureTowers, RoleOwner)
	assert.False(t, owner.Permissions.CanView)

	missing := reg.ResolveAccess("nope", RoleAdministrator)
	assert.False(t, missing.Found())
	assert.Nil(t, missing.Feature)
	assert.Equal(t, PermissionSet{}, missing.Permissions)

	tenant := reg.ResolveAccess(FeaturePayments, Role(4))
	assert.Nil(t, tenant.RoleKey)
	assert.Equal(t, PermissionSet{}, tenant.Permissions)
}

func TestResolveAccessDoesNotLeakRegistryState(t *testing.T) {
	reg := DefaultRegistry()
	access := reg.ResolveAccess(FeatureOwners, RoleAdministrator)
	access.Feature.Permissions[RoleOwner] = ManageAll()
	access.Feature.Label = "mutated"

	again := reg.ResolveAccess(FeatureOwners, RoleOwner)
	assert.Equal(t, PermissionSet{}, again.Permissions)
	assert.Equal(t, "Propietarios", again.Feature.Label)
}

func TestNavigationSidebarSkipsIncompleteFeatures(t *testing.T) {
	reg := MustRegistry(
		Feature{Key: "a", Label: "A", Path: "a", Permissions: map[Role]PermissionSet{RoleOwner: ViewOnly()}},
		Feature{Key: "b", Label: "", Path: "b", Permissions: map[Role]PermissionSet{RoleOwner: ViewOnly()}},
		Feature{Key: "c", Label: "C", Path: "", Permissions: map[Role]PermissionSet{RoleOwner: ViewOnly()}},
	)
	nav := reg.Navigation(RoleOwner)

	assert.Len(t, nav.AccessibleFeatures, 3)
	require.Len(t, nav.SidebarItems, 1)
	assert.Equal(t, SidebarItem{Key: "a", Label: "A", Path: "/app/a"}, nav.SidebarItems[0])
}

func TestNavigationOrdering(t *testing.T) {
	view := map[Role]PermissionSet{RoleOwner: ViewOnly()}
	reg := MustRegistry(
		Feature{Key: "none1", Label: "N1", Path: "n1", ShowInDashboard: true, QuickAccess: true, Permissions: view},
		Feature{Key: "three", Label: "3", Path: "3", Order: Order(3), ShowInDashboard: true, Permissions: view},
		Feature{Key: "oneA", Label: "1a", Path: "1a", Order: Order(1), ShowInDashboard: true, QuickAccess: true, Permissions: view},
		Feature{Key: "none2", Label: "N2", Path: "n2", ShowInDashboard: true, QuickAccess: true, Permissions: view},
		Feature{Key: "oneB", Label: "1b", Path: "1b", Order: Order(1), ShowInDashboard: true, QuickAccess: true, Permissions: view},
		Feature{Key: "hidden", Label: "H", Path: "h", Order: Order(0), ShowInDashboard: true},
	)
	nav := reg.Navigation(RoleOwner)

	assert.Equal(t, []string{"oneA", "oneB", "three", "none1", "none2"}, keys(nav.DashboardCards))
	assert.Equal(t, []string{"oneA", "oneB", "none1", "none2"}, keys(nav.QuickAccess))
	assert.Equal(t, []string{"none1", "three", "oneA", "none2", "oneB"}, sidebarKeys(nav.SidebarItems))
	assert.Equal(t, "/app/n1", nav.DefaultPath)
}

func TestNavigationIsIdempotent(t *testing.T) {
	reg := DefaultRegistry()
	for _, role := range append(Roles(), RoleNone) {
		first := reg.Navigation(role)
		first.DashboardCards = append(first.DashboardCards[:0], Feature{Key: "junk"})
		second := reg.Navigation(role)
		third := reg.Navigation(role)
		assert.Equal(t, second, third)
		assert.NotContains(t, keys(second.DashboardCards), "junk")
	}
}

func TestNavigationForUnknownRoleIsEmpty(t *testing.T) {
	nav := DefaultRegistry().Navigation(Role(4))
	assert.NotNil(t, nav.SidebarItems)
	assert.Empty(t, nav.AccessibleFeatures)
	assert.Empty(t, nav.SidebarItems)
	assert.Empty(t, nav.DashboardCards)
	assert.Empty(t, nav.QuickAccess)
	assert.Equal(t, "/", nav.DefaultPath)
}

func TestOwnerNavigation(t *testing.T) {
	nav := DefaultRegistry().Navigation(RoleOwner)
	assert.NotContains(t, sidebarKeys(nav.SidebarItems), FeatureTowers)
	assert.Contains(t, sidebarKeys(nav.SidebarItems), FeatureProfile)
	assert.NotContains(t, keys(nav.DashboardCards), FeatureProfile)
	assert.Equal(t, []string{FeaturePayments, FeatureReservations, FeaturePQRS, FeatureVisitors}, keys(nav.QuickAccess))
}

func TestRoleKeys(t *testing.T) {
	assert.Equal(t, "ADMIN", RoleAdministrator.Key())
	assert.Equal(t, "OWNER", RoleOwner.Key())
	assert.Equal(t, "SECURITY", RoleSecurity.Key())
	assert.Equal(t, "", Role(4).Key())
	assert.False(t, Role(4).Known())
	assert.True(t, RoleSecurity.Known())
}

func keys(features []Feature) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		out = append(out, f.Key)
	}
	return out
}

func sidebarKeys(items []SidebarItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key)
	}
	return out
}
