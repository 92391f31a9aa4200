package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valhalla/console/internal/auth"
	"github.com/valhalla/console/internal/rbac"
)

func requestWithState(state auth.State) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	return req.WithContext(auth.ContextWithProvider(req.Context(), auth.NewProviderForTest(state)))
}

func TestLayoutForAnonymousIsEmpty(t *testing.T) {
	layout := LayoutFor(rbac.DefaultRegistry())(httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.False(t, layout.Viewer.Authenticated)
	assert.Empty(t, layout.Sidebar)
}

func TestLayoutForSecurity(t *testing.T) {
	state := auth.State{Status: auth.StatusAuthenticated, Identity: auth.Identity{UserID: "7", Username: "vigía", RoleID: rbac.RoleSecurity}}
	layout := LayoutFor(rbac.DefaultRegistry())(requestWithState(state))

	assert.True(t, layout.Viewer.Authenticated)
	assert.Equal(t, "Seguridad", layout.Viewer.RoleName, "role name falls back to the registry name")
	assert.Equal(t, rbac.RoleKeySecurity, layout.Viewer.RoleKey)
	assert.Equal(t, "/app/apartments", layout.DefaultPath)

	paths := make([]string, 0, len(layout.Sidebar))
	for _, item := range layout.Sidebar {
		paths = append(paths, item.Path)
	}
	assert.Contains(t, paths, "/app/visitors")
	assert.NotContains(t, paths, "/app/payments")
}

func TestLayoutForUnknownRole(t *testing.T) {
	state := auth.State{Status: auth.StatusAuthenticated, Identity: auth.Identity{UserID: "9", Username: "inquilino", RoleID: rbac.Role(4)}}
	layout := LayoutFor(rbac.DefaultRegistry())(requestWithState(state))

	assert.True(t, layout.Viewer.Authenticated)
	assert.Empty(t, layout.Sidebar)
	assert.Equal(t, "/", layout.DefaultPath)
}
