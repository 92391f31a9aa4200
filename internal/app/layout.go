package app

import (
	"net/http"

	"github.com/valhalla/console/internal/auth"
	"github.com/valhalla/console/internal/rbac"
	"github.com/valhalla/console/internal/view"
)

// LayoutFor derives page chrome from the request session. Anonymous visitors
// get an empty layout.
func LayoutFor(registry *rbac.Registry) view.LayoutFunc {
	return func(r *http.Request) view.Layout {
		state := auth.StateFromContext(r.Context())
		if !state.Authenticated() {
			return view.Layout{}
		}
		role := state.Role()
		roleName := state.Identity.RoleName
		if roleName == "" {
			roleName = role.Name()
		}
		nav := registry.Navigation(role)
		return view.Layout{
			Viewer: view.Viewer{
				Authenticated: true,
				UserID:        state.Identity.UserID,
				Username:      state.Identity.Username,
				RoleName:      roleName,
				RoleKey:       role.Key(),
				Role:          role,
			},
			Sidebar:     nav.SidebarItems,
			DefaultPath: nav.DefaultPath,
		}
	}
}
