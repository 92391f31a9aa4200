package rbachttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valhalla/console/internal/platform/httpx"
	"github.com/valhalla/console/internal/rbac"
	"github.com/valhalla/console/internal/shared"
	"github.com/valhalla/console/internal/view"
)

// Handler serves the permissions matrix and the access JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	registry  *rbac.Registry
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *rbac.Registry, templates *view.Engine, csrf *shared.CSRFManager, guards rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, templates: templates, csrf: csrf, rbac: guards}
}

// MountRoutes registers the administrator permissions matrix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireRole(rbac.RoleAdministrator)).Get("/permissions", h.matrix)
}

// MountAPI registers JSON endpoints. Unauthenticated callers get 401 rather
// than a redirect.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/navigation", h.navigation)
	r.Get("/access/{feature}", h.access)
}

type matrixRow struct {
	Feature rbac.Feature
	Cells   []rbac.PermissionSet
}

type matrixPage struct {
	Roles    []rbac.Role
	Rows     []matrixRow
	Warnings []string
}

func (h *Handler) matrix(w http.ResponseWriter, r *http.Request) {
	page := matrixPage{Roles: rbac.Roles(), Warnings: h.registry.Warnings()}
	for _, f := range h.registry.Features() {
		row := matrixRow{Feature: f}
		for _, role := range page.Roles {
			row.Cells = append(row.Cells, f.PermissionsFor(role))
		}
		page.Rows = append(page.Rows, row)
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.TemplateData{Title: "Permisos", CSRFToken: csrfToken, Flash: sess.PopFlash(), Data: page}
	if err := h.templates.RenderRequest(w, r, http.StatusOK, "pages/permissions.html", data); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.registry.Navigation(subject.Role))
}

type accessResponse struct {
	rbac.Access
	Can rbac.PermissionSet `json:"can"`
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	access := h.registry.ResolveAccess(chi.URLParam(r, "feature"), subject.Role)
	httpx.JSON(w, http.StatusOK, accessResponse{Access: access, Can: access.Can()})
}

func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (rbac.Subject, bool) {
	var subject rbac.Subject
	if h.rbac.Subject != nil {
		subject = h.rbac.Subject(r)
	}
	switch rbac.DecideAuthenticated(subject).Outcome {
	case rbac.OutcomeRender:
		return subject, true
	case rbac.OutcomeWait:
		httpx.Problem(w, http.StatusServiceUnavailable, "Session Loading", "")
	default:
		httpx.RespondError(w, httpx.ErrUnauthorized)
	}
	return subject, false
}
