package resources

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/valhalla/console/internal/auth"
	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/rbac"
	"github.com/valhalla/console/internal/shared"
	"github.com/valhalla/console/internal/view"
)

// Handler manages the feature screens under the app root.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	registry  *rbac.Registry
	rbac      rbac.Middleware
	defs      []Definition
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, registry *rbac.Registry, guards rbac.Middleware, defs []Definition) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, registry: registry, rbac: guards, defs: defs}
}

// MountRoutes registers the dashboard and every feature screen.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuthenticated()).Get("/", h.dashboard)

	for _, def := range h.defs {
		feature, ok := h.registry.Feature(def.FeatureKey)
		if !ok || feature.Path == "" {
			h.logger.Warn("resource without registry feature", slog.String("feature", def.FeatureKey))
			continue
		}
		r.Route("/"+feature.Path, func(r chi.Router) {
			r.Use(h.rbac.RequireFeature(def.FeatureKey))
			r.Get("/", h.list(def))
			r.Get("/{id}", h.show(def))
			r.Group(func(r chi.Router) {
				r.Use(h.rbac.RequireAction(def.FeatureKey, rbac.ActionCreate))
				r.Get("/new", h.form(def))
				r.Post("/", h.create(def))
			})
			r.Group(func(r chi.Router) {
				r.Use(h.rbac.RequireAction(def.FeatureKey, rbac.ActionEdit))
				r.Get("/{id}/edit", h.editForm(def))
				r.Post("/{id}/edit", h.update(def))
			})
			r.With(h.rbac.RequireAction(def.FeatureKey, rbac.ActionDelete)).Post("/{id}/delete", h.remove(def))
		})
	}
}

type listPage struct {
	Definition Definition
	BasePath   string
	Access     rbac.Access
	Page       Page
	Error      string
}

type formPage struct {
	Definition Definition
	BasePath   string
	Access     rbac.Access
	Action     string
	Editing    bool
	Values     map[string]string
	Errors     map[string]string
}

type detailPage struct {
	Definition Definition
	BasePath   string
	Access     rbac.Access
	Record     valhalla.Record
}

type dashboardCard struct {
	Feature rbac.Feature
	Path    string
	Count   *int
}

type dashboardPage struct {
	Cards       []dashboardCard
	QuickAccess []rbac.SidebarItem
	RoleName    string
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())
	nav := h.registry.Navigation(state.Role())

	wanted := make([]Definition, 0, len(nav.DashboardCards))
	for _, card := range nav.DashboardCards {
		if def, ok := h.definition(card.Key); ok {
			wanted = append(wanted, def)
		}
	}
	counts := h.service.Counts(r.Context(), wanted)

	page := dashboardPage{RoleName: state.Identity.RoleName}
	if page.RoleName == "" {
		page.RoleName = state.Role().Name()
	}
	for _, f := range nav.DashboardCards {
		page.Cards = append(page.Cards, dashboardCard{Feature: f, Path: rbac.FeaturePath(f.Path), Count: counts[f.Key]})
	}
	for _, f := range nav.QuickAccess {
		page.QuickAccess = append(page.QuickAccess, rbac.SidebarItem{Key: f.Key, Label: f.Label, Icon: f.Icon, Path: rbac.FeaturePath(f.Path), Group: f.Group})
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Inicio", page)
}

func (h *Handler) list(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageNum, perPage := shared.PageFromQuery(r.URL.Query())
		search := r.URL.Query().Get("q")
		data := listPage{Definition: def, BasePath: h.basePath(def), Access: h.access(r, def)}
		page, err := h.service.List(r.Context(), def, pageNum, perPage, search)
		status := http.StatusOK
		if err != nil {
			h.logger.Error("list resource", slog.String("resource", def.Endpoint), slog.Any("error", err))
			data.Error = shared.UserSafeMessage(err, "")
			status = statusFor(err)
			page = Page{Search: search, Pagination: shared.NewPagination(pageNum, perPage, 0)}
		}
		data.Page = page
		h.render(w, r, status, "pages/resource_list.html", def.Title, data)
	}
}

func (h *Handler) show(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := h.service.Get(r.Context(), def, id)
		if err != nil {
			h.fail(w, r, def, err)
			return
		}
		h.render(w, r, http.StatusOK, "pages/resource_detail.html", def.Title, detailPage{
			Definition: def, BasePath: h.basePath(def), Access: h.access(r, def), Record: rec,
		})
	}
}

func (h *Handler) form(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, "pages/resource_form.html", def.Title, formPage{
			Definition: def, BasePath: h.basePath(def), Access: h.access(r, def),
			Action: h.basePath(def), Values: map[string]string{},
		})
	}
}

func (h *Handler) create(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, ok := h.formValues(w, r, def)
		if !ok {
			return
		}
		rec, errs, err := h.service.Create(r.Context(), def, values)
		if err != nil {
			h.logger.Warn("create resource", slog.String("resource", def.Endpoint), slog.Any("error", err))
			errs = map[string]string{"general": shared.UserSafeMessage(err, "")}
		}
		if len(errs) > 0 {
			h.render(w, r, http.StatusBadRequest, "pages/resource_form.html", def.Title, formPage{
				Definition: def, BasePath: h.basePath(def), Access: h.access(r, def),
				Action: h.basePath(def), Values: values, Errors: errs,
			})
			return
		}
		target := h.basePath(def)
		if id := rec.ID(); id != "" {
			target += "/" + url.PathEscape(id)
		}
		h.redirectWithFlash(w, r, target, "success", "Se creó el "+def.Singular+".")
	}
}

func (h *Handler) editForm(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := h.service.Get(r.Context(), def, id)
		if err != nil {
			h.fail(w, r, def, err)
			return
		}
		values := make(map[string]string, len(def.Fields))
		for _, f := range def.Fields {
			values[f.Name] = rec.String(f.Name)
		}
		h.render(w, r, http.StatusOK, "pages/resource_form.html", def.Title, formPage{
			Definition: def, BasePath: h.basePath(def), Access: h.access(r, def),
			Action: h.basePath(def) + "/" + url.PathEscape(id) + "/edit", Editing: true, Values: values,
		})
	}
}

func (h *Handler) update(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		values, ok := h.formValues(w, r, def)
		if !ok {
			return
		}
		_, errs, err := h.service.Update(r.Context(), def, id, values)
		if err != nil {
			h.logger.Warn("update resource", slog.String("resource", def.Endpoint), slog.Any("error", err))
			errs = map[string]string{"general": shared.UserSafeMessage(err, "")}
		}
		if len(errs) > 0 {
			h.render(w, r, http.StatusBadRequest, "pages/resource_form.html", def.Title, formPage{
				Definition: def, BasePath: h.basePath(def), Access: h.access(r, def),
				Action: h.basePath(def) + "/" + url.PathEscape(id) + "/edit", Editing: true, Values: values, Errors: errs,
			})
			return
		}
		h.redirectWithFlash(w, r, h.basePath(def)+"/"+url.PathEscape(id), "success", "Cambios guardados.")
	}
}

func (h *Handler) remove(def Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.service.Delete(r.Context(), def, id); err != nil {
			h.logger.Warn("delete resource", slog.String("resource", def.Endpoint), slog.Any("error", err))
			h.redirectWithFlash(w, r, h.basePath(def)+"/"+url.PathEscape(id), "danger", shared.UserSafeMessage(err, ""))
			return
		}
		h.redirectWithFlash(w, r, h.basePath(def), "success", "Registro eliminado.")
	}
}

func (h *Handler) formValues(w http.ResponseWriter, r *http.Request, def Definition) (map[string]string, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return nil, false
	}
	values := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		values[f.Name] = r.PostFormValue(f.Name)
	}
	return values, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, def Definition, err error) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		h.render(w, r, status, "pages/not_found.html", "No encontrado", nil)
		return
	}
	h.logger.Error("load resource", slog.String("resource", def.Endpoint), slog.Any("error", err))
	h.redirectWithFlash(w, r, h.basePath(def), "danger", shared.UserSafeMessage(err, ""))
}

func statusFor(err error) int {
	var apiErr *valhalla.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (h *Handler) definition(key string) (Definition, bool) {
	for _, def := range h.defs {
		if def.FeatureKey == key {
			return def, true
		}
	}
	return Definition{}, false
}

func (h *Handler) basePath(def Definition) string {
	f, _ := h.registry.Feature(def.FeatureKey)
	return rbac.FeaturePath(f.Path)
}

// access returns what the guard resolved, falling back to a fresh resolution.
func (h *Handler) access(r *http.Request, def Definition) rbac.Access {
	if access, ok := rbac.AccessFromContext(r.Context()); ok && access.Found() && access.Feature.Key == def.FeatureKey {
		return access
	}
	return h.registry.ResolveAccess(def.FeatureKey, auth.StateFromContext(r.Context()).Role())
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:     title,
		CSRFToken: csrfToken,
		Flash:     sess.PopFlash(),
		Data:      data,
	}
	if err := h.templates.RenderRequest(w, r, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
