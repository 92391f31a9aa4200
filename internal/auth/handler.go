package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/rbac"
	"github.com/valhalla/console/internal/shared"
	"github.com/valhalla/console/internal/view"
)

// ProfileBackend updates the user record behind the profile screen.
type ProfileBackend interface {
	Update(ctx context.Context, resource, id string, fields map[string]any) (valhalla.Record, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	registry       *rbac.Registry
	guards         rbac.Middleware
	profiles       ProfileBackend
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, registry *rbac.Registry, guards rbac.Middleware, profiles ProfileBackend) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		registry:       registry,
		guards:         guards,
		profiles:       profiles,
		validator:      validator.New(),
	}
}

// MountRoutes registers the public auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/forgot-password", h.showForgot)
	r.Post("/forgot-password", h.handleForgot)
	r.Get("/reset-password", h.showReset)
	r.Post("/reset-password", h.handleReset)
}

// MountAccountRoutes registers self-service routes under the app root.
func (h *Handler) MountAccountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAuthenticated())
		r.Get("/change-password", h.showChangePassword)
		r.Post("/change-password", h.handleChangePassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireFeature(rbac.FeatureProfile))
		r.Get("/profile", h.showProfile)
		r.With(h.guards.RequireAction(rbac.FeatureProfile, rbac.ActionEdit)).Post("/profile", h.handleProfile)
	})
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type forgotForm struct {
	Email string `validate:"required,email"`
}

type resetForm struct {
	Token           string `validate:"required"`
	Password        string `validate:"required,min=8"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type changePasswordForm struct {
	Current         string `validate:"required"`
	Password        string `validate:"required,min=8,nefield=Current"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type profileForm struct {
	Username string `validate:"required,min=3,max=60"`
}

type formPage struct {
	Form   any
	Errors map[string]string
	Result *Result
}

type profilePage struct {
	Identity Identity
	Access   rbac.Access
	Form     profileForm
	Errors   map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if state := StateFromContext(r.Context()); state.Authenticated() {
		http.Redirect(w, r, h.landingPath(state.Role()), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/login.html", "Iniciar sesión", formPage{Form: loginForm{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		provider, ok := h.provider(w, r)
		if !ok {
			return
		}
		state, err := provider.Login(r.Context(), form.Username, form.Password)
		if err == nil {
			sess := shared.SessionFromContext(r.Context())
			h.csrfManager.Rotate(sess)
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Bienvenido, " + state.Identity.Username})
			}
			http.Redirect(w, r, h.landingPath(state.Role()), http.StatusSeeOther)
			return
		}
		var apiErr *valhalla.APIError
		if !errors.As(err, &apiErr) {
			h.logger.Warn("login failed", slog.Any("error", err))
		}
		errs["general"] = state.Error
	}
	form.Password = ""
	h.render(w, r, http.StatusBadRequest, "pages/login.html", "Iniciar sesión", formPage{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if provider := ProviderFromContext(r.Context()); provider != nil {
		provider.Logout(r.Context())
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) showForgot(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/forgot_password.html", "Recuperar contraseña", formPage{Form: forgotForm{}})
}

func (h *Handler) handleForgot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := forgotForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	page := formPage{Form: form, Errors: h.validate(form)}
	status := http.StatusBadRequest
	if len(page.Errors) == 0 {
		provider, ok := h.provider(w, r)
		if !ok {
			return
		}
		result := provider.ForgotPassword(r.Context(), form.Email)
		page.Result = &result
		if result.OK {
			status = http.StatusOK
		}
	}
	h.render(w, r, status, "pages/forgot_password.html", "Recuperar contraseña", page)
}

func (h *Handler) showReset(w http.ResponseWriter, r *http.Request) {
	form := resetForm{Token: r.URL.Query().Get("token")}
	h.render(w, r, http.StatusOK, "pages/reset_password.html", "Restablecer contraseña", formPage{Form: form})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := resetForm{
		Token:           strings.TrimSpace(r.PostFormValue("token")),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		provider, ok := h.provider(w, r)
		if !ok {
			return
		}
		result := provider.ResetPassword(r.Context(), form.Token, form.Password)
		if result.OK {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: result.Message})
			}
			http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
			return
		}
		errs["general"] = result.Message
	}
	form.Password, form.PasswordConfirm = "", ""
	h.render(w, r, http.StatusBadRequest, "pages/reset_password.html", "Restablecer contraseña", formPage{Form: form, Errors: errs})
}

func (h *Handler) showChangePassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/change_password.html", "Cambiar contraseña", formPage{Form: changePasswordForm{}})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := changePasswordForm{
		Current:         r.PostFormValue("current_password"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	page := formPage{Errors: h.validate(form)}
	status := http.StatusBadRequest
	if len(page.Errors) == 0 {
		provider, ok := h.provider(w, r)
		if !ok {
			return
		}
		result := provider.ChangePassword(r.Context(), form.Current, form.Password)
		page.Result = &result
		if result.OK {
			status = http.StatusOK
		}
	}
	page.Form = changePasswordForm{}
	h.render(w, r, status, "pages/change_password.html", "Cambiar contraseña", page)
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	state := StateFromContext(r.Context())
	access, _ := rbac.AccessFromContext(r.Context())
	page := profilePage{
		Identity: state.Identity,
		Access:   access,
		Form:     profileForm{Username: state.Identity.Username},
	}
	h.render(w, r, http.StatusOK, "pages/profile.html", "Mi perfil", page)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}
	state := provider.Snapshot()
	access, _ := rbac.AccessFromContext(r.Context())
	form := profileForm{Username: strings.TrimSpace(r.PostFormValue("username"))}
	errs := h.validate(form)
	if len(errs) == 0 && h.profiles != nil {
		if _, err := h.profiles.Update(r.Context(), "users", state.Identity.UserID, map[string]any{"username": form.Username}); err != nil {
			h.logger.Warn("update profile", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err, "")
		}
	}
	if len(errs) == 0 {
		if _, err := provider.UpdateUser(r.Context(), IdentityPatch{Username: &form.Username}); err != nil {
			http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
			return
		}
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Perfil actualizado"})
		}
		http.Redirect(w, r, rbac.FeaturePath(rbac.FeatureProfile), http.StatusSeeOther)
		return
	}
	page := profilePage{Identity: state.Identity, Access: access, Form: form, Errors: errs}
	h.render(w, r, http.StatusBadRequest, "pages/profile.html", "Mi perfil", page)
}

// landingPath is the role default path, or the dashboard when the role can
// view no feature.
func (h *Handler) landingPath(role rbac.Role) string {
	if path := h.registry.ResolveDefaultPathForRole(role); path != "/" {
		return path
	}
	return rbac.AppPrefix
}

// provider returns the request provider installed by Service.Middleware.
func (h *Handler) provider(w http.ResponseWriter, r *http.Request) (*Provider, bool) {
	p := ProviderFromContext(r.Context())
	if p == nil {
		h.logger.Error("session provider missing", slog.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio."
	case "email":
		return "Ingresa un correo válido."
	case "min":
		return "Debe tener al menos " + fe.Param() + " caracteres."
	case "max":
		return "Debe tener como máximo " + fe.Param() + " caracteres."
	case "eqfield":
		return "Las contraseñas no coinciden."
	case "nefield":
		return "La nueva contraseña debe ser distinta de la actual."
	}
	return "Valor inválido."
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
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
