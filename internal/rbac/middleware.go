package rbac

import (
	"context"
	"log/slog"
	"net/http"
)

// RedirectRecorder observes silent guard redirects.
type RedirectRecorder interface {
	GuardRedirect(guard, reason string)
}

// Middleware wires route guard decisions into HTTP handlers.
type Middleware struct {
	Registry *Registry
	Subject  func(*http.Request) Subject
	Logger   *slog.Logger
	Recorder RedirectRecorder
}

type accessContextKey struct{}

// ContextWithAccess stores the resolved feature access in context.
func ContextWithAccess(ctx context.Context, access Access) context.Context {
	return context.WithValue(ctx, accessContextKey{}, access)
}

// AccessFromContext returns the access resolved by RequireFeature.
func AccessFromContext(ctx context.Context) (Access, bool) {
	access, ok := ctx.Value(accessContextKey{}).(Access)
	return access, ok
}

// RequireAuthenticated sends visitors without a session to the login page.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.apply(w, r, next, "authenticated", DecideAuthenticated(m.subject(r)))
		})
	}
}

// RequireRole admits only the listed roles; others go to their default path.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := append([]Role(nil), roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.apply(w, r, next, "role", m.Registry.DecideRole(m.subject(r), allowed...))
		})
	}
}

// RequireFeature admits roles that can view featureKey and stores the resolved
// access in the request context.
func (m Middleware) RequireFeature(featureKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, access := m.Registry.DecideFeature(m.subject(r), featureKey)
			if decision.Outcome == OutcomeRender {
				r = r.WithContext(ContextWithAccess(r.Context(), access))
			}
			m.apply(w, r, next, "feature", decision)
		})
	}
}

// RequireAction additionally enforces a mutating capability on featureKey.
func (m Middleware) RequireAction(featureKey string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, access := m.Registry.DecideFeatureAction(m.subject(r), featureKey, action)
			if decision.Outcome == OutcomeRender {
				r = r.WithContext(ContextWithAccess(r.Context(), access))
			}
			m.apply(w, r, next, "action", decision)
		})
	}
}

func (m Middleware) subject(r *http.Request) Subject {
	if m.Subject == nil {
		return Subject{}
	}
	return m.Subject(r)
}

func (m Middleware) apply(w http.ResponseWriter, r *http.Request, next http.Handler, guard string, d Decision) {
	switch d.Outcome {
	case OutcomeRender:
		next.ServeHTTP(w, r)
	case OutcomeRedirect:
		if m.Recorder != nil {
			m.Recorder.GuardRedirect(guard, d.Reason)
		}
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
	default:
		if m.Logger != nil {
			m.Logger.Error("guard evaluated before session restore", slog.String("path", r.URL.Path))
		}
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}
