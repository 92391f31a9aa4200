package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/rbac"
	"github.com/valhalla/console/internal/shared"
)

// EventRecorder counts session transitions.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

// Service builds request-scoped providers bound to the server session and
// wires their observers.
type Service struct {
	logger     *slog.Logger
	backend    Backend
	cache      *ValidationCache
	audit      AuditRepository
	events     EventRecorder
	sessionTTL time.Duration
	now        func() time.Time
}

// ServiceConfig groups Service dependencies. Audit and Events are optional.
type ServiceConfig struct {
	Logger     *slog.Logger
	Backend    Backend
	Cache      *ValidationCache
	Audit      AuditRepository
	Events     EventRecorder
	SessionTTL time.Duration
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:     logger,
		backend:    cfg.Backend,
		cache:      cfg.Cache,
		audit:      cfg.Audit,
		events:     cfg.Events,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}
}

// ProviderFor returns a provider over sess. The provider starts in
// StatusLoading.
func (s *Service) ProviderFor(r *http.Request, sess *shared.Session) *Provider {
	p := NewProvider(s.backend, NewSessionTokenStore(sess), WithValidationCache(s.cache), WithClock(s.now))
	p.Subscribe(s.observer(r, sess))
	return p
}

// Middleware restores the session of every request before any guard runs.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		provider := s.ProviderFor(r, sess)
		provider.Restore(r.Context())
		ctx := ContextWithProvider(r.Context(), provider)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) observer(r *http.Request, sess *shared.Session) func(State) {
	ip, ua := r.RemoteAddr, r.UserAgent()
	ctx := context.WithoutCancel(r.Context())
	return func(st State) {
		switch st.Cause {
		case CauseLogin:
			if !st.Authenticated() {
				s.count("login", "failure")
				return
			}
			s.count("login", "success")
			if sess != nil {
				sess.SetUser(st.Identity.UserID)
			}
			if s.audit == nil || sess == nil {
				return
			}
			now := s.now()
			rec := SessionRecord{
				SessionID: sess.ID,
				UserID:    st.Identity.UserID,
				Username:  st.Identity.Username,
				RoleID:    st.Identity.RoleID,
				IP:        ip,
				UserAgent: ua,
				CreatedAt: now,
				ExpiresAt: now.Add(s.sessionTTL),
			}
			if err := s.audit.RecordLogin(ctx, rec); err != nil {
				s.logger.Warn("record login", slog.Any("error", err))
			}
		case CauseLogout:
			s.count("logout", "ok")
			if s.audit == nil || sess == nil {
				return
			}
			if err := s.audit.RecordLogout(ctx, sess.ID, s.now()); err != nil {
				s.logger.Warn("record logout", slog.Any("error", err))
			}
		case CauseRestore:
			s.count("restore", st.Status.String())
		}
	}
}

func (s *Service) count(event, outcome string) {
	if s.events != nil {
		s.events.AuthEvent(event, outcome)
	}
}

type providerContextKey struct{}

// ContextWithProvider stores the request provider in context.
func ContextWithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerContextKey{}, p)
}

// ProviderFromContext returns the provider installed by Service.Middleware.
func ProviderFromContext(ctx context.Context) *Provider {
	p, _ := ctx.Value(providerContextKey{}).(*Provider)
	return p
}

// StateFromContext returns the current snapshot. Without a provider the
// session is still loading.
func StateFromContext(ctx context.Context) State {
	if p := ProviderFromContext(ctx); p != nil {
		return p.Snapshot()
	}
	return State{Status: StatusLoading}
}

// SubjectFromRequest feeds rbac guards.
func SubjectFromRequest(r *http.Request) rbac.Subject {
	return StateFromContext(r.Context()).Subject()
}

// OutgoingToken is the valhalla.TokenSource of the console: the token of the
// request session, or one attached explicitly with valhalla.ContextWithToken.
func OutgoingToken(ctx context.Context) string {
	if token := valhalla.TokenFromContext(ctx); token != "" {
		return token
	}
	if p := ProviderFromContext(ctx); p != nil {
		return p.Token(ctx)
	}
	return ""
}
