package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/shared"
)

// Messages surfaced on the login and password screens.
const (
	MsgLoginFailed      = "Usuario o contraseña incorrectos."
	MsgSessionInvalid   = "Tu sesión no es válida. Inicia sesión de nuevo."
	MsgForgotSent       = "Si el correo está registrado recibirás instrucciones para restablecer tu contraseña."
	MsgForgotFailed     = "No fue posible enviar las instrucciones. Intenta de nuevo."
	MsgResetDone        = "Tu contraseña fue restablecida. Ya puedes iniciar sesión."
	MsgResetFailed      = "No fue posible restablecer la contraseña. El enlace puede haber expirado."
	MsgPasswordChanged  = "Tu contraseña fue actualizada."
	MsgChangeFailed     = "No fue posible cambiar la contraseña."
	MsgNotAuthenticated = "Debes iniciar sesión."
)

// Backend is the remote authentication API.
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
}

// Provider owns the session state. It is the only component that mutates it;
// readers get immutable snapshots through Snapshot and Subscribe.
type Provider struct {
	backend Backend
	store   TokenStore
	cache   *ValidationCache
	now     func() time.Time

	mu     sync.RWMutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// ProviderOption customises a Provider.
type ProviderOption func(*Provider)

// WithValidationCache memoises positive validate-token answers.
func WithValidationCache(c *ValidationCache) ProviderOption {
	return func(p *Provider) { p.cache = c }
}

// WithClock overrides the time source used for the local expiry check.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider returns a provider in StatusLoading. Call Restore to settle it.
func NewProvider(backend Backend, store TokenStore, opts ...ProviderOption) *Provider {
	p := &Provider{
		backend: backend,
		store:   store,
		now:     time.Now,
		state:   State{Status: StatusLoading},
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the current state.
func (p *Provider) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Subscribe registers fn to receive every subsequent state. The returned func
// removes the subscription.
func (p *Provider) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Restore settles the state from the persisted token. Tokens that fail to
// decode, are locally expired or are rejected by the backend are discarded.
// Expired tokens never reach the network. When ctx ends first the token is
// kept for the next request.
func (p *Provider) Restore(ctx context.Context) State {
	token := p.store.Token(ctx)
	if token == "" {
		return p.transition(State{Status: StatusUnauthenticated, Cause: CauseRestore})
	}
	claims, err := p.verify(ctx, token)
	if err != nil {
		// An abandoned request says nothing about the token.
		if ctx.Err() == nil {
			p.discard(ctx, token)
		}
		return p.transition(State{Status: StatusUnauthenticated, Cause: CauseRestore})
	}
	identity := claims.Identity().merge(p.store.IdentityPatch(ctx))
	return p.transition(State{Status: StatusAuthenticated, Identity: identity, Cause: CauseRestore})
}

// Login exchanges credentials for a token, persists and validates it. On
// failure the state is Unauthenticated with a user-facing Error and the
// returned error carries the cause. Concurrent logins are not serialised.
func (p *Provider) Login(ctx context.Context, username, password string) (State, error) {
	token, err := p.backend.Login(ctx, username, password)
	if err != nil {
		return p.fail(ctx, "", shared.UserSafeMessage(err, MsgLoginFailed), err)
	}
	claims, err := DecodeClaims(token)
	if err != nil {
		return p.fail(ctx, "", MsgSessionInvalid, err)
	}
	if err := p.store.SetToken(ctx, token); err != nil {
		return p.fail(ctx, "", MsgSessionInvalid, err)
	}
	if _, err := p.verify(ctx, token); err != nil {
		return p.fail(ctx, token, shared.UserSafeMessage(err, MsgSessionInvalid), err)
	}
	return p.transition(State{Status: StatusAuthenticated, Identity: claims.Identity(), Cause: CauseLogin}), nil
}

// Logout clears the token and identity. It always succeeds locally.
func (p *Provider) Logout(ctx context.Context) State {
	p.discard(ctx, p.store.Token(ctx))
	return p.transition(State{Status: StatusUnauthenticated, Cause: CauseLogout})
}

// UpdateUser shallow-merges patch into the identity of a live session. The
// edit is persisted next to the token so later restores keep it.
func (p *Provider) UpdateUser(ctx context.Context, patch IdentityPatch) (State, error) {
	p.mu.Lock()
	if p.state.Status != StatusAuthenticated {
		current := p.state
		p.mu.Unlock()
		return current, ErrNotAuthenticated
	}
	stored := p.store.IdentityPatch(ctx).overlay(patch)
	if err := p.store.SetIdentityPatch(ctx, stored); err != nil {
		current := p.state
		p.mu.Unlock()
		return current, err
	}
	next := State{
		Status:   StatusAuthenticated,
		Identity: p.state.Identity.merge(patch),
		Cause:    CauseUpdate,
	}
	p.state = next
	subs := p.subscribers()
	p.mu.Unlock()
	notify(subs, next)
	return next, nil
}

// ForgotPassword requests reset instructions for email.
func (p *Provider) ForgotPassword(ctx context.Context, email string) Result {
	if err := p.backend.ForgotPassword(ctx, email); err != nil {
		return Result{Message: shared.UserSafeMessage(err, MsgForgotFailed)}
	}
	return Result{OK: true, Message: MsgForgotSent}
}

// ResetPassword applies a new password using an emailed reset token.
func (p *Provider) ResetPassword(ctx context.Context, resetToken, newPassword string) Result {
	if err := p.backend.ResetPassword(ctx, resetToken, newPassword); err != nil {
		return Result{Message: shared.UserSafeMessage(err, MsgResetFailed)}
	}
	return Result{OK: true, Message: MsgResetDone}
}

// ChangePassword changes the password of the current session. It does not
// re-authenticate.
func (p *Provider) ChangePassword(ctx context.Context, currentPassword, newPassword string) Result {
	token := p.store.Token(ctx)
	if token == "" {
		return Result{Message: MsgNotAuthenticated}
	}
	ctx = valhalla.ContextWithToken(ctx, token)
	if err := p.backend.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		return Result{Message: shared.UserSafeMessage(err, MsgChangeFailed)}
	}
	return Result{OK: true, Message: MsgPasswordChanged}
}

// Token exposes the persisted token to the outgoing request authenticator.
func (p *Provider) Token(ctx context.Context) string {
	if !p.Snapshot().Authenticated() {
		return ""
	}
	return p.store.Token(ctx)
}

func (p *Provider) verify(ctx context.Context, token string) (Claims, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Expired(p.now()) {
		return Claims{}, errTokenExpired
	}
	if err := p.cache.Validate(ctx, token, claims.ExpiresAt, p.backend.ValidateToken); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

var errTokenExpired = errors.New("auth: token expired")

func (p *Provider) fail(ctx context.Context, token, message string, cause error) (State, error) {
	p.discard(ctx, token)
	return p.transition(State{Status: StatusUnauthenticated, Error: message, Cause: CauseLogin}), cause
}

func (p *Provider) discard(ctx context.Context, token string) {
	_ = p.store.ClearToken(ctx)
	if token != "" {
		p.cache.Forget(ctx, token)
	}
}

func (p *Provider) transition(next State) State {
	p.mu.Lock()
	p.state = next
	subs := p.subscribers()
	p.mu.Unlock()
	notify(subs, next)
	return next
}

// subscribers copies the listener set; callers hold p.mu.
func (p *Provider) subscribers() []func(State) {
	out := make([]func(State), 0, len(p.subs))
	for i := 0; i < p.nextID; i++ {
		if fn, ok := p.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}

// NewProviderForTest returns a provider already settled at state. It has no
// backend and no persisted token.
func NewProviderForTest(state State) *Provider {
	p := NewProvider(nil, &SessionTokenStore{})
	p.state = state
	return p
}
