package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/rbac"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestProvider(backend Backend, store TokenStore, opts ...ProviderOption) *Provider {
	opts = append([]ProviderOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewProvider(backend, store, opts...)
}

func TestProviderStartsLoading(t *testing.T) {
	p := newTestProvider(&mockBackend{}, &memoryStore{})
	state := p.Snapshot()
	assert.Equal(t, StatusLoading, state.Status)
	assert.True(t, state.Subject().Loading)
	assert.Equal(t, rbac.RoleNone, state.Role())
}

func TestRestoreWithoutTokenSkipsNetwork(t *testing.T) {
	backend := &mockBackend{}
	p := newTestProvider(backend, &memoryStore{})

	state := p.Restore(context.Background())

	assert.Equal(t, StatusUnauthenticated, state.Status)
	backend.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestRestoreExpiredTokenSkipsNetwork(t *testing.T) {
	backend := &mockBackend{}
	store := &memoryStore{token: ownerToken(t, fixedNow.Add(-time.Minute))}
	p := newTestProvider(backend, store)

	state := p.Restore(context.Background())

	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Empty(t, store.token, "expired token must be discarded")
	backend.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestRestoreValidToken(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil).Once()
	p := newTestProvider(backend, &memoryStore{token: token})

	state := p.Restore(context.Background())

	require.Equal(t, StatusAuthenticated, state.Status)
	assert.Equal(t, Identity{UserID: "42", Username: "ana", RoleID: rbac.RoleOwner, RoleName: "Propietario"}, state.Identity)
	assert.Equal(t, CauseRestore, state.Cause)
	assert.Equal(t, token, p.Token(context.Background()))
	backend.AssertExpectations(t)
}

func TestRestoreRejectedTokenClearsStore(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(&valhalla.APIError{Status: http.StatusUnauthorized})
	store := &memoryStore{token: token}
	p := newTestProvider(backend, store)

	state := p.Restore(context.Background())

	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Empty(t, store.token)
	assert.Empty(t, p.Token(context.Background()))
}

func TestRestoreTransportFailureIsUnauthenticated(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(errors.New("dial tcp: connection refused"))
	store := &memoryStore{token: token}

	state := newTestProvider(backend, store).Restore(context.Background())

	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Empty(t, store.token)
}

func TestRestoreMalformedToken(t *testing.T) {
	store := &memoryStore{token: "garbage"}
	state := newTestProvider(&mockBackend{}, store).Restore(context.Background())
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Empty(t, store.token)
}

func TestLoginSuccess(t *testing.T) {
	token := mintToken(t, map[string]any{
		"userId": "1", "username": "admin", "roleId": 1, "roleName": "Administrador", "exp": fixedNow.Add(time.Hour).Unix(),
	})
	backend := &mockBackend{}
	backend.On("Login", mock.Anything, "admin", "s3cret").Return(token, nil)
	backend.On("ValidateToken", mock.Anything, token).Return(nil)
	store := &memoryStore{}
	p := newTestProvider(backend, store)
	p.Restore(context.Background())

	var seen []State
	p.Subscribe(func(s State) { seen = append(seen, s) })

	state, err := p.Login(context.Background(), "admin", "s3cret")

	require.NoError(t, err)
	assert.True(t, state.Authenticated())
	assert.Equal(t, rbac.RoleAdministrator, state.Role())
	assert.Equal(t, token, store.token)
	require.Len(t, seen, 1)
	assert.Equal(t, CauseLogin, seen[0].Cause)
	assert.Equal(t, state, p.Snapshot())
}

func TestLoginPrefersServerMessage(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Login", mock.Anything, "admin", "bad").
		Return("", &valhalla.APIError{Status: http.StatusUnauthorized, Message: "Usuario bloqueado"})
	p := newTestProvider(backend, &memoryStore{})

	state, err := p.Login(context.Background(), "admin", "bad")

	require.Error(t, err)
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Equal(t, "Usuario bloqueado", state.Error)
}

func TestLoginGenericMessageOnTransportError(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Login", mock.Anything, "admin", "pw").Return("", errors.New("timeout"))
	p := newTestProvider(backend, &memoryStore{})

	state, err := p.Login(context.Background(), "admin", "pw")

	require.Error(t, err)
	assert.Equal(t, MsgLoginFailed, state.Error)
	assert.False(t, state.Authenticated())
}

func TestLoginRejectedByValidation(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("Login", mock.Anything, "ana", "pw").Return(token, nil)
	backend.On("ValidateToken", mock.Anything, token).Return(&valhalla.APIError{Status: http.StatusUnauthorized})
	store := &memoryStore{}
	p := newTestProvider(backend, store)

	state, err := p.Login(context.Background(), "ana", "pw")

	require.Error(t, err)
	assert.False(t, state.Authenticated())
	assert.Empty(t, store.token)
	assert.Equal(t, MsgSessionInvalid, state.Error)
}

func TestLastLoginWins(t *testing.T) {
	admin := mintToken(t, map[string]any{"userId": "1", "roleId": 1, "exp": fixedNow.Add(time.Hour).Unix()})
	owner := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("Login", mock.Anything, "admin", "pw").Return(admin, nil)
	backend.On("Login", mock.Anything, "ana", "pw").Return(owner, nil)
	backend.On("ValidateToken", mock.Anything, mock.Anything).Return(nil)
	p := newTestProvider(backend, &memoryStore{})

	_, err := p.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	_, err = p.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	assert.Equal(t, rbac.RoleOwner, p.Snapshot().Role())
}

func TestLogout(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil)
	store := &memoryStore{token: token}
	p := newTestProvider(backend, store)
	require.True(t, p.Restore(context.Background()).Authenticated())

	state := p.Logout(context.Background())

	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Equal(t, Identity{}, state.Identity)
	assert.Empty(t, store.token)
	assert.Empty(t, p.Token(context.Background()))
}

func TestLogoutWithoutSession(t *testing.T) {
	p := newTestProvider(&mockBackend{}, &memoryStore{})
	assert.Equal(t, StatusUnauthenticated, p.Logout(context.Background()).Status)
}

func TestUpdateUser(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil)
	p := newTestProvider(backend, &memoryStore{token: token})

	_, err := p.UpdateUser(context.Background(), IdentityPatch{})
	assert.ErrorIs(t, err, ErrNotAuthenticated, "loading state cannot be patched")

	p.Restore(context.Background())
	before := p.Snapshot()
	name := "ana.maria"
	state, err := p.UpdateUser(context.Background(), IdentityPatch{Username: &name})

	require.NoError(t, err)
	assert.Equal(t, "ana.maria", state.Identity.Username)
	assert.Equal(t, "42", state.Identity.UserID)
	assert.Equal(t, rbac.RoleOwner, state.Role())
	assert.Equal(t, CauseUpdate, state.Cause)
	assert.Equal(t, "ana", before.Identity.Username, "earlier snapshots are immutable")
}

func TestUpdateUserSurvivesRestore(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil)
	store := &memoryStore{token: token}
	ctx := context.Background()

	first := newTestProvider(backend, store)
	first.Restore(ctx)
	name := "ana.maria"
	_, err := first.UpdateUser(ctx, IdentityPatch{Username: &name})
	require.NoError(t, err)
	roleName := "Propietaria"
	_, err = first.UpdateUser(ctx, IdentityPatch{RoleName: &roleName})
	require.NoError(t, err)

	next := newTestProvider(backend, store)
	state := next.Restore(ctx)
	assert.Equal(t, "ana.maria", state.Identity.Username)
	assert.Equal(t, "Propietaria", state.Identity.RoleName)
	assert.Equal(t, "42", state.Identity.UserID)

	next.Logout(ctx)
	assert.Equal(t, IdentityPatch{}, store.patch, "logout drops local edits")
}

func TestUpdateUserWhenUnauthenticated(t *testing.T) {
	p := newTestProvider(&mockBackend{}, &memoryStore{})
	p.Restore(context.Background())
	name := "x"
	state, err := p.UpdateUser(context.Background(), IdentityPatch{Username: &name})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, StatusUnauthenticated, state.Status)
}

func TestPasswordOperationsDoNotTouchState(t *testing.T) {
	backend := &mockBackend{}
	backend.On("ForgotPassword", mock.Anything, "a@b.co").Return(nil)
	backend.On("ResetPassword", mock.Anything, "rt", "newpass1").
		Return(&valhalla.APIError{Status: http.StatusBadRequest, Message: "Token expirado"})
	p := newTestProvider(backend, &memoryStore{})
	p.Restore(context.Background())
	before := p.Snapshot()

	forgot := p.ForgotPassword(context.Background(), "a@b.co")
	reset := p.ResetPassword(context.Background(), "rt", "newpass1")

	assert.Equal(t, Result{OK: true, Message: MsgForgotSent}, forgot)
	assert.Equal(t, Result{OK: false, Message: "Token expirado"}, reset)
	assert.Equal(t, before, p.Snapshot())
}

func TestChangePasswordAttachesToken(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil)
	backend.On("ChangePassword", mock.MatchedBy(func(ctx context.Context) bool {
		return valhalla.TokenFromContext(ctx) == token
	}), "old", "newpass1").Return(nil)
	p := newTestProvider(backend, &memoryStore{token: token})
	p.Restore(context.Background())

	result := p.ChangePassword(context.Background(), "old", "newpass1")

	assert.True(t, result.OK)
	assert.True(t, p.Snapshot().Authenticated(), "change password does not re-authenticate")
	backend.AssertExpectations(t)
}

func TestChangePasswordWithoutToken(t *testing.T) {
	backend := &mockBackend{}
	result := newTestProvider(backend, &memoryStore{}).ChangePassword(context.Background(), "a", "b")
	assert.False(t, result.OK)
	backend.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnsubscribe(t *testing.T) {
	p := newTestProvider(&mockBackend{}, &memoryStore{})
	calls := 0
	cancel := p.Subscribe(func(State) { calls++ })
	p.Restore(context.Background())
	cancel()
	p.Logout(context.Background())
	assert.Equal(t, 1, calls)
}

func TestValidationCacheCollapsesRevalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewValidationCache(client, time.Minute)
	cache.now = func() time.Time { return fixedNow }

	token := ownerToken(t, fixedNow.Add(30*time.Second))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil).Once()

	for i := 0; i < 3; i++ {
		p := newTestProvider(backend, &memoryStore{token: token}, WithValidationCache(cache))
		require.True(t, p.Restore(context.Background()).Authenticated())
	}
	backend.AssertNumberOfCalls(t, "ValidateToken", 1)

	ttl := mr.TTL(cacheKey(token))
	assert.LessOrEqual(t, ttl, 30*time.Second, "cache entry never outlives the token")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestValidationCacheSkipsRejections(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewValidationCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	token := ownerToken(t, fixedNow.Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(errors.New("nope"))

	for i := 0; i < 2; i++ {
		p := newTestProvider(backend, &memoryStore{token: token}, WithValidationCache(cache))
		assert.False(t, p.Restore(context.Background()).Authenticated())
	}
	backend.AssertNumberOfCalls(t, "ValidateToken", 2)
	assert.False(t, mr.Exists(cacheKey(token)))
}

func TestLogoutForgetsCachedValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewValidationCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	token := ownerToken(t, time.Now().Add(time.Hour))
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(nil)
	p := newTestProvider(backend, &memoryStore{token: token}, WithValidationCache(cache))
	require.True(t, p.Restore(context.Background()).Authenticated())
	require.True(t, mr.Exists(cacheKey(token)))

	p.Logout(context.Background())

	assert.False(t, mr.Exists(cacheKey(token)))
}

func TestValidationCacheOutlivesCancelledWaiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewValidationCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	validate := func(ctx context.Context, token string) error {
		once.Do(func() { close(started) })
		<-release
		return ctx.Err()
	}
	expires := time.Now().Add(time.Hour)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() { errA <- cache.Validate(ctxA, "tok", expires, validate) }()
	<-started

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller stayed blocked on the shared validation")
	}

	errB := make(chan error, 1)
	go func() { errB <- cache.Validate(context.Background(), "tok", expires, validate) }()
	close(release)

	select {
	case err := <-errB:
		assert.NoError(t, err, "one caller's cancellation is not a rejection for the others")
	case <-time.After(time.Second):
		t.Fatal("validation never completed")
	}
	assert.True(t, mr.Exists(cacheKey("tok")))
}

func TestRestoreKeepsTokenWhenRequestEnds(t *testing.T) {
	token := ownerToken(t, fixedNow.Add(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := &mockBackend{}
	backend.On("ValidateToken", mock.Anything, token).Return(context.Canceled)
	store := &memoryStore{token: token}
	p := newTestProvider(backend, store)

	state := p.Restore(ctx)

	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Equal(t, token, store.token)
}
