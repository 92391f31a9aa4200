package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRedirect struct{ guard, reason string }

type redirectLog struct {
	entries []recordedRedirect
}

func (l *redirectLog) GuardRedirect(guard, reason string) {
	l.entries = append(l.entries, recordedRedirect{guard, reason})
}

func newMiddleware(subject Subject, log *redirectLog) Middleware {
	return Middleware{
		Registry: DefaultRegistry(),
		Subject:  func(*http.Request) Subject { return subject },
		Recorder: log,
	}
}

func run(mw func(http.Handler) http.Handler, reached *bool, seen *Access) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		if seen != nil {
			*seen, _ = AccessFromContext(r.Context())
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/x", nil))
	return rr
}

func TestRequireAuthenticatedRedirectsToLogin(t *testing.T) {
	log := &redirectLog{}
	var reached bool
	rr := run(newMiddleware(Subject{}, log).RequireAuthenticated(), &reached, nil)

	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
	assert.Equal(t, []recordedRedirect{{"authenticated", "unauthenticated"}}, log.entries)
}

func TestRequireAuthenticatedWhileLoading(t *testing.T) {
	var reached bool
	rr := run(newMiddleware(Subject{Loading: true}, nil).RequireAuthenticated(), &reached, nil)
	assert.False(t, reached)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequireRole(t *testing.T) {
	var reached bool
	rr := run(newMiddleware(Subject{Authenticated: true, Role: RoleSecurity}, nil).RequireRole(RoleAdministrator), &reached, nil)
	assert.False(t, reached)
	assert.Equal(t, "/app/apartments", rr.Header().Get("Location"))

	reached = false
	rr = run(newMiddleware(Subject{Authenticated: true, Role: RoleAdministrator}, nil).RequireRole(RoleAdministrator), &reached, nil)
	assert.True(t, reached)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireFeatureStoresAccess(t *testing.T) {
	var reached bool
	var seen Access
	rr := run(newMiddleware(Subject{Authenticated: true, Role: RoleSecurity}, nil).RequireFeature(FeatureVisitors), &reached, &seen)

	require.True(t, reached)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.True(t, seen.Found())
	assert.Equal(t, FeatureVisitors, seen.Feature.Key)
	assert.Equal(t, ManageAll(), seen.Permissions)
}

func TestRequireFeatureUnauthenticatedPayments(t *testing.T) {
	log := &redirectLog{}
	var reached bool
	rr := run(newMiddleware(Subject{}, log).RequireFeature(FeaturePayments), &reached, nil)

	assert.False(t, reached)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
	assert.Equal(t, "unauthenticated", log.entries[0].reason)
}

func TestRequireActionRedirectsToFeature(t *testing.T) {
	log := &redirectLog{}
	var reached bool
	rr := run(newMiddleware(Subject{Authenticated: true, Role: RoleOwner}, log).RequireAction(FeaturePets, ActionDelete), &reached, nil)

	assert.False(t, reached)
	assert.Equal(t, "/app/pets", rr.Header().Get("Location"))
	assert.Equal(t, []recordedRedirect{{"action", "action"}}, log.entries)
}

func TestMiddlewareWithoutSubjectTreatsVisitorAsAnonymous(t *testing.T) {
	var reached bool
	mw := Middleware{Registry: DefaultRegistry()}
	rr := run(mw.RequireAuthenticated(), &reached, nil)
	assert.False(t, reached)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
}
