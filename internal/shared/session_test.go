package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "sid", "sessionsecret", time.Hour, false), mr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	return nil
}

func TestCleanSessionIsNotPersisted(t *testing.T) {
	sm, mr := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, req, sess))

	assert.Nil(t, sessionCookie(t, rr))
	assert.Empty(t, mr.Keys())
}

func TestSessionRoundTrip(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("auth_token", "abc")
	sess.SetUser("42")
	sess.AddFlash(FlashMessage{Kind: "success", Message: "hola"})

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, sm.CookieValue(sess.ID), cookie.Value)
	assert.True(t, mr.Exists("valhalla:session:"+sess.ID))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("valhalla:session:"+sess.ID).Seconds(), 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.Get("auth_token"))
	assert.Equal(t, "42", loaded.User())
	assert.Equal(t, "hola", loaded.PopFlash().Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestUnknownCookieIsNotAdopted(t *testing.T) {
	sm, _ := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", sess.ID)
}

func TestTamperedCookieSignatureIsRejected(t *testing.T) {
	sm, _ := newManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sm.Load(ctx, req)
	sess.Set("auth_token", "abc")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	for _, value := range []string{sess.ID, sess.ID + ".bogus", "." + sm.CookieValue(sess.ID)} {
		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(&http.Cookie{Name: "sid", Value: value})
		loaded, err := sm.Load(ctx, next)
		require.NoError(t, err)
		assert.NotEqual(t, sess.ID, loaded.ID, value)
		assert.Empty(t, loaded.Get("auth_token"))
	}

	other := NewSessionManager(nil, "sid", "another-secret", time.Hour, false)
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: "sid", Value: other.CookieValue(sess.ID)})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, loaded.ID)
}

func TestRenewDropsPreviousRecord(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sm.Load(ctx, req)
	sess.Set("k", "v")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	oldID := sess.ID

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(sessionCookie(t, rr))
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	loaded.Renew()
	rr = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, next, loaded))

	assert.NotEqual(t, oldID, loaded.ID)
	assert.False(t, mr.Exists("valhalla:session:"+oldID))
	assert.True(t, mr.Exists("valhalla:session:"+loaded.ID))
	assert.Equal(t, sm.CookieValue(loaded.ID), sessionCookie(t, rr).Value)
}

func TestDestroyExpiresCookie(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sm.Load(ctx, req)
	sess.Set("k", "v")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	sm.Destroy(sess)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))

	assert.Less(t, sessionCookie(t, rr).MaxAge, 0)
	assert.Empty(t, mr.Keys())
}

func TestNilSessionAccessors(t *testing.T) {
	var sess *Session
	assert.Equal(t, "", sess.Get("x"))
	assert.Equal(t, "", sess.User())
	assert.Nil(t, sess.PopFlash())
}
