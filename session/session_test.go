package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/warranty-portal/internal/config"
	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/stretchr/testify/require"
)

func newJar(t *testing.T) (*session.Jar, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	return session.NewJar(store, config.New()), store
}

func TestJarTokensAndTTLs(t *testing.T) {
	jar, store := newJar(t)
	require.False(t, jar.IsAuthenticated())

	require.NoError(t, jar.SaveTokens("access-1", "refresh-1"))
	require.True(t, jar.IsAuthenticated())
	require.Equal(t, "access-1", jar.AccessToken())
	require.Equal(t, "refresh-1", jar.RefreshToken())
	require.True(t, store.HTTPOnly(session.CookieAccessToken))
	require.True(t, store.HTTPOnly(session.CookieRefreshToken))

	ttl, ok := store.TTL(session.CookieAccessToken)
	require.True(t, ok)
	require.InDelta(t, (2 * time.Hour).Seconds(), ttl.Seconds(), 1)
	ttl, _ = store.TTL(session.CookieRefreshToken)
	require.InDelta(t, (7 * 24 * time.Hour).Seconds(), ttl.Seconds(), 1)

	// An empty refresh token leaves the previous one in place.
	require.NoError(t, jar.SaveTokens("access-2", ""))
	require.Equal(t, "access-2", jar.AccessToken())
	require.Equal(t, "refresh-1", jar.RefreshToken())

	require.ErrorIs(t, jar.SaveTokens("", "x"), errors.ErrCookieWrite)
}

func TestJarUserRoundTrip(t *testing.T) {
	jar, store := newJar(t)
	_, ok := jar.User()
	require.False(t, ok)

	u := &users.User{ID: users.NumericID(7), Email: "jane@example.com", FirstName: "Jane", Role: users.RoleCustomer}
	require.NoError(t, jar.SaveUser(u))
	require.False(t, store.HTTPOnly(session.CookieUser))

	got, ok := jar.User()
	require.True(t, ok)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, users.NumericID(7), got.ID)

	require.NoError(t, store.Set(session.Cookie{Name: session.CookieUser, Value: "{not json", MaxAge: time.Hour}))
	_, ok = jar.User()
	require.False(t, ok)
}

func TestJarMustChangePasswordOnlyWhenTrue(t *testing.T) {
	jar, store := newJar(t)
	require.NoError(t, jar.SetMustChangePassword(false))
	require.Equal(t, 0, store.Len())

	require.NoError(t, jar.SetMustChangePassword(true))
	require.True(t, jar.MustChangePassword())
	ttl, _ := store.TTL(session.CookieMustChangePassword)
	require.InDelta(t, (24 * time.Hour).Seconds(), ttl.Seconds(), 1)

	require.NoError(t, jar.SetMustChangePassword(false))
	require.False(t, jar.MustChangePassword())
}

func TestJarClearRemovesEverything(t *testing.T) {
	jar, store := newJar(t)
	require.NoError(t, jar.SaveTokens("a", "r"))
	require.NoError(t, jar.SaveRole(users.RoleDealer))
	require.NoError(t, jar.SetMustChangePassword(true))
	require.NoError(t, jar.SaveUser(&users.User{Email: "x@y.com"}))
	require.Equal(t, 5, store.Len())

	require.NoError(t, jar.Clear())
	require.Equal(t, 0, store.Len())
	require.Equal(t, users.Role(""), jar.Role())
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := session.NewMemoryStore().WithClock(func() time.Time { return now })
	require.NoError(t, store.Set(session.Cookie{Name: "a", Value: "1", MaxAge: time.Minute}))

	v, ok := store.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)

	now = now.Add(2 * time.Minute)
	_, ok = store.Get("a")
	require.False(t, ok)

	require.Error(t, store.Set(session.Cookie{Value: "nameless"}))
	require.Error(t, store.Delete(""))
}

func TestCookieStoreRoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieUserRole, Value: "dealer"})
	rec := httptest.NewRecorder()

	store := session.NewCookieStore(rec, req, true)

	v, ok := store.Get(session.CookieUserRole)
	require.True(t, ok)
	require.Equal(t, "dealer", v)

	userJSON := `{"id":1,"email":"x@y.com","firstName":"Jo Anne"}`
	require.NoError(t, store.Set(session.Cookie{Name: session.CookieUser, Value: userJSON, MaxAge: time.Hour}))
	require.NoError(t, store.Set(session.Cookie{Name: session.CookieAccessToken, Value: "tok", MaxAge: 2 * time.Hour, HTTPOnly: true}))
	require.NoError(t, store.Delete(session.CookieUserRole))

	// Writes are visible to later reads in the same request.
	v, ok = store.Get(session.CookieUser)
	require.True(t, ok)
	require.Equal(t, userJSON, v)
	_, ok = store.Get(session.CookieUserRole)
	require.False(t, ok)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Len(t, cookies, 3)
	require.True(t, cookies[session.CookieAccessToken].HttpOnly)
	require.True(t, cookies[session.CookieAccessToken].Secure)
	require.Equal(t, "/", cookies[session.CookieAccessToken].Path)
	require.Equal(t, 7200, cookies[session.CookieAccessToken].MaxAge)
	require.False(t, cookies[session.CookieUser].HttpOnly)
	require.Equal(t, -1, cookies[session.CookieUserRole].MaxAge)

	// A follow-up request carrying the encoded cookie decodes to the original JSON.
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[session.CookieUser])
	v, ok = session.NewCookieStore(httptest.NewRecorder(), next, true).Get(session.CookieUser)
	require.True(t, ok)
	require.Equal(t, userJSON, v)

	require.ErrorIs(t, store.Set(session.Cookie{Name: "bad name", Value: "x"}), errors.ErrCookieWrite)
}
