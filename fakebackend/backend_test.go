package fakebackend_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/auth"
	"github.com/jrsteele09/warranty-portal/fakebackend"
	"github.com/jrsteele09/warranty-portal/internal/config"
	"github.com/jrsteele09/warranty-portal/internal/utils"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	backend *fakebackend.Backend
	client  *apiclient.Client
	service *auth.Service
	clock   *fakeClock
	origin  string
}

func setup(t *testing.T, opts ...fakebackend.Option) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Now()}
	backend, err := fakebackend.New("test-secret", append([]fakebackend.Option{fakebackend.WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, backend.SeedDemoAccounts())

	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL + "/api")
	require.NoError(t, err)
	service, err := auth.NewService(client)
	require.NoError(t, err)
	return &fixture{backend: backend, client: client, service: service, clock: clock, origin: srv.URL}
}

func newJar() (*session.Jar, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return session.NewJar(store, config.New()), store
}

func tenantCtx(host string) context.Context {
	return apiclient.WithForwardedHost(context.Background(), host)
}

func demo(role users.Role) fakebackend.DemoAccount {
	for _, d := range fakebackend.DemoAccounts {
		if d.Role == role {
			return d
		}
	}
	panic("no demo account for " + role)
}

func (f *fixture) login(t *testing.T, ctx context.Context, role users.Role) *session.Jar {
	t.Helper()
	jar, _ := newJar()
	d := demo(role)
	res := f.service.Login(ctx, jar, d.Email, d.Password)
	require.True(t, res.Status, res.Message)
	return jar
}

// statusOf sends a bare request with the given token.
func (f *fixture) statusOf(t *testing.T, ctx context.Context, path, token string) int {
	t.Helper()
	resp, err := f.client.Send(ctx, apiclient.Request{Path: path}, token)
	require.NoError(t, err)
	apiclient.Discard(resp)
	return resp.StatusCode
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := fakebackend.New("")
	require.Error(t, err)
}

func TestLoginAgainstFakeBackend(t *testing.T) {
	f := setup(t)
	jar, store := newJar()
	d := demo(users.RoleDealer)

	res := f.service.Login(tenantCtx("acme.portal.test"), jar, d.Email, d.Password)
	require.True(t, res.Status, res.Message)
	require.Equal(t, users.RoleDealer, res.Role)
	require.False(t, res.MustChangePassword)

	require.NotEmpty(t, jar.AccessToken())
	require.NotEmpty(t, jar.RefreshToken())
	require.Equal(t, users.RoleDealer, jar.Role())
	u, ok := jar.User()
	require.True(t, ok)
	require.Equal(t, users.NumericID(2), u.ID)
	require.JSONEq(t, `{"businessName":"Acme Motors","city":"Leeds","country":"GB"}`, string(u.Details))

	raw, _ := store.Get(session.CookieUser)
	require.Contains(t, raw, `"id":2`)
}

func TestLoginFailuresAgainstFakeBackend(t *testing.T) {
	f := setup(t)
	d := demo(users.RoleDealer)

	jar, _ := newJar()
	res := f.service.Login(tenantCtx("other.portal.test"), jar, d.Email, d.Password)
	require.False(t, res.Status)
	require.Equal(t, "No account found for this email", res.Message)

	res = f.service.Login(tenantCtx("acme.portal.test"), jar, d.Email, "wrong")
	require.False(t, res.Status)
	require.Equal(t, "Invalid email or password", res.Message)
	require.False(t, jar.IsAuthenticated())
}

func TestMustChangePasswordFlow(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("acme.portal.test")
	d := demo(users.RoleCustomer)

	jar, _ := newJar()
	res := f.service.Login(ctx, jar, d.Email, d.Password)
	require.True(t, res.Status)
	require.True(t, res.MustChangePassword)
	require.True(t, jar.MustChangePassword())

	changed := f.service.ChangePassword(ctx, jar, "wrong-one1A", "Brand12345")
	require.False(t, changed.Status)
	require.Equal(t, "Current password is incorrect", changed.Message)

	changed = f.service.ChangePassword(ctx, jar, d.Password, "Brand12345")
	require.True(t, changed.Status, changed.Message)
	require.False(t, jar.MustChangePassword())

	again, _ := newJar()
	res = f.service.Login(ctx, again, d.Email, "Brand12345")
	require.True(t, res.Status)
	require.False(t, res.MustChangePassword)
	require.False(t, again.MustChangePassword())
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("portal.test")
	jar := f.login(t, ctx, users.RoleSuperAdmin)
	oldAccess, oldRefresh := jar.AccessToken(), jar.RefreshToken()

	f.clock.Advance(time.Second)
	require.True(t, f.client.Refresh(ctx, jar))
	require.NotEqual(t, oldAccess, jar.AccessToken())
	require.NotEqual(t, oldRefresh, jar.RefreshToken())

	stale, _ := newJar()
	require.NoError(t, stale.SaveTokens(oldAccess, oldRefresh))
	require.False(t, f.client.Refresh(ctx, stale))
}

func TestExpiredAccessTokenRefreshesTransparently(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("portal.test")
	jar := f.login(t, ctx, users.RoleSuperAdmin)
	expired := jar.AccessToken()

	f.clock.Advance(3 * time.Hour)
	require.Equal(t, http.StatusUnauthorized, f.statusOf(t, ctx, apiclient.PathMe, expired))

	res := f.service.GetMe(ctx, jar)
	require.True(t, res.Status, res.Message)
	require.NotEqual(t, expired, jar.AccessToken())
	data, ok := res.Data["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "admin@portal.test", data["email"])
}

func TestExpiredRefreshTokenFailsClosed(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("portal.test")
	jar := f.login(t, ctx, users.RoleSuperAdmin)

	f.clock.Advance(8 * 24 * time.Hour)
	check := f.service.ValidateSession(ctx, jar)
	require.Equal(t, auth.SessionCheck{Valid: false, State: auth.StateTokenRejected}, check)
	require.False(t, jar.IsAuthenticated())
	require.Empty(t, jar.RefreshToken())
}

func TestSeamlessRotationOnValidate(t *testing.T) {
	f := setup(t, fakebackend.WithSeamlessRotation(30*time.Minute))
	ctx := tenantCtx("portal.test")
	jar := f.login(t, ctx, users.RoleSuperAdmin)
	firstAccess := jar.AccessToken()

	check := f.service.ValidateSession(ctx, jar)
	require.Equal(t, auth.StateTokenAcceptedPlain, check.State)
	require.Equal(t, firstAccess, jar.AccessToken())

	f.clock.Advance(time.Hour + 45*time.Minute)
	check = f.service.ValidateSession(ctx, jar)
	require.Equal(t, auth.SessionCheck{Valid: true, State: auth.StateTokenAcceptedWithRotation}, check)
	require.NotEqual(t, firstAccess, jar.AccessToken())

	require.Equal(t, http.StatusUnauthorized, f.statusOf(t, ctx, apiclient.PathMe, firstAccess))
	require.Equal(t, http.StatusOK, f.statusOf(t, ctx, apiclient.PathMe, jar.AccessToken()))
}

func TestProfileUpdateAndLogoUpload(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("acme.portal.test")
	jar := f.login(t, ctx, users.RoleDealer)

	upload := f.service.UploadLogo(ctx, jar, "acme.png", strings.NewReader("\x89PNG"))
	require.True(t, upload.Status, upload.Message)
	require.True(t, strings.HasPrefix(upload.URL, "/api/uploads/"), upload.URL)

	resp, err := http.Get(f.origin + upload.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "\x89PNG", string(body))
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	updated := f.service.UpdateMe(ctx, jar, auth.ProfileUpdate{FirstName: utils.Ptr("Danielle"), Avatar: utils.Ptr(upload.URL)})
	require.True(t, updated.Status, updated.Message)

	u, ok := jar.User()
	require.True(t, ok)
	require.Equal(t, "Danielle", u.FirstName)
	require.Equal(t, "Demo", u.LastName)
	require.Equal(t, "dealer@acme.test", u.Email)
	require.Equal(t, upload.URL, utils.ValueOr(u.Avatar, ""))

	profile, err := f.backend.Accounts().Profile(u.ID)
	require.NoError(t, err)
	require.Equal(t, "Danielle", profile.FirstName)
}

func TestUploadRejectsNonImages(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("acme.portal.test")
	jar := f.login(t, ctx, users.RoleDealer)

	req, err := apiclient.NewMultipartRequest(apiclient.PathUploadLogo, "file", "notes.txt", strings.NewReader("hi"), nil)
	require.NoError(t, err)
	resp, err := f.client.Do(ctx, jar, req)
	require.NoError(t, err)
	apiclient.Discard(resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := setup(t)
	ctx := tenantCtx("portal.test")
	jar := f.login(t, ctx, users.RoleSuperAdmin)
	access, refresh := jar.AccessToken(), jar.RefreshToken()

	f.service.Logout(ctx, jar)
	require.False(t, jar.IsAuthenticated())

	require.Equal(t, http.StatusUnauthorized, f.statusOf(t, ctx, apiclient.PathMe, access))
	stale, _ := newJar()
	require.NoError(t, stale.SaveTokens(access, refresh))
	require.False(t, f.client.Refresh(ctx, stale))
}
