package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/auth"
	"github.com/jrsteele09/warranty-portal/fakebackend"
	"github.com/jrsteele09/warranty-portal/internal/config"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/stretchr/testify/require"
)

const acmeHost = "acme.portal.test"

type fixture struct {
	server  *Server
	portal  *httptest.Server
	backend *httptest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("COOKIE_SECURE", "false")

	backend, err := fakebackend.New("test-secret")
	require.NoError(t, err)
	require.NoError(t, backend.SeedDemoAccounts())
	backendSrv := httptest.NewServer(backend.Handler())
	t.Cleanup(backendSrv.Close)

	client, err := apiclient.New(backendSrv.URL + "/api")
	require.NoError(t, err)
	authService, err := auth.NewService(client)
	require.NoError(t, err)

	s, err := New(config.New(), authService)
	require.NoError(t, err)
	portal := httptest.NewServer(s)
	t.Cleanup(portal.Close)

	return &fixture{server: s, portal: portal, backend: backendSrv}
}

// browser keeps cookies by name and never follows redirects.
type browser struct {
	t       *testing.T
	base    string
	host    string
	cookies map[string]*http.Cookie
	client  *http.Client
}

func (f *fixture) browser(t *testing.T, host string) *browser {
	return &browser{
		t:       t,
		base:    f.portal.URL,
		host:    host,
		cookies: map[string]*http.Cookie{},
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

type page struct {
	*http.Response
	body string
}

func (p page) location(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(p.Header.Get("Location"))
	require.NoError(t, err)
	return u
}

func (b *browser) send(req *http.Request) page {
	b.t.Helper()
	if b.host != "" {
		req.Host = b.host
	}
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return page{Response: resp, body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.send(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) upload(path, field, filename string, content []byte) page {
	b.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(b.t, err)
	_, err = part.Write(content)
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, b.base+path, &buf)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.send(req)
}

func (b *browser) login(email, password string) page {
	b.t.Helper()
	return b.post(RouteAuthLogin, url.Values{"email": {email}, "password": {password}})
}

func (b *browser) has(name string) bool {
	_, ok := b.cookies[name]
	return ok
}

func demo(t *testing.T, role users.Role) fakebackend.DemoAccount {
	t.Helper()
	for _, d := range fakebackend.DemoAccounts {
		if d.Role == role {
			return d
		}
	}
	t.Fatalf("no demo account for %s", role)
	return fakebackend.DemoAccount{}
}

func TestNew_RequiresAuthService(t *testing.T) {
	_, err := New(config.New(), nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setup(t)
	p := f.browser(t, "").get(RouteHealth)
	require.Equal(t, http.StatusOK, p.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, p.body)
}

func TestLoginPage_RendersTenantAndPrefill(t *testing.T) {
	f := setup(t)
	p := f.browser(t, acmeHost).get(RouteLogin + "?error=Session+expired&email=dealer%40acme.test")

	require.Equal(t, http.StatusOK, p.StatusCode)
	require.Contains(t, p.Header.Get("Content-Type"), "text/html")
	require.Contains(t, p.body, "Session expired")
	require.Contains(t, p.body, `value="dealer@acme.test"`)
	require.Contains(t, p.body, "ACME")
	require.Equal(t, "SAMEORIGIN", p.Header.Get("X-Frame-Options"))
	require.NotEmpty(t, p.Header.Get(headerRequestID))
}

func TestIndex(t *testing.T) {
	f := setup(t)
	b := f.browser(t, "")

	p := b.get(RouteIndex)
	require.Equal(t, http.StatusSeeOther, p.StatusCode)
	require.Equal(t, RouteLogin, p.Header.Get("Location"))

	admin := demo(t, users.RoleSuperAdmin)
	b.login(admin.Email, admin.Password)
	p = b.get(RouteIndex)
	require.Equal(t, RouteDashboard, p.Header.Get("Location"))
}

func TestStaticCSS(t *testing.T) {
	f := setup(t)
	b := f.browser(t, "")

	p := b.get("/css/portal.css")
	require.Equal(t, http.StatusOK, p.StatusCode)
	require.Contains(t, p.Header.Get("Cache-Control"), "max-age=300")
	require.Contains(t, p.Header.Get("Content-Type"), "text/css")
	etag := p.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, b.base+"/css/portal.css", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, b.send(req).StatusCode)

	p = b.get("/css/missing.css")
	require.Equal(t, http.StatusNotFound, p.StatusCode)
}
