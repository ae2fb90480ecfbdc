package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Backend endpoint paths, relative to the base URL.
const (
	PathLogin          = "/auth/login"
	PathLogout         = "/auth/logout"
	PathRefreshToken   = "/auth/refresh-token"
	PathMe             = "/auth/me"
	PathChangePassword = "/auth/change-password"
	PathUploadLogo     = "/upload/single?category=logos"
)

// Client is the single gateway between portal pages and the REST backend.
// It holds no per-user state; credentials come from the Jar on each call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	refreshes  singleflight.Group
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets an overall timeout on outbound calls. Zero keeps the
// transport defaults.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for the backend at baseURL (e.g. "https://api.example.com/api").
func New(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[apiclient New] invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends an authenticated request. A 401 triggers one token refresh; when
// that succeeds the request is replayed once with the new access token, and
// when it fails the original 401 response is returned untouched. Only
// transport failures produce an error.
func (c *Client) Do(ctx context.Context, jar *session.Jar, req Request) (*http.Response, error) {
	resp, err := c.Send(ctx, req, jar.AccessToken())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if !c.Refresh(ctx, jar) {
		return resp, nil
	}
	Discard(resp)

	log.Debug().Str("method", req.Method).Str("path", req.Path).Msg("retrying request with refreshed token")
	return c.Send(ctx, req, jar.AccessToken())
}

// Send performs exactly one request with the given bearer token (may be empty).
func (c *Client) Send(ctx context.Context, req Request, accessToken string) (*http.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return nil, errors.Wrapf(err, "[apiclient Send] build %s %s", method, req.Path)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	if req.IsMultipart() {
		httpReq.Header.Set("Content-Type", req.ContentType)
	} else {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)

	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if host := ForwardedHost(ctx); host != "" {
		httpReq.Host = host
		httpReq.Header.Set("X-Forwarded-Host", host)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", errors.ErrTransport, method, req.Path, err)
	}
	return resp, nil
}
