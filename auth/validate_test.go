package auth_test

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/warranty-portal/auth"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNoToken(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call to %s", r.URL.Path)
	})
	check := f.service.ValidateSession(f.ctx, f.jar)
	require.Equal(t, auth.SessionCheck{Valid: false, State: auth.StateNoToken}, check)
}

func TestValidateAcceptedPlain(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"email": "x@y.com"})
	})
	f.seed(t, "access", "refresh")

	check := f.service.ValidateSession(f.ctx, f.jar)
	require.Equal(t, auth.SessionCheck{Valid: true, State: auth.StateTokenAcceptedPlain}, check)
	require.Equal(t, "access", f.jar.AccessToken())
}

func TestValidateRotatesTokens(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-new-access-token", "rotated-access")
		w.Header().Set("x-new-refresh-token", "rotated-refresh")
		writeJSON(w, http.StatusOK, map[string]string{"email": "x@y.com"})
	})
	f.seed(t, "access", "refresh")

	check := f.service.ValidateSession(f.ctx, f.jar)
	require.Equal(t, auth.SessionCheck{Valid: true, State: auth.StateTokenAcceptedWithRotation}, check)
	require.Equal(t, "rotated-access", f.jar.AccessToken())
	require.Equal(t, "rotated-refresh", f.jar.RefreshToken())
}

func TestValidateRefreshesAfter401(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
		case "/api/auth/refresh-token":
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "new-access", "refreshToken": "new-refresh"})
		}
	})
	f.seed(t, "access", "refresh")

	check := f.service.ValidateSession(f.ctx, f.jar)
	require.Equal(t, auth.SessionCheck{Valid: true, State: auth.StateTokenAcceptedPlain}, check)
	require.Equal(t, "new-access", f.jar.AccessToken())
	require.Len(t, f.present(session.AllCookies...), 5)
}

func TestValidateFailsClosedOnRejection(t *testing.T) {
	tests := []struct {
		name    string
		refresh string
		handler http.HandlerFunc
	}{
		{
			name:    "no refresh token",
			refresh: "",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
			},
		},
		{
			name:    "refresh rejected",
			refresh: "revoked",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
			},
		},
	}

	for _, policy := range []auth.ValidationPolicy{{FailOpen: true}, {FailOpen: false}} {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := setup(t, tt.handler, auth.WithValidationPolicy(policy))
				f.seed(t, "access", tt.refresh)

				check := f.service.ValidateSession(f.ctx, f.jar)
				require.Equal(t, auth.SessionCheck{Valid: false, State: auth.StateTokenRejected}, check)
				require.Empty(t, f.present(session.AllCookies...))
			})
		}
	}
}

func TestValidateFailsOpenOnInfrastructureTrouble(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		f := setup(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		f.seed(t, "access", "refresh")

		check := f.service.ValidateSession(f.ctx, f.jar)
		require.Equal(t, auth.SessionCheck{Valid: true, State: auth.StateBackendUnavailable}, check)
		require.Len(t, f.present(session.AllCookies...), 5)
	}

	f := setupWithURL(t, "http://127.0.0.1:1/api")
	f.seed(t, "access", "refresh")
	check := f.service.ValidateSession(f.ctx, f.jar)
	require.Equal(t, auth.SessionCheck{Valid: true, State: auth.StateBackendUnavailable}, check)
	require.Len(t, f.present(session.AllCookies...), 5)
}

func TestValidateFailClosedPolicy(t *testing.T) {
	var refreshCalls atomic.Int32
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh-token" {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}, auth.WithValidationPolicy(auth.ValidationPolicy{FailOpen: false}))
	f.seed(t, "access", "refresh")

	check := f.service.ValidateSession(f.ctx, f.jar)
	require.Equal(t, auth.SessionCheck{Valid: false, State: auth.StateBackendUnavailable}, check)
	require.Len(t, f.present(session.AllCookies...), 5)
	require.Zero(t, refreshCalls.Load())
}

func TestValidateOtherStatusLeavesCookies(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "suspended"})
	})
	f.seed(t, "access", "refresh")

	check := f.service.ValidateSession(f.ctx, f.jar)
	require.False(t, check.Valid)
	require.Equal(t, auth.StateTokenRejected, check.State)
	require.Len(t, f.present(session.AllCookies...), 5)
}

func TestSessionCheckJSON(t *testing.T) {
	b, err := json.Marshal(auth.SessionCheck{Valid: true, State: auth.StateTokenAcceptedWithRotation})
	require.NoError(t, err)
	require.JSONEq(t, `{"valid":true,"state":"token_rotated"}`, string(b))
	require.Equal(t, "unknown", auth.SessionState(99).String())
}
