package auth_test

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/warranty-portal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoutNotifiesBackendAndClears(t *testing.T) {
	var calls atomic.Int32
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	f.seed(t, "access", "refresh")
	require.Len(t, f.present(session.AllCookies...), 5)

	f.service.Logout(f.ctx, f.jar)
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, f.present(session.AllCookies...))
}

func TestLogoutClearsWhenBackendFails(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		f := setup(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		f.seed(t, "access", "refresh")
		f.service.Logout(f.ctx, f.jar)
		require.Empty(t, f.present(session.AllCookies...))
	})

	t.Run("unreachable", func(t *testing.T) {
		f := setupWithURL(t, "http://127.0.0.1:1/api")
		f.seed(t, "access", "refresh")
		f.service.Logout(f.ctx, f.jar)
		require.Empty(t, f.present(session.AllCookies...))
	})
}

func TestLogoutWithoutTokenSkipsBackend(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call to %s", r.URL.Path)
	})
	f.seed(t, "", "")
	f.service.Logout(f.ctx, f.jar)
	require.Empty(t, f.present(session.AllCookies...))
}
