package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/klokku/reminder/internal/config"
	"github.com/klokku/reminder/internal/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Application {
	return config.Application{
		Host:     "http://localhost:3000",
		Port:     0,
		Timezone: "Asia/Tokyo",
		Google: config.Google{
			ClientId:    "client-id",
			RedirectUrl: "http://localhost:3000/oauth2callback",
			CalendarId:  "primary",
		},
		Store: config.Store{
			Backend:  config.StoreBackendFile,
			FilePath: filepath.Join(t.TempDir(), "refresh_token"),
		},
	}
}

func TestApplication_Routes(t *testing.T) {
	application, err := NewApplication(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(application.deps.Close)
	handler := application.Handler()

	serve := func(method, target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
		return rr
	}

	t.Run("should redirect root to health", func(t *testing.T) {
		rr := serve(http.MethodGet, "/")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/health", rr.Header().Get("Location"))
	})

	t.Run("should return consent url", func(t *testing.T) {
		rr := serve(http.MethodGet, "/auth")

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Contains(t, body["url"], "accounts.google.com")
	})

	t.Run("should require authorization before listing events", func(t *testing.T) {
		for _, target := range []string{"/today", "/week"} {
			rr := serve(http.MethodGet, target)
			assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
		}
	})

	t.Run("should require authorization before reminding", func(t *testing.T) {
		rr := serve(http.MethodPost, "/today")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("should report unhealthy without authorization", func(t *testing.T) {
		rr := serve(http.MethodGet, "/health")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("should reject callback without code", func(t *testing.T) {
		rr := serve(http.MethodGet, "/oauth2callback")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should not route unknown methods", func(t *testing.T) {
		rr := serve(http.MethodPut, "/today")

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}

func TestRecoverPanics(t *testing.T) {
	t.Run("should answer generic 500 on panic", func(t *testing.T) {
		// given
		r := mux.NewRouter()
		SetupMiddleware(r)
		r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
			panic("secret connection string")
		})
		rr := httptest.NewRecorder()

		// when
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

		// then
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var body rest.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "Internal Server Error", body.Error)
		assert.NotContains(t, rr.Body.String(), "secret")
	})
}
