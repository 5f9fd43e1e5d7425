package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/klokku/reminder/internal/rest"
	"github.com/klokku/reminder/pkg/credential"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callback(t *testing.T, h *AuthHandler, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?"+params.Encode(), nil)
	rr := httptest.NewRecorder()
	h.OAuthCallback(rr, req)
	return rr
}

func TestAuthHandler_OAuthLogin(t *testing.T) {
	t.Run("should return the consent url", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		m := google.newManager(credential.NewStubStore())
		h := NewAuthHandler(m)
		req := httptest.NewRequest(http.MethodGet, "/auth", nil)
		rr := httptest.NewRecorder()

		// when
		h.OAuthLogin(rr, req)

		// then
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		var body authorizationUrlResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.NotEmpty(t, body.Message)
		assert.True(t, m.ValidateState(queryOf(body.Url).Get("state")))
	})
}

func TestAuthHandler_OAuthCallback(t *testing.T) {
	t.Run("should complete authorization", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		store := credential.NewStubStore()
		m := google.newManager(store)
		h := NewAuthHandler(m)
		state := queryOf(m.AuthorizationURL(context.Background())).Get("state")

		// when
		rr := callback(t, h, url.Values{"code": {"good-code"}, "state": {state}})

		// then
		assert.Equal(t, http.StatusOK, rr.Code)
		var body authorizationResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "Authenticated!", body.Message)
		assert.True(t, body.RefreshTokenExists)
		assert.NotNil(t, body.Expiry)
		assert.Equal(t, []string{"refresh-1"}, store.Saves())
	})

	t.Run("should reject missing code", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		h := NewAuthHandler(google.newManager(credential.NewStubStore()))

		// when
		rr := callback(t, h, url.Values{"state": {"whatever"}})

		// then
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var body rest.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "No code provided", body.Error)
		exchange, _, _, _ := google.counts()
		assert.Zero(t, exchange)
	})

	t.Run("should reject unknown state", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		store := credential.NewStubStore()
		h := NewAuthHandler(google.newManager(store))

		// when
		rr := callback(t, h, url.Values{"code": {"good-code"}, "state": {"forged"}})

		// then
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, store.Saves())
		exchange, _, _, _ := google.counts()
		assert.Zero(t, exchange)
	})

	t.Run("should answer 401 for an invalid code", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		store := credential.NewStubStore()
		m := google.newManager(store)
		h := NewAuthHandler(m)
		state := queryOf(m.AuthorizationURL(context.Background())).Get("state")

		// when
		rr := callback(t, h, url.Values{"code": {"expired-code"}, "state": {state}})

		// then
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, store.Saves())
	})

	t.Run("should answer 401 when consent was denied", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		h := NewAuthHandler(google.newManager(credential.NewStubStore()))

		// when
		rr := callback(t, h, url.Values{"error": {"access_denied"}})

		// then
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		var body rest.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "access_denied", body.Details)
	})

	t.Run("should hide internal failures", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		store := credential.NewStubStore()
		store.SetSaveError(credential.ErrStoreTestError)
		m := google.newManager(store)
		h := NewAuthHandler(m)
		state := queryOf(m.AuthorizationURL(context.Background())).Get("state")

		// when
		rr := callback(t, h, url.Values{"code": {"good-code"}, "state": {state}})

		// then
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), credential.ErrStoreTestError.Error())
	})
}

func TestAuthHandler_OAuthLogout(t *testing.T) {
	t.Run("should revoke and answer no content", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		m := google.newManager(credential.NewStubStoreWith("refresh-1"))
		h := NewAuthHandler(m)
		req := httptest.NewRequest(http.MethodDelete, "/auth", nil)
		rr := httptest.NewRecorder()

		// when
		h.OAuthLogout(rr, req)

		// then
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.False(t, m.Status().RefreshTokenExists)
	})

	t.Run("should log and swallow a refused revocation", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		google.setRevokeStatus(http.StatusBadRequest)
		m := google.newManager(credential.NewStubStoreWith("refresh-1"))
		h := NewAuthHandler(m)
		hook := test.NewGlobal()
		defer hook.Reset()
		req := httptest.NewRequest(http.MethodDelete, "/auth", nil)
		rr := httptest.NewRecorder()

		// when
		h.OAuthLogout(rr, req)

		// then
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.True(t, m.Status().RefreshTokenExists)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
		assert.Contains(t, hook.LastEntry().Message, "Failed to revoke the credentials")
	})
}

func TestHandler_ListCalendars(t *testing.T) {
	t.Run("should list calendars", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		m := google.newManager(credential.NewStubStoreWith("refresh-1"))
		h := NewHandler(google.newService(m))
		rr := httptest.NewRecorder()

		// when
		h.ListCalendars(rr, httptest.NewRequest(http.MethodGet, "/calendars", nil))

		// then
		assert.Equal(t, http.StatusOK, rr.Code)
		var body []CalendarItemDto
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, []CalendarItemDto{{Id: "primary", Summary: "Team"}, {Id: "holidays@example.com", Summary: "Holidays"}}, body)
	})

	t.Run("should answer 401 when not authorized", func(t *testing.T) {
		// given
		google := newFakeGoogle(t)
		h := NewHandler(google.newService(google.newManager(credential.NewStubStore())))
		rr := httptest.NewRecorder()

		// when
		h.ListCalendars(rr, httptest.NewRequest(http.MethodGet, "/calendars", nil))

		// then
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
