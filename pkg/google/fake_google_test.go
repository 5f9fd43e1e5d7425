package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/klokku/reminder/internal/event_bus"
	"github.com/klokku/reminder/pkg/credential"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeGoogle serves the token, revoke and calendar endpoints used by the
// package. Authorization codes and refresh tokens select the response:
//
//	code "good-code"            -> access-1 / refresh-1
//	code "code-without-refresh" -> access-1, no refresh token
//	code "unavailable"          -> 503
//	refresh "refresh-1"         -> access-2, refresh token not reissued
//	refresh "rotating"          -> access-2 / refresh-rotated
//	anything else               -> 400 invalid_grant
type fakeGoogle struct {
	server *httptest.Server

	mu            sync.Mutex
	exchangeCalls int
	refreshCalls  int
	revokeCalls   int
	revoked       []string
	revokeStatus  int
	eventsCalls   int
	eventsPath    string
	eventsQuery   url.Values
	eventsStatus  int
	eventsBody    string
	authHeaders   []string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{
		revokeStatus: http.StatusOK,
		eventsStatus: http.StatusOK,
		eventsBody:   `{"items":[]}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", f.token)
	mux.HandleFunc("/revoke", f.revoke)
	mux.HandleFunc("/calendar/v3/calendars/", f.events)
	mux.HandleFunc("/calendar/v3/users/me/calendarList", f.calendarList)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/oauth2callback",
		Scopes:       []string{gcal.CalendarReadonlyScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.server.URL + "/o/oauth2/auth",
			TokenURL:  f.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (f *fakeGoogle) newManager(store credential.Store) *TokenManager {
	return newTokenManager(context.Background(), f.oauthConfig(), f.server.URL+"/revoke", store, event_bus.NewEventBus())
}

func (f *fakeGoogle) newService(m *TokenManager) *ServiceImpl {
	return NewService(m, option.WithEndpoint(f.server.URL+"/calendar/v3/"))
}

func (f *fakeGoogle) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.exchangeCalls++
		switch r.PostForm.Get("code") {
		case "good-code":
			writeToken(w, "access-1", "refresh-1")
		case "code-without-refresh":
			writeToken(w, "access-1", "")
		case "unavailable":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			writeInvalidGrant(w)
		}
	case "refresh_token":
		f.refreshCalls++
		switch r.PostForm.Get("refresh_token") {
		case "refresh-1":
			writeToken(w, "access-2", "")
		case "rotating":
			writeToken(w, "access-2", "refresh-rotated")
		default:
			writeInvalidGrant(w)
		}
	default:
		writeInvalidGrant(w)
	}
}

func (f *fakeGoogle) revoke(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	f.revoked = append(f.revoked, r.PostForm.Get("token"))
	w.WriteHeader(f.revokeStatus)
}

func (f *fakeGoogle) events(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsCalls++
	f.eventsPath = r.URL.Path
	f.eventsQuery = r.URL.Query()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.eventsStatus)
	_, _ = w.Write([]byte(f.eventsBody))
}

func (f *fakeGoogle) calendarList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"items":[{"id":"primary","summary":"Team"},{"id":"holidays@example.com","summary":"Holidays"}]}`))
}

func (f *fakeGoogle) setRevokeStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeStatus = status
}

func (f *fakeGoogle) setEvents(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsStatus = status
	f.eventsBody = body
}

func (f *fakeGoogle) counts() (exchange, refresh, revoke, events int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchangeCalls, f.refreshCalls, f.revokeCalls, f.eventsCalls
}

func (f *fakeGoogle) lastEventsRequest() (string, url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventsPath, f.eventsQuery
}

func (f *fakeGoogle) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func (f *fakeGoogle) lastAuthHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.authHeaders) == 0 {
		return ""
	}
	return f.authHeaders[len(f.authHeaders)-1]
}

// cancelAfterResponse completes each round trip, buffers the body, then
// cancels the caller's context before handing the response back.
type cancelAfterResponse struct {
	cancel context.CancelFunc
}

func (c *cancelAfterResponse) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	c.cancel()
	return resp, nil
}

func writeToken(w http.ResponseWriter, accessToken, refreshToken string) {
	body := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeInvalidGrant(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
}

func queryOf(rawURL string) url.Values {
	u, err := url.Parse(rawURL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
