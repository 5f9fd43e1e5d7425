package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/reminder/internal/config"
	"github.com/klokku/reminder/internal/event_bus"
	"github.com/klokku/reminder/pkg/calendar"
	"github.com/klokku/reminder/pkg/credential"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	revokeURL      = "https://oauth2.googleapis.com/revoke"
	requestTimeout = 10 * time.Second
	stateTTL       = 10 * time.Minute
	maxStates      = 32
)

var (
	ErrNotAuthorized             = fmt.Errorf("%w: no refresh token, visit /auth", calendar.ErrUnauthorized)
	ErrAuthorizationCodeRejected = fmt.Errorf("%w: authorization code rejected", calendar.ErrUnauthorized)
	ErrRefreshTokenRejected      = fmt.Errorf("%w: refresh token rejected", calendar.ErrUnauthorized)
)

// Status describes the credential pair without exposing it.
type Status struct {
	RefreshTokenExists bool
	// Expiry of the current access token, nil when none is held or the
	// provider did not report one.
	Expiry *time.Time
}

// TokenManager owns the single process-wide Google credential pair.
//
// The refresh token is loaded from the credential store at start-up and only
// replaced through commit, which persists a new refresh token before anything
// in memory changes and then reloads it from the store. The access token lives
// in memory only. mu serialises renewal, exchange, persistence and reload.
type TokenManager struct {
	mu          sync.Mutex
	oauthConfig *oauth2.Config
	store       credential.Store
	bus         *event_bus.EventBus
	httpClient  *http.Client
	revokeURL   string

	token *oauth2.Token
	// rejectedRefresh is the refresh token the provider last refused; it is
	// never sent again.
	rejectedRefresh string
	states          map[string]time.Time
}

func NewTokenManager(ctx context.Context, cfg config.Google, store credential.Store, bus *event_bus.EventBus) *TokenManager {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientId,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.RedirectUrl,
		Scopes:       []string{gcal.CalendarReadonlyScope},
	}
	return newTokenManager(ctx, oauthConfig, revokeURL, store, bus)
}

func newTokenManager(ctx context.Context, oauthConfig *oauth2.Config, revokeURL string, store credential.Store, bus *event_bus.EventBus) *TokenManager {
	m := &TokenManager{
		oauthConfig: oauthConfig,
		store:       store,
		bus:         bus,
		httpClient:  &http.Client{Timeout: requestTimeout},
		revokeURL:   revokeURL,
		states:      make(map[string]time.Time),
	}

	if refreshToken, ok := store.Load(ctx); ok {
		m.token = &oauth2.Token{RefreshToken: refreshToken}
		log.Info("Loaded refresh token from credential store")
	} else {
		log.Warn("No refresh token stored, authorization required")
	}

	event_bus.SubscribeTyped(bus, event_bus.TokenUpdatedEvent, m.commit)
	return m
}

// AuthorizationURL returns the consent URL asking for offline access to the
// read-only calendar scope. A held access token is revoked first; failure to
// revoke is logged and ignored.
func (m *TokenManager) AuthorizationURL(ctx context.Context) string {
	if m.hasAccessToken() {
		if err := m.Revoke(ctx); err != nil {
			log.Warnf("Failed to revoke the credentials: %v", err)
		} else {
			log.Info("Revoked the credentials")
		}
	}

	state := uuid.NewString()
	now := time.Now()
	m.mu.Lock()
	m.pruneStates(now)
	m.evictOldestStates(maxStates - 1)
	m.states[state] = now.Add(stateTTL)
	m.mu.Unlock()

	log.Tracef("Issued authorization state: %s", state)
	return m.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ValidateState consumes a state issued by AuthorizationURL. Each state is
// accepted once and only before it expires.
func (m *TokenManager) ValidateState(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneStates(time.Now())
	if _, ok := m.states[state]; !ok {
		return false
	}
	delete(m.states, state)
	return true
}

func (m *TokenManager) pruneStates(now time.Time) {
	for state, expiry := range m.states {
		if now.After(expiry) {
			delete(m.states, state)
		}
	}
}

// evictOldestStates drops the states closest to expiry until at most limit
// remain.
func (m *TokenManager) evictOldestStates(limit int) {
	for len(m.states) > limit {
		oldest := ""
		var oldestExpiry time.Time
		for state, expiry := range m.states {
			if oldest == "" || expiry.Before(oldestExpiry) {
				oldest, oldestExpiry = state, expiry
			}
		}
		delete(m.states, oldest)
	}
}

// CompleteAuthorization exchanges an authorization code for a token pair.
// A rejected code yields ErrAuthorizationCodeRejected and leaves the store
// untouched.
func (m *TokenManager) CompleteAuthorization(ctx context.Context, code string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(m.withHTTPClient(ctx), requestTimeout)
	defer cancel()

	token, err := m.oauthConfig.Exchange(ctx, code)
	if err != nil {
		err = classifyTokenError("exchange authorization code", err, ErrAuthorizationCodeRejected)
		log.Error(err)
		return Status{}, err
	}

	commitCtx, cancelCommit := commitContext(ctx)
	defer cancelCommit()
	if err := m.publish(commitCtx, event_bus.TokenFromExchange, token); err != nil {
		return Status{}, err
	}
	return m.statusLocked(), nil
}

// Client returns an HTTP client authorised with the managed credentials. It
// does not touch the network; the access token is renewed lazily on first use.
func (m *TokenManager) Client(ctx context.Context) (*http.Client, error) {
	m.mu.Lock()
	authorized := m.token != nil
	m.mu.Unlock()
	if !authorized {
		return nil, ErrNotAuthorized
	}

	ctx = m.withHTTPClient(ctx)
	return oauth2.NewClient(ctx, &managedTokenSource{ctx: ctx, manager: m}), nil
}

// Revoke revokes the held token at the provider and forgets the pair.
func (m *TokenManager) Revoke(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return nil
	}
	token := m.token.AccessToken
	if token == "" {
		token = m.token.RefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("unable to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unable to revoke token: provider returned %d", resp.StatusCode)
	}

	m.token = nil
	return nil
}

func (m *TokenManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *TokenManager) statusLocked() Status {
	if m.token == nil {
		return Status{}
	}
	status := Status{RefreshTokenExists: m.token.RefreshToken != ""}
	if m.token.AccessToken != "" && !m.token.Expiry.IsZero() {
		expiry := m.token.Expiry
		status.Expiry = &expiry
	}
	return status
}

func (m *TokenManager) hasAccessToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil && m.token.AccessToken != ""
}

// invalidateAccessToken drops the access token after the API refused it so
// the next call renews it.
func (m *TokenManager) invalidateAccessToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != nil {
		m.token = &oauth2.Token{RefreshToken: m.token.RefreshToken}
	}
}

// currentToken returns a valid access token, renewing it when needed.
func (m *TokenManager) currentToken(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return nil, ErrNotAuthorized
	}
	if m.token.Valid() {
		token := *m.token
		return &token, nil
	}
	refreshToken := m.token.RefreshToken
	if refreshToken == "" {
		return nil, ErrNotAuthorized
	}
	if refreshToken == m.rejectedRefresh {
		return nil, ErrRefreshTokenRejected
	}

	log.Debug("Access token expired or absent, renewing")
	refreshed, err := m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		err = classifyTokenError("refresh access token", err, ErrRefreshTokenRejected)
		if errors.Is(err, calendar.ErrUnauthorized) {
			m.rejectedRefresh = refreshToken
		}
		log.Error(err)
		return nil, err
	}

	commitCtx, cancelCommit := commitContext(ctx)
	defer cancelCommit()
	if err := m.publish(commitCtx, event_bus.TokenFromRefresh, refreshed); err != nil {
		return nil, err
	}
	token := *m.token
	return &token, nil
}

// publish announces a new token on the bus; commit is one of the subscribers.
// Must be called with mu held.
func (m *TokenManager) publish(ctx context.Context, source event_bus.TokenSource, token *oauth2.Token) error {
	return m.bus.Publish(event_bus.NewEvent(ctx, event_bus.TokenUpdatedEvent, event_bus.TokenUpdated{
		Source:       source,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}))
}

// commit runs on the publisher's goroutine while mu is held.
func (m *TokenManager) commit(e event_bus.EventT[event_bus.TokenUpdated]) error {
	ctx := e.Context()
	update := e.Data

	current := ""
	if m.token != nil {
		current = m.token.RefreshToken
	}

	// oauth2 echoes the old refresh token back when the provider did not
	// issue a new one, so only a different value counts as new on refresh.
	issued := update.RefreshToken != "" &&
		(update.Source == event_bus.TokenFromExchange || update.RefreshToken != current)
	if issued {
		if err := m.store.Save(ctx, update.RefreshToken); err != nil {
			return fmt.Errorf("unable to persist refresh token: %w", err)
		}
		log.Info("Stored new refresh token")
	}

	refreshToken, ok := m.store.Load(ctx)
	if !ok {
		refreshToken = current
		if issued {
			refreshToken = update.RefreshToken
		}
		log.Warn("Unable to reload refresh token from credential store, keeping the last persisted value")
	}

	m.token = &oauth2.Token{
		AccessToken:  update.AccessToken,
		TokenType:    update.TokenType,
		RefreshToken: refreshToken,
		Expiry:       update.Expiry,
	}
	m.rejectedRefresh = ""

	if update.Expiry.IsZero() {
		log.Warnf("Update tokens (%s): missing expiry", update.Source)
	} else {
		log.Infof("Update tokens (%s): expires at %s", update.Source, update.Expiry.Format(time.RFC3339))
	}
	return nil
}

// commitContext detaches from the caller's cancellation: a token the provider
// has already issued is persisted even when the caller is gone.
func commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
}

func (m *TokenManager) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// classifyTokenError separates provider refusals (4xx from the token
// endpoint) from transport and server faults.
func classifyTokenError(op string, err error, rejected error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
		retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
		return fmt.Errorf("unable to %s: %w: %w", op, rejected, err)
	}
	return fmt.Errorf("unable to %s: %w: %w", op, calendar.ErrProviderUnavailable, err)
}

type managedTokenSource struct {
	ctx     context.Context
	manager *TokenManager
}

func (s *managedTokenSource) Token() (*oauth2.Token, error) {
	return s.manager.currentToken(s.ctx)
}
