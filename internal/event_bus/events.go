package event_bus

import "time"

const TokenUpdatedEvent EventType = "oauth.token.updated"

type TokenSource string

const (
	TokenFromExchange TokenSource = "exchange"
	TokenFromRefresh  TokenSource = "refresh"
)

// TokenUpdated is published whenever the provider hands out a new access
// credential. RefreshToken is empty when the provider did not issue one.
type TokenUpdated struct {
	Source       TokenSource
	AccessToken  string
	RefreshToken string
	TokenType    string
	// Expiry is zero when the provider did not report one.
	Expiry time.Time
}
