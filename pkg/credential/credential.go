package credential

import "context"

// Store persists exactly one secret: the OAuth refresh token.
//
// Save overwrites unconditionally and reports every I/O failure. Load collapses
// every failure, including "never written", into ok == false; callers cannot
// tell a missing secret from a transient read error.
type Store interface {
	Save(ctx context.Context, secret string) error
	Load(ctx context.Context) (secret string, ok bool)
}
