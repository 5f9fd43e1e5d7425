package calendar

import (
	"context"
	"errors"
)

// MaxEvents caps every listing; no pagination happens beyond it.
const MaxEvents = 10

var (
	// ErrUnauthorized means the calendar credential is missing, revoked or
	// cannot be renewed. The only remedy is a new authorization.
	ErrUnauthorized = errors.New("calendar authorization required")
	// ErrProviderUnavailable covers every other provider failure.
	ErrProviderUnavailable = errors.New("calendar provider unavailable")
)

// Calendar lists concrete event occurrences inside a window, ordered by start
// time ascending and capped at MaxEvents. An empty window yields an empty
// slice, not an error.
type Calendar interface {
	GetEvents(ctx context.Context, window TimeWindow) ([]Event, error)
}
