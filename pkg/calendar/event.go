package calendar

import "time"

// Event is the normalised view of a provider event. Start and End keep the
// offset the provider reported.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
}
