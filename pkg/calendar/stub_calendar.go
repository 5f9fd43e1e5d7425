package calendar

import (
	"context"
	"sort"
	"sync"
)

// StubCalendar returns preset events, filtered by window and sorted by start.
type StubCalendar struct {
	mu      sync.RWMutex
	events  []Event
	err     error
	windows []TimeWindow
}

func NewStubCalendar(events ...Event) *StubCalendar {
	return &StubCalendar{events: events}
}

func (c *StubCalendar) GetEvents(_ context.Context, window TimeWindow) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows = append(c.windows, window)

	if c.err != nil {
		return nil, c.err
	}

	events := make([]Event, 0, len(c.events))
	for _, e := range c.events {
		if e.Start.Before(window.End) && !e.End.Before(window.Start) {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	if len(events) > MaxEvents {
		events = events[:MaxEvents]
	}
	return events, nil
}

func (c *StubCalendar) SetEvents(events ...Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
}

func (c *StubCalendar) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Windows returns every window GetEvents was called with.
func (c *StubCalendar) Windows() []TimeWindow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]TimeWindow, len(c.windows))
	copy(result, c.windows)
	return result
}
