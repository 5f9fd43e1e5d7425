package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/klokku/reminder/pkg/calendar"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const dateLayout = "2006-01-02"

// Calendar reads events from a single Google calendar.
type Calendar struct {
	service    *ServiceImpl
	calendarId string
	location   *time.Location
}

func newGoogleCalendar(service *ServiceImpl, calendarId string, location *time.Location) *Calendar {
	return &Calendar{
		service:    service,
		calendarId: calendarId,
		location:   location,
	}
}

// GetEvents lists at most calendar.MaxEvents single (expanded) events
// overlapping the window, earliest first.
func (c *Calendar) GetEvents(ctx context.Context, window calendar.TimeWindow) ([]calendar.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	service, err := c.service.prepareGoogleService(ctx)
	if err != nil {
		return nil, err
	}

	log.Debugf("Listing events of calendar %s in %s", c.calendarId, window)
	googleEvents, err := service.Events.List(c.calendarId).
		TimeMin(window.Start.Format(time.RFC3339Nano)).
		TimeMax(window.End.Format(time.RFC3339Nano)).
		MaxResults(calendar.MaxEvents).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		err := c.service.classifyAPIError("unable to retrieve events from Google Calendar", err)
		log.Error(err)
		return nil, err
	}

	return c.googleEventsToEvents(googleEvents.Items), nil
}

func (c *Calendar) googleEventsToEvents(googleEvents []*gcal.Event) []calendar.Event {
	events := make([]calendar.Event, 0, len(googleEvents))
	for _, item := range googleEvents {
		start, err := c.parseEventTime(item.Start)
		if err != nil {
			log.Warnf("ignoring calendar event %q with invalid start: %v", item.Summary, err)
			continue
		}
		end, err := c.parseEventTime(item.End)
		if err != nil {
			log.Warnf("ignoring calendar event %q with invalid end: %v", item.Summary, err)
			continue
		}
		events = append(events, calendar.Event{
			Summary: item.Summary,
			Start:   start,
			End:     end,
		})
	}
	return events
}

// parseEventTime keeps the offset reported for timed events. All-day events
// only carry a date and start at local midnight.
func (c *Calendar) parseEventTime(t *gcal.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, errors.New("missing time")
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	return time.ParseInLocation(dateLayout, t.Date, c.location)
}

// classifyAPIError keeps unauthorised failures recognisable and reports any
// other failure as the provider being unavailable.
func (s *ServiceImpl) classifyAPIError(msg string, err error) error {
	if errors.Is(err, calendar.ErrUnauthorized) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		s.auth.invalidateAccessToken()
		return fmt.Errorf("%s: %w: %w", msg, calendar.ErrUnauthorized, err)
	}
	if errors.Is(err, calendar.ErrProviderUnavailable) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, calendar.ErrProviderUnavailable, err)
}
