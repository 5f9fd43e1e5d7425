package google

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type CalendarItem struct {
	ID      string
	Summary string
}

type Service interface {
	GetCalendar(calendarId string, location *time.Location) *Calendar
	ListCalendars(ctx context.Context) ([]CalendarItem, error)
}

type ServiceImpl struct {
	auth *TokenManager
	// options are appended after the authorised HTTP client; tests use them
	// to point the API at a local server.
	options []option.ClientOption
}

func NewService(auth *TokenManager, options ...option.ClientOption) *ServiceImpl {
	return &ServiceImpl{
		auth:    auth,
		options: options,
	}
}

func (s *ServiceImpl) GetCalendar(calendarId string, location *time.Location) *Calendar {
	return newGoogleCalendar(s, calendarId, location)
}

// ListCalendars lists the calendars visible to the authorised account so the
// operator can pick a calendar id.
func (s *ServiceImpl) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	googleService, err := s.prepareGoogleService(ctx)
	if err != nil {
		return nil, err
	}
	calendars, err := googleService.CalendarList.List().Context(ctx).Do()
	if err != nil {
		err := s.classifyAPIError("unable to retrieve calendars from Google Calendar", err)
		log.Error(err)
		return nil, err
	}
	googleCalendars := make([]CalendarItem, 0, len(calendars.Items))
	for _, cal := range calendars.Items {
		googleCalendars = append(googleCalendars, CalendarItem{
			ID:      cal.Id,
			Summary: cal.Summary,
		})
	}
	return googleCalendars, nil
}

func (s *ServiceImpl) prepareGoogleService(ctx context.Context) (*gcal.Service, error) {
	client, err := s.auth.Client(ctx)
	if err != nil {
		log.Debug("calendar is unauthenticated, authorization is required")
		return nil, err
	}
	options := append([]option.ClientOption{option.WithHTTPClient(client)}, s.options...)
	service, err := gcal.NewService(ctx, options...)
	if err != nil {
		err := fmt.Errorf("unable to retrieve Calendar client: %w", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}
