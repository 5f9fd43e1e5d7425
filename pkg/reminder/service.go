package reminder

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/klokku/reminder/internal/utils"
	"github.com/klokku/reminder/pkg/calendar"
	"github.com/klokku/reminder/pkg/discord"
	log "github.com/sirupsen/logrus"
)

type Notifier interface {
	Deliver(ctx context.Context, payload discord.Payload) error
}

type Service interface {
	RunDaily(ctx context.Context) Outcome
	RunWeekly(ctx context.Context) Outcome
	CheckHealth(ctx context.Context) error
}

type ServiceImpl struct {
	calendar  calendar.Calendar
	formatter *discord.Formatter
	notifier  Notifier
	clock     utils.Clock
	location  *time.Location
}

func NewService(cal calendar.Calendar, formatter *discord.Formatter, notifier Notifier, clock utils.Clock, location *time.Location) *ServiceImpl {
	return &ServiceImpl{
		calendar:  cal,
		formatter: formatter,
		notifier:  notifier,
		clock:     clock,
		location:  location,
	}
}

// RunDaily announces today's earliest event. A day without events ends the
// run without calling the webhook.
func (s *ServiceImpl) RunDaily(ctx context.Context) Outcome {
	window := calendar.Today(s.clock.Now(), s.location)
	log.Debugf("Running daily reminder for %s", window)

	events, err := s.calendar.GetEvents(ctx, window)
	if err != nil {
		return fetchFailure(err)
	}
	if len(events) == 0 {
		log.Info("No events found for today")
		return Outcome{Status: StatusNoEventsFound}
	}

	return s.deliver(ctx, s.formatter.Daily(events))
}

// RunWeekly always delivers exactly one digest for next week, even when it
// is empty.
func (s *ServiceImpl) RunWeekly(ctx context.Context) Outcome {
	window := calendar.NextWeek(s.clock.Now(), s.location)
	log.Debugf("Running weekly reminder for %s", window)

	events, err := s.calendar.GetEvents(ctx, window)
	if err != nil {
		return fetchFailure(err)
	}

	return s.deliver(ctx, s.formatter.Weekly(window, events))
}

// CheckHealth performs the daily fetch without delivering anything.
func (s *ServiceImpl) CheckHealth(ctx context.Context) error {
	_, err := s.calendar.GetEvents(ctx, calendar.Today(s.clock.Now(), s.location))
	return err
}

func (s *ServiceImpl) deliver(ctx context.Context, payload discord.Payload) Outcome {
	err := s.notifier.Deliver(ctx, payload)
	if err == nil {
		log.Info("Reminder delivered")
		return Outcome{Status: StatusSuccess}
	}

	var rejected *discord.EndpointRejectedError
	if errors.As(err, &rejected) {
		return Outcome{
			Status:     StatusDeliveryFailed,
			Detail:     rejected.Reason,
			StatusCode: rejected.StatusCode,
			Err:        err,
		}
	}

	log.Errorf("failed to deliver reminder: %v", err)
	return Outcome{
		Status:     StatusDeliveryFailed,
		Detail:     http.StatusText(http.StatusInternalServerError),
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func fetchFailure(err error) Outcome {
	if errors.Is(err, calendar.ErrUnauthorized) {
		log.Warnf("calendar authorization required: %v", err)
		return Outcome{Status: StatusAuthRequired, Err: err}
	}
	log.Errorf("failed to fetch calendar events: %v", err)
	return Outcome{Status: StatusProviderUnavailable, Err: err}
}
