package calendar

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/klokku/reminder/internal/rest"
	"github.com/klokku/reminder/internal/utils"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar Calendar
	clock    utils.Clock
	location *time.Location
}

type EventDTO struct {
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

func NewHandler(c Calendar, clock utils.Clock, location *time.Location) *Handler {
	return &Handler{calendar: c, clock: clock, location: location}
}

func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(r.Context(), w, Today(h.clock.Now(), h.location))
}

func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	h.writeEvents(r.Context(), w, NextWeek(h.clock.Now(), h.location))
}

func (h *Handler) writeEvents(ctx context.Context, w http.ResponseWriter, window TimeWindow) {
	events, err := h.calendar.GetEvents(ctx, window)
	if err != nil {
		WriteFetchError(w, err)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// WriteFetchError maps calendar errors to HTTP: 401 when authorization is
// required, a generic 500 otherwise.
func WriteFetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnauthorized) {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.ErrorResponse{
			Error:   "Calendar authorization required",
			Details: "visit /auth to authorize the calendar",
		})
		return
	}
	log.Errorf("failed to fetch calendar events: %v", err)
	rest.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		Summary: e.Summary,
		Start:   e.Start,
		End:     e.End,
	}
}
