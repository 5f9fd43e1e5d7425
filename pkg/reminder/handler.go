package reminder

import (
	"errors"
	"net/http"

	"github.com/klokku/reminder/internal/rest"
	"github.com/klokku/reminder/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) PostToday(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, h.service.RunDaily(r.Context()))
}

func (h *Handler) PostWeek(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, h.service.RunWeekly(r.Context()))
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CheckHealth(r.Context()); err != nil {
		log.Errorf("Health check failed: %v", err)
		message := calendar.ErrProviderUnavailable.Error()
		if errors.Is(err, calendar.ErrUnauthorized) {
			message = calendar.ErrUnauthorized.Error()
		}
		rest.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", Message: message})
		return
	}
	log.Debug("Health check passed")
	rest.WriteJSON(w, http.StatusOK, HealthResponse{Status: "OK"})
}

func writeOutcome(w http.ResponseWriter, outcome Outcome) {
	rest.WriteJSON(w, outcome.HTTPStatus(), rest.MessageResponse{Message: outcome.Message()})
}
