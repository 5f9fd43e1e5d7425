package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Google authorization
	r.HandleFunc("/auth", deps.AuthHandler.OAuthLogin).Methods("GET")
	r.HandleFunc("/auth", deps.AuthHandler.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/oauth2callback", deps.AuthHandler.OAuthCallback).Methods("GET")
	r.HandleFunc("/calendars", deps.GoogleHandler.ListCalendars).Methods("GET")

	// Reminders
	r.HandleFunc("/today", deps.CalendarHandler.GetToday).Methods("GET")
	r.HandleFunc("/today", deps.ReminderHandler.PostToday).Methods("POST")
	r.HandleFunc("/week", deps.CalendarHandler.GetWeek).Methods("GET")
	r.HandleFunc("/week", deps.ReminderHandler.PostWeek).Methods("POST")

	// Health
	r.HandleFunc("/health", deps.ReminderHandler.GetHealth).Methods("GET")
	r.Handle("/", http.RedirectHandler("/health", http.StatusFound)).Methods("GET")
}
