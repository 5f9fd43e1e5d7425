package google

import (
	"errors"
	"net/http"
	"time"

	"github.com/klokku/reminder/internal/rest"
	"github.com/klokku/reminder/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type authorizationUrlResponse struct {
	Message string `json:"message"`
	Url     string `json:"url"`
}

type authorizationResponse struct {
	Message            string     `json:"message"`
	Expiry             *time.Time `json:"expiry"`
	RefreshTokenExists bool       `json:"refreshTokenExists"`
}

type AuthHandler struct {
	auth *TokenManager
}

func NewAuthHandler(auth *TokenManager) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	u := h.auth.AuthorizationURL(r.Context())
	rest.WriteJSON(w, http.StatusOK, authorizationUrlResponse{
		Message: "Authorize this app by visiting this url",
		Url:     u,
	})
}

func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if providerErr := r.FormValue("error"); providerErr != "" {
		log.Warnf("authorization denied by provider: %s", providerErr)
		rest.WriteJSON(w, http.StatusUnauthorized, rest.ErrorResponse{
			Error:   "Authorization denied",
			Details: providerErr,
		})
		return
	}

	code := r.FormValue("code")
	if code == "" {
		rest.WriteError(w, http.StatusBadRequest, "No code provided")
		return
	}
	if !h.auth.ValidateState(r.FormValue("state")) {
		log.Warn("authorization callback with unknown or expired state")
		rest.WriteError(w, http.StatusBadRequest, "Invalid state")
		return
	}

	status, err := h.auth.CompleteAuthorization(r.Context(), code)
	if err != nil {
		if errors.Is(err, calendar.ErrUnauthorized) {
			rest.WriteJSON(w, http.StatusUnauthorized, rest.ErrorResponse{
				Error:   "Invalid authorization code",
				Details: "visit /auth to start again",
			})
			return
		}
		log.Errorf("failed to complete authorization: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication")
		return
	}

	log.Info("Calendar authorization completed")
	rest.WriteJSON(w, http.StatusOK, authorizationResponse{
		Message:            "Authenticated!",
		Expiry:             status.Expiry,
		RefreshTokenExists: status.RefreshTokenExists,
	})
}

func (h *AuthHandler) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Revoke(r.Context()); err != nil {
		log.Warnf("Failed to revoke the credentials: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
