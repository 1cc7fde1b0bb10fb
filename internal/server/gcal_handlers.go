package server

import (
	"net/http"
)

// Google Calendar API

func (s *Server) handleGCalStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"connected": false,
		"message":   "Not configured",
	}

	if s.gcalClient == nil {
		status["message"] = "Google Calendar client not initialized. Check credentials.json."
		respondJSON(w, http.StatusOK, status)
		return
	}

	if s.gcalClient.IsAuthenticated() {
		status["connected"] = true
		status["message"] = "Connected"
	} else {
		status["message"] = "Not authenticated. Call /api/gcal/connect to authorize."
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleGCalListCalendars(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil || !s.gcalClient.IsAuthenticated() {
		respondError(w, http.StatusServiceUnavailable, "Google Calendar not connected")
		return
	}

	calendars, err := s.gcalClient.ListCalendars(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, calendars)
}

func (s *Server) handleGCalConnect(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil {
		respondError(w, http.StatusServiceUnavailable, "Google Calendar not configured. Check credentials.json.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"auth_url": s.gcalClient.GetAuthURL(),
		"message":  "Open this URL to authorize Google Calendar access",
	})
}

// handleOAuthCallback handles the OAuth callback from Google
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil {
		respondError(w, http.StatusServiceUnavailable, "Google Calendar not configured")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "No authorization code received")
		return
	}

	if err := s.gcalClient.ExchangeCode(r.Context(), code); err != nil {
		s.log.Error().Err(err).Msg("Failed to exchange OAuth code")
		respondError(w, http.StatusInternalServerError, "Failed to exchange code")
		return
	}

	s.log.Info().Msg("Google Calendar connected")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": true,
		"message":   "Google Calendar connected. You can close this window.",
	})
}

// Transports

func (s *Server) handleWhatsAppStatus(w http.ResponseWriter, r *http.Request) {
	if s.waClient == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	respondJSON(w, http.StatusOK, s.waClient.Status())
}

func (s *Server) handleTelegramStatus(w http.ResponseWriter, r *http.Request) {
	if s.tgClient == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":   true,
		"connected": s.tgClient.IsConnected(),
	})
}
