package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/source"
)

const maxChatBody = 16 << 10

// Health Check

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	pending, err := s.db.Healthy(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	status := map[string]interface{}{
		"status":   "healthy",
		"backend":  s.backend,
		"whatsapp": "disabled",
		"telegram": "disabled",
		"gcal":     "disabled",

		"pending_reminders": pending,
	}

	if s.sessions != nil {
		status["sessions"] = s.sessions.Len()
	}

	if s.waClient != nil {
		status["whatsapp"] = "disconnected"
		if s.waClient.IsLoggedIn() {
			status["whatsapp"] = "connected"
		}
	}

	if s.tgClient != nil {
		status["telegram"] = "disconnected"
		if s.tgClient.IsConnected() {
			status["telegram"] = "connected"
		}
	}

	if s.gcalClient != nil {
		status["gcal"] = "disconnected"
		if s.gcalClient.IsAuthenticated() {
			status["gcal"] = "connected"
		}
	}

	respondJSON(w, http.StatusOK, status)
}

// Conversation

type chatRequest struct {
	UserID   string `json:"user_id"`
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

type chatResponse struct {
	conversation.Reply
	State string `json:"state"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" && req.SenderID == "" {
		req.SenderID = r.Header.Get("X-User-ID")
	}

	msg := conversation.Message{Text: req.Text}
	if req.UserID != "" {
		msg.UserID = userKey(req.UserID)
	}
	if req.SenderID != "" {
		msg.SenderID = userKey(req.SenderID)
	}

	res := s.chat.Handle(r.Context(), msg)

	status := http.StatusOK
	switch {
	case errors.Is(res.Err, conversation.ErrNoUser):
		status = http.StatusBadRequest
	case res.Outcome == conversation.OutcomeFault:
		status = http.StatusInternalServerError
	}

	respondJSON(w, status, chatResponse{Reply: res.Reply, State: res.State})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, ok := s.sessions.Snapshot(userKey(r.PathValue("userID")))
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Forget(userKey(r.PathValue("userID"))) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userKey maps an id from the API to a conversation key. Keys that already
// name a transport pass through, anything else is an API user.
func userKey(id string) string {
	id = strings.TrimSpace(id)
	if t, _, ok := source.ParseUserKey(id); ok {
		switch t {
		case source.SourceTypeTelegram, source.SourceTypeWhatsApp, source.SourceTypeAPI:
			return id
		}
	}
	return source.UserKey(source.SourceTypeAPI, id)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log := logger.For("server")
		log.Error().Err(err).Msg("Error encoding JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
