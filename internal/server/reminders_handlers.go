package server

import (
	"net/http"

	"github.com/omriShneor/reminder_agent/internal/database"
)

// handleListReminders returns a user's reminders with an optional status filter
func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	rawUserID := r.URL.Query().Get("user_id")
	if rawUserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var status *database.ReminderStatus
	if statusFilter := r.URL.Query().Get("status"); statusFilter != "" {
		st := database.ReminderStatus(statusFilter)
		switch st {
		case database.ReminderStatusPending, database.ReminderStatusDelivered, database.ReminderStatusCancelled:
		default:
			respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &st
	}

	reminders, err := s.db.ListRemindersByUser(userKey(rawUserID), status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reminders == nil {
		reminders = []database.Reminder{}
	}

	respondJSON(w, http.StatusOK, reminders)
}

// handleCancelReminder withdraws a pending reminder owned by user_id
func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	rawUserID := r.URL.Query().Get("user_id")
	if rawUserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	cancelled, err := s.db.CancelReminder(r.PathValue("ref"), userKey(rawUserID))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !cancelled {
		respondError(w, http.StatusNotFound, "no pending reminder with that ref")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(database.ReminderStatusCancelled)})
}
