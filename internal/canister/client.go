// Package canister stores reminders in the reminder backend canister over
// its HTTP call gateway.
package canister

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/logger"
)

const createMethod = "createReminder"

// Client calls the reminder canister
type Client struct {
	callURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for the canister with the given id behind baseURL
func NewClient(baseURL, canisterID string) *Client {
	return &Client{
		callURL: fmt.Sprintf("%s/api/v2/canister/%s/call", strings.TrimRight(baseURL, "/"), canisterID),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: logger.For("canister"),
	}
}

// StatusError is returned when the gateway answers with a non-200 status
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("canister returned HTTP %d", e.Code)
}

// Reason is the short text shown to the user.
func (e *StatusError) Reason() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

type callRequest struct {
	MethodName string `json:"method_name"`
	Args       string `json:"args"`
}

// CreateReminder sends the reminder as a candid record. The reminder time is
// the instant in nanoseconds since the epoch and the title doubles as the
// description.
func (c *Client) CreateReminder(ctx context.Context, r conversation.NewReminder) (conversation.Ack, error) {
	payload := callRequest{
		MethodName: createMethod,
		Args:       reminderRecord(r.Title, r.At),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return conversation.Ack{}, fmt.Errorf("failed to marshal canister call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.callURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return conversation.Ack{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return conversation.Ack{}, fmt.Errorf("failed to call canister: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return conversation.Ack{}, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return conversation.Ack{}, fmt.Errorf("failed to read canister response: %w", err)
	}

	ack := conversation.Ack{ID: responseID(body)}
	c.log.Debug().Str("user_id", r.UserID).Str("id", ack.ID).Msg("Reminder created in canister")
	return ack, nil
}

var candidEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func reminderRecord(title string, at time.Time) string {
	text := candidEscaper.Replace(title)
	return fmt.Sprintf(`(record { title="%s"; description="%s"; reminderTime=%d; isCompleted=false; createdAt=0 })`,
		text, text, at.UnixNano())
}

// responseID pulls an "id" out of a JSON response body, if there is one.
func responseID(body []byte) string {
	var decoded map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return ""
	}
	id, ok := decoded["id"]
	if !ok || id == nil {
		return ""
	}
	return fmt.Sprint(id)
}
