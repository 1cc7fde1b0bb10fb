package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/omriShneor/reminder_agent/internal/conversation"
)

// reminderLength is how long the calendar entry for a reminder lasts
const reminderLength = 15 * time.Minute

// ErrNotAuthenticated is returned before the OAuth flow has completed
var ErrNotAuthenticated = notAuthenticated{}

type notAuthenticated struct{}

func (notAuthenticated) Error() string  { return "google calendar not authenticated" }
func (notAuthenticated) Reason() string { return "calendar not connected" }

// IsNotAuthenticated reports whether err is ErrNotAuthenticated
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// CreateReminder writes the reminder as a short event with a popup at its start
func (c *Client) CreateReminder(ctx context.Context, r conversation.NewReminder) (conversation.Ack, error) {
	service := c.calendarService()
	if service == nil {
		return conversation.Ack{}, ErrNotAuthenticated
	}

	created, err := service.Events.Insert(c.calendarID, reminderEvent(r)).Context(ctx).Do()
	if err != nil {
		return conversation.Ack{}, fmt.Errorf("failed to create event: %w", err)
	}

	c.log.Debug().Str("event_id", created.Id).Str("calendar_id", c.calendarID).Msg("Created reminder event")
	return conversation.Ack{ID: created.Id}, nil
}

func reminderEvent(r conversation.NewReminder) *calendar.Event {
	// RFC3339 includes the offset so Google Calendar can infer the timezone
	return &calendar.Event{
		Summary:     r.Title,
		Description: r.Title,
		Start: &calendar.EventDateTime{
			DateTime: r.At.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: r.At.Add(reminderLength).Format(time.RFC3339),
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: 0, ForceSendFields: []string{"Minutes"}},
			},
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"alfred_user": r.UserID},
		},
	}
}
