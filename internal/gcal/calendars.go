package gcal

import (
	"context"
	"fmt"
)

// CalendarInfo represents a Google Calendar
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"access_role"`
	// Selected is true for the calendar reminders are written to
	Selected bool `json:"selected"`
}

// ListCalendars returns the calendars the user can write reminders to
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	service := c.calendarService()
	if service == nil {
		return nil, ErrNotAuthenticated
	}

	list, err := service.CalendarList.List().MinAccessRole("writer").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, CalendarInfo{
			ID:         item.Id,
			Summary:    item.Summary,
			Primary:    item.Primary,
			AccessRole: item.AccessRole,
			Selected:   item.Id == c.calendarID || (item.Primary && c.calendarID == "primary"),
		})
	}

	return calendars, nil
}
