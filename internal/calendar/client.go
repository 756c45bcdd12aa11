// Package calendar creates provider calendar events for pending
// analysis actions.
package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the provider-agnostic description the dispatcher builds.
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string

	// Reminder overrides in minutes before the event.
	EmailReminderMinutes int
	PopupReminderMinutes int
}

// Client wraps the Google Calendar API.
type Client struct {
	svc *calendarapi.Service
}

func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := calendarapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// CreateEvent inserts the event on the primary calendar and returns
// the provider event id.
func (c *Client) CreateEvent(ctx context.Context, event Event) (string, error) {
	body := &calendarapi.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendarapi.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendarapi.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Reminders: &calendarapi.EventReminders{
			UseDefault: false,
			Overrides: []*calendarapi.EventReminder{
				{Method: "email", Minutes: int64(event.EmailReminderMinutes)},
				{Method: "popup", Minutes: int64(event.PopupReminderMinutes)},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, attendee := range event.Attendees {
		body.Attendees = append(body.Attendees, &calendarapi.EventAttendee{Email: attendee})
	}

	created, err := c.svc.Events.Insert("primary", body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inserting calendar event: %w", err)
	}
	return created.Id, nil
}
