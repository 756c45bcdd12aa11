package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
	"github.com/znz-systems/inboxpilot/internal/store"
)

const (
	defaultMeetingMinutes  = 60
	defaultReminderMinutes = 30

	emailReminderMinutes = 24 * 60
	popupReminderMinutes = 30

	defaultLocation    = "virtual"
	defaultDescription = "No description provided"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// EventCreator is the provider side of event creation. Implemented by
// Client.
type EventCreator interface {
	CreateEvent(ctx context.Context, event Event) (string, error)
}

// Dispatcher consumes analyses with a pending calendar status and
// turns each into a provider event. FAILED is terminal at this layer;
// recovery is an operator re-marking the row.
type Dispatcher struct {
	analyses store.AnalysisStore
	creator  EventCreator
	location *time.Location
}

func NewDispatcher(analyses store.AnalysisStore, creator EventCreator, location *time.Location) *Dispatcher {
	if location == nil {
		location = time.Local
	}
	return &Dispatcher{
		analyses: analyses,
		creator:  creator,
		location: location,
	}
}

// Run dispatches up to limit pending calendar actions.
func (d *Dispatcher) Run(ctx context.Context, limit int) error {
	pending, err := d.analyses.ListPendingCalendarAnalyses(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing pending calendar analyses: %w", err)
	}
	if len(pending) == 0 {
		slog.Info("no pending calendar actions")
		return nil
	}

	slog.Info("dispatching calendar actions", "count", len(pending))
	for i := range pending {
		d.dispatch(ctx, &pending[i])
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, analysis *models.Analysis) {
	if analysis.ActionData == nil {
		d.setStatus(ctx, analysis.ID, models.CalendarFailed, "no action data")
		return
	}

	event, err := d.buildEvent(analysis)
	if err != nil {
		d.setStatus(ctx, analysis.ID, models.CalendarFailed, fmt.Sprintf("failed to build event: %v", err))
		return
	}

	eventID, err := d.creator.CreateEvent(ctx, *event)
	if err != nil {
		slog.Error("calendar event creation failed",
			"analysis_id", analysis.ID, "error", err)
		d.setStatus(ctx, analysis.ID, models.CalendarFailed, fmt.Sprintf("failed to schedule event: %v", err))
		return
	}

	slog.Info("calendar event created",
		"analysis_id", analysis.ID, "event_id", eventID)
	d.setStatus(ctx, analysis.ID, models.CalendarCompleted,
		fmt.Sprintf("Event created successfully. Event ID: %s", eventID))
}

// buildEvent maps the normalized action data onto an event. Date and
// time are already canonical by the time they reach the store.
func (d *Dispatcher) buildEvent(analysis *models.Analysis) (*Event, error) {
	data := analysis.ActionData

	title := data.String("title")
	if title == "" {
		return nil, fmt.Errorf("missing title")
	}

	start, err := time.ParseInLocation("2006-01-02 15:04",
		data.String("date")+" "+data.String("time"), d.location)
	if err != nil {
		return nil, fmt.Errorf("parsing start time: %w", err)
	}

	duration := defaultMeetingMinutes
	if analysis.ActionKind == models.ActionSetReminder {
		duration = defaultReminderMinutes
	} else if parsed, err := strconv.Atoi(data.String("duration_minutes")); err == nil && parsed > 0 {
		duration = parsed
	}

	description := data.String("description")
	if description == "" {
		description = defaultDescription
	}
	location := data.String("location")
	if location == "" {
		location = defaultLocation
	}

	return &Event{
		Title:                title,
		Description:          description,
		Location:             location,
		Start:                start,
		End:                  start.Add(time.Duration(duration) * time.Minute),
		Attendees:            attendees(analysis),
		EmailReminderMinutes: emailReminderMinutes,
		PopupReminderMinutes: popupReminderMinutes,
	}, nil
}

// attendees keeps only address-shaped participants; reminders invite
// the single user they are for.
func attendees(analysis *models.Analysis) []string {
	data := analysis.ActionData

	if analysis.ActionKind == models.ActionSetReminder {
		if forUser := data.String("for_user"); emailPattern.MatchString(forUser) {
			return []string{forUser}
		}
	}

	var valid []string
	for _, participant := range data.Strings("participants") {
		if emailPattern.MatchString(participant) {
			valid = append(valid, participant)
		}
	}
	if len(valid) == 0 {
		if forUser := data.String("for_user"); emailPattern.MatchString(forUser) {
			return []string{forUser}
		}
	}
	return valid
}

func (d *Dispatcher) setStatus(ctx context.Context, id int64, status models.CalendarStatus, message string) {
	if err := d.analyses.UpdateCalendarStatus(ctx, id, status, message); err != nil {
		slog.Error("failed to update calendar status",
			"analysis_id", id, "status", status, "error", err)
	}
}
