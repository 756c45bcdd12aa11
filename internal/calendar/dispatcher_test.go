package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
)

// --- Mocks ---

type mockAnalysisStore struct {
	analyses []models.Analysis
	statuses map[int64]models.CalendarStatus
	messages map[int64]string
}

func newMockAnalysisStore(analyses ...models.Analysis) *mockAnalysisStore {
	return &mockAnalysisStore{
		analyses: analyses,
		statuses: make(map[int64]models.CalendarStatus),
		messages: make(map[int64]string),
	}
}

func (m *mockAnalysisStore) CreateAnalysis(_ context.Context, _ models.AnalysisCreateParams) (*models.Analysis, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAnalysisStore) GetAnalysisByID(_ context.Context, _ int64) (*models.Analysis, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAnalysisStore) ListPendingCalendarAnalyses(_ context.Context, limit int) ([]models.Analysis, error) {
	var out []models.Analysis
	for _, a := range m.analyses {
		if a.CalendarStatus != nil && *a.CalendarStatus == models.CalendarPending && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAnalysisStore) UpdateCalendarStatus(_ context.Context, id int64, status models.CalendarStatus, message string) error {
	m.statuses[id] = status
	m.messages[id] = message
	return nil
}

func (m *mockAnalysisStore) ListAnalysesNeedingReply(_ context.Context, _ int) ([]models.Analysis, error) {
	return nil, nil
}

func (m *mockAnalysisStore) CountPendingCalendarAnalyses(_ context.Context) (int, error) {
	return 0, nil
}

type recordingCreator struct {
	events []Event
	err    error
}

func (c *recordingCreator) CreateEvent(_ context.Context, event Event) (string, error) {
	c.events = append(c.events, event)
	if c.err != nil {
		return "", c.err
	}
	return "evt-123", nil
}

// --- Tests ---

func pendingAnalysis(id int64, kind models.ActionKind, data models.ActionData) models.Analysis {
	pending := models.CalendarPending
	return models.Analysis{
		ID:             id,
		EmailID:        id,
		ActionKind:     kind,
		ActionData:     data,
		CalendarStatus: &pending,
	}
}

func TestDispatchScheduleMeeting(t *testing.T) {
	as := newMockAnalysisStore(pendingAnalysis(1, models.ActionScheduleMeeting, models.ActionData{
		"date":             "2025-04-10",
		"time":             "14:00",
		"duration_minutes": "45",
		"title":            "Team Sync",
		"description":      "Weekly sync",
		"participants":     []string{"a@x.com", "not-an-email", "b@x.com"},
	}))
	creator := &recordingCreator{}

	d := NewDispatcher(as, creator, time.UTC)
	if err := d.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(creator.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(creator.events))
	}
	event := creator.events[0]
	if event.Title != "Team Sync" {
		t.Errorf("unexpected title %q", event.Title)
	}
	wantStart := time.Date(2025, 4, 10, 14, 0, 0, 0, time.UTC)
	if !event.Start.Equal(wantStart) {
		t.Errorf("unexpected start %v", event.Start)
	}
	if got := event.End.Sub(event.Start); got != 45*time.Minute {
		t.Errorf("unexpected duration %v", got)
	}
	if len(event.Attendees) != 2 {
		t.Errorf("expected invalid attendee filtered, got %v", event.Attendees)
	}
	if event.Location != "virtual" {
		t.Errorf("expected default location, got %q", event.Location)
	}
	if event.EmailReminderMinutes != 1440 || event.PopupReminderMinutes != 30 {
		t.Errorf("unexpected reminder overrides %d/%d", event.EmailReminderMinutes, event.PopupReminderMinutes)
	}

	if as.statuses[1] != models.CalendarCompleted {
		t.Errorf("expected COMPLETED, got %s", as.statuses[1])
	}
	if !strings.Contains(as.messages[1], "evt-123") {
		t.Errorf("expected event id in message, got %q", as.messages[1])
	}
}

func TestDispatchReminder(t *testing.T) {
	as := newMockAnalysisStore(pendingAnalysis(1, models.ActionSetReminder, models.ActionData{
		"date":        "2025-04-10",
		"time":        "09:00",
		"title":       "Pay rent",
		"description": "Monthly rent",
		"for_user":    "a@x.com",
	}))
	creator := &recordingCreator{}

	d := NewDispatcher(as, creator, time.UTC)
	if err := d.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	event := creator.events[0]
	if got := event.End.Sub(event.Start); got != 30*time.Minute {
		t.Errorf("reminders are 30 minutes, got %v", got)
	}
	if len(event.Attendees) != 1 || event.Attendees[0] != "a@x.com" {
		t.Errorf("expected single for_user attendee, got %v", event.Attendees)
	}
}

func TestDispatchNoActionDataFails(t *testing.T) {
	as := newMockAnalysisStore(pendingAnalysis(1, models.ActionScheduleMeeting, nil))
	creator := &recordingCreator{}

	d := NewDispatcher(as, creator, time.UTC)
	if err := d.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(creator.events) != 0 {
		t.Error("no event must be created without action data")
	}
	if as.statuses[1] != models.CalendarFailed {
		t.Errorf("expected FAILED, got %s", as.statuses[1])
	}
	if as.messages[1] != "no action data" {
		t.Errorf("unexpected message %q", as.messages[1])
	}
}

func TestDispatchCreatorFailure(t *testing.T) {
	as := newMockAnalysisStore(pendingAnalysis(1, models.ActionScheduleMeeting, models.ActionData{
		"date":        "2025-04-10",
		"time":        "14:00",
		"title":       "Sync",
		"description": "catch up",
	}))
	creator := &recordingCreator{err: errors.New("quota exceeded")}

	d := NewDispatcher(as, creator, time.UTC)
	if err := d.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if as.statuses[1] != models.CalendarFailed {
		t.Errorf("expected FAILED, got %s", as.statuses[1])
	}
	if !strings.Contains(as.messages[1], "quota exceeded") {
		t.Errorf("expected error text recorded, got %q", as.messages[1])
	}
}

func TestDispatchBadStartTimeFails(t *testing.T) {
	as := newMockAnalysisStore(pendingAnalysis(1, models.ActionScheduleMeeting, models.ActionData{
		"date":        "not-a-date",
		"time":        "14:00",
		"title":       "Sync",
		"description": "catch up",
	}))
	creator := &recordingCreator{}

	d := NewDispatcher(as, creator, time.UTC)
	if err := d.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(creator.events) != 0 {
		t.Error("no event must be created with an unparseable start")
	}
	if as.statuses[1] != models.CalendarFailed {
		t.Errorf("expected FAILED, got %s", as.statuses[1])
	}
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	as := newMockAnalysisStore(
		pendingAnalysis(1, models.ActionScheduleMeeting, nil),
		pendingAnalysis(2, models.ActionScheduleMeeting, models.ActionData{
			"date": "2025-04-10", "time": "14:00", "title": "Sync", "description": "d",
		}),
	)
	creator := &recordingCreator{}

	d := NewDispatcher(as, creator, time.UTC)
	if err := d.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if as.statuses[1] != models.CalendarFailed {
		t.Errorf("first action should fail, got %s", as.statuses[1])
	}
	if as.statuses[2] != models.CalendarCompleted {
		t.Errorf("second action should complete, got %s", as.statuses[2])
	}
}
