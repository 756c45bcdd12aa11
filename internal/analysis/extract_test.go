package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
)

func testExtractor() *Extractor {
	return &Extractor{now: func() time.Time { return anchor }}
}

func TestActionDataMeeting(t *testing.T) {
	raw := "### ACTION_DATA\n" +
		"participants: [a@x.com, b@x.com]\n" +
		"duration_minutes: 60 (about an hour)\n" +
		"date: today\n" +
		"time: now\n" +
		"title: Sync\n" +
		"description: Weekly sync\n" +
		"### THREAD_CONTEXT"

	data := testExtractor().ActionData(raw, models.ActionScheduleMeeting)
	if data == nil {
		t.Fatal("expected action data, got nil")
	}

	if got := data.Strings("participants"); !reflect.DeepEqual(got, []string{"a@x.com", "b@x.com"}) {
		t.Errorf("unexpected participants %v", got)
	}
	if got := data.String("duration_minutes"); got != "60" {
		t.Errorf("expected duration 60, got %q", got)
	}
	if got := data.String("date"); got != "2025-04-09" {
		t.Errorf("expected today's date, got %q", got)
	}
	if got := data.String("time"); got != "14:30" {
		t.Errorf("expected current time, got %q", got)
	}
	if got := data.String("title"); got != "Sync" {
		t.Errorf("unexpected title %q", got)
	}
	if got := data.String("description"); got != "Weekly sync" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestActionDataMissingSection(t *testing.T) {
	if data := testExtractor().ActionData("no markers here", models.ActionScheduleMeeting); data != nil {
		t.Errorf("expected nil for absent section, got %v", data)
	}
}

func TestActionDataMissingRequiredField(t *testing.T) {
	// No title: extraction must fail rather than synthesize one.
	raw := "### ACTION_DATA\ndate: today\ntime: now\ndescription: something\n### THREAD_CONTEXT"
	if data := testExtractor().ActionData(raw, models.ActionScheduleMeeting); data != nil {
		t.Errorf("expected nil when a required field is missing, got %v", data)
	}
}

func TestActionDataRequiredFieldsNotEnforcedForReply(t *testing.T) {
	raw := "### ACTION_DATA\nrecipients: a@x.com\nsubject: Re: hello\nmessage: thanks\npriority: normal\n### THREAD_CONTEXT"
	data := testExtractor().ActionData(raw, models.ActionSendReply)
	if data == nil {
		t.Fatal("expected action data for reply kind")
	}
	if got := data.String("subject"); got != "Re: hello" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestActionDataReminderDurationDefault(t *testing.T) {
	raw := "### ACTION_DATA\ndate: today\ntime: 2:00 PM\ntitle: Pay rent\ndescription: Monthly rent\nfor_user: a@x.com\n### THREAD_CONTEXT"
	data := testExtractor().ActionData(raw, models.ActionSetReminder)
	if data == nil {
		t.Fatal("expected action data, got nil")
	}
	if got := data.String("duration_minutes"); got != "30" {
		t.Errorf("expected reminder default duration 30, got %q", got)
	}
	if got := data.String("time"); got != "14:00" {
		t.Errorf("expected 14:00, got %q", got)
	}
}

func TestActionDataDurationDefaultsForMeeting(t *testing.T) {
	raw := "### ACTION_DATA\ndate: today\ntime: now\ntitle: Sync\ndescription: catch up\nduration_minutes: soonish\n### THREAD_CONTEXT"
	data := testExtractor().ActionData(raw, models.ActionScheduleMeeting)
	if data == nil {
		t.Fatal("expected action data, got nil")
	}
	if got := data.String("duration_minutes"); got != "60" {
		t.Errorf("expected meeting default duration 60, got %q", got)
	}
}

func TestActionDataProseAnchor(t *testing.T) {
	raw := "INSIGHTS:\nsome insight\n\nACTION_DATA:\ndate: today\ntime: now\ntitle: Sync\ndescription: catch up\n\nTHREAD_CONTEXT:\nurgency: low"
	data := testExtractor().ActionData(raw, models.ActionScheduleMeeting)
	if data == nil {
		t.Fatal("expected action data parsed from prose anchor")
	}
	if got := data.String("title"); got != "Sync" {
		t.Errorf("unexpected title %q", got)
	}
}

func TestActionDataPlaceholderBody(t *testing.T) {
	raw := "### ACTION_DATA\n" + NoActionData + "\n### THREAD_CONTEXT"
	if data := testExtractor().ActionData(raw, models.ActionNone); data != nil {
		t.Errorf("expected nil for placeholder body, got %v", data)
	}
}

func TestParseParticipantsFiltersNonAddresses(t *testing.T) {
	got := parseParticipants("[a@x.com, the whole team, b@y.com]")
	if !reflect.DeepEqual(got, []string{"a@x.com", "b@y.com"}) {
		t.Errorf("unexpected participants %v", got)
	}
}
