package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionKind is the closed classification of what an email implies
// should happen next. Unrecognized model output maps to ActionNone.
type ActionKind string

const (
	ActionScheduleMeeting ActionKind = "SCHEDULE_MEETING"
	ActionSendReply       ActionKind = "SEND_REPLY"
	ActionSetReminder     ActionKind = "SET_REMINDER"
	ActionForwardToSlack  ActionKind = "FORWARD_TO_SLACK"
	ActionNone            ActionKind = "NO_ACTION"
)

var actionKinds = []ActionKind{
	ActionScheduleMeeting,
	ActionSendReply,
	ActionSetReminder,
	ActionForwardToSlack,
	ActionNone,
}

// ParseActionKind maps a free-form action-type phrase from the model
// onto a known kind. The model sometimes wraps the kind in brackets or
// prose, so containment is enough.
func ParseActionKind(s string) ActionKind {
	upper := strings.ToUpper(s)
	for _, kind := range actionKinds {
		if strings.Contains(upper, string(kind)) {
			return kind
		}
	}
	return ActionNone
}

// NeedsCalendar reports whether the kind requires a calendar dispatch.
func (k ActionKind) NeedsCalendar() bool {
	return k == ActionScheduleMeeting || k == ActionSetReminder
}

type CalendarStatus string

const (
	CalendarPending   CalendarStatus = "PENDING"
	CalendarCompleted CalendarStatus = "COMPLETED"
	CalendarFailed    CalendarStatus = "FAILED"
)

type ReplyStatus string

const (
	ReplyPending ReplyStatus = "PENDING"
	ReplySent    ReplyStatus = "SENT"
	ReplyFailed  ReplyStatus = "FAILED"
)

type RecipientType string

const (
	RecipientTo  RecipientType = "to"
	RecipientCc  RecipientType = "cc"
	RecipientBcc RecipientType = "bcc"
)

// ActionData is the kind-specific field mapping parsed out of the
// model's ACTION_DATA section. Values are strings, except
// "participants" which is a []string. Persisted as JSONB.
type ActionData map[string]any

// String returns the string value for key, or "" when absent or not a
// string.
func (d ActionData) String(key string) string {
	if d == nil {
		return ""
	}
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// Strings returns the list value for key. A single string value is
// promoted to a one-element list; JSON round trips turn []string into
// []any, so both shapes are handled.
func (d ActionData) Strings(key string) []string {
	if d == nil {
		return nil
	}
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

type Email struct {
	ID                int64
	PublicID          uuid.UUID
	MessageID         string
	ThreadID          string
	Sender            string
	SenderName        string
	Subject           string
	BodyText          string
	ReceivedAt        time.Time
	Processed         bool
	AttachmentSummary string
	CreatedAt         time.Time
}

type EmailCreateParams struct {
	MessageID  string
	ThreadID   string
	Sender     string
	SenderName string
	Subject    string
	BodyText   string
	ReceivedAt time.Time
	Recipients []RecipientParams
}

type RecipientParams struct {
	Address string
	Type    RecipientType
}

type Recipient struct {
	ID      int64
	EmailID int64
	Address string
	Type    RecipientType
}

type Attachment struct {
	ID            int64
	PublicID      uuid.UUID
	EmailID       int64
	FileName      string
	ContentType   string
	SizeBytes     int64
	BlobKey       string
	StorageURL    string
	ExtractedText *string
	CreatedAt     time.Time
}

type AttachmentCreateParams struct {
	EmailID     int64
	FileName    string
	ContentType string
	SizeBytes   int64
	BlobKey     string
	StorageURL  string
}

// SearchResult is one structured web-search hit.
type SearchResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// Analysis is the persisted result of running the extraction pipeline
// over one email/thread.
type Analysis struct {
	ID                    int64
	PublicID              uuid.UUID
	EmailID               int64
	ThreadID              string
	ActionKind            ActionKind
	ActionData            ActionData
	Summary               string
	Insights              string
	CalendarStatus        *CalendarStatus
	CalendarMessage       string
	SearchPerformed       bool
	SearchQuery           string
	SearchResults         []SearchResult
	SearchAnswer          string
	NotificationSent      bool
	NotificationChannel   string
	NotificationMessageID string
	CreatedAt             time.Time
}

type AnalysisCreateParams struct {
	EmailID               int64
	ThreadID              string
	ActionKind            ActionKind
	ActionData            ActionData
	Summary               string
	Insights              string
	CalendarStatus        *CalendarStatus
	SearchPerformed       bool
	SearchQuery           string
	SearchResults         []SearchResult
	SearchAnswer          string
	NotificationSent      bool
	NotificationChannel   string
	NotificationMessageID string
}

type Reply struct {
	ID           int64
	PublicID     uuid.UUID
	EmailID      int64
	AnalysisID   int64
	Subject      string
	Body         string
	Status       ReplyStatus
	RetryCount   int
	SentAt       *time.Time
	ErrorMessage string
	CreatedAt    time.Time
}

type ReplyCreateParams struct {
	EmailID    int64
	AnalysisID int64
	Subject    string
	Body       string
}
