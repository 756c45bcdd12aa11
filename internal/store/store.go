package store

import (
	"context"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
)

type EmailStore interface {
	// CreateEmail inserts the email and its recipient rows in one
	// transaction.
	CreateEmail(ctx context.Context, params models.EmailCreateParams) (*models.Email, error)
	EmailExists(ctx context.Context, messageID string) (bool, error)
	GetEmailByID(ctx context.Context, id int64) (*models.Email, error)
	ListUnprocessedEmails(ctx context.Context, limit int) ([]models.Email, error)
	// ListEmailsByThreadID returns all stored messages of a thread in
	// receipt order, oldest first.
	ListEmailsByThreadID(ctx context.Context, threadID string) ([]models.Email, error)
	ListRecipientsByEmailID(ctx context.Context, emailID int64) ([]models.Recipient, error)
	MarkEmailProcessed(ctx context.Context, id int64) error
	UpdateAttachmentSummary(ctx context.Context, id int64, summary string) error
	CountUnprocessedEmails(ctx context.Context) (int, error)
}

type AttachmentStore interface {
	CreateAttachment(ctx context.Context, params models.AttachmentCreateParams) (*models.Attachment, error)
	ListAttachmentsByEmailID(ctx context.Context, emailID int64) ([]models.Attachment, error)
	// ListUnextractedAttachments returns attachments whose text has not
	// been extracted yet (extracted_text IS NULL).
	ListUnextractedAttachments(ctx context.Context, limit int) ([]models.Attachment, error)
	UpdateAttachmentText(ctx context.Context, id int64, text string) error
	CountUnextractedAttachments(ctx context.Context) (int, error)
}

type AnalysisStore interface {
	// CreateAnalysis is append-only: thread-level re-runs may store a
	// newer analysis for the same email. Dispatchers only consume
	// PENDING rows, so superseded analyses are inert.
	CreateAnalysis(ctx context.Context, params models.AnalysisCreateParams) (*models.Analysis, error)
	GetAnalysisByID(ctx context.Context, id int64) (*models.Analysis, error)
	ListPendingCalendarAnalyses(ctx context.Context, limit int) ([]models.Analysis, error)
	UpdateCalendarStatus(ctx context.Context, id int64, status models.CalendarStatus, message string) error
	// ListAnalysesNeedingReply returns SEND_REPLY analyses that have no
	// reply row yet.
	ListAnalysesNeedingReply(ctx context.Context, limit int) ([]models.Analysis, error)
	CountPendingCalendarAnalyses(ctx context.Context) (int, error)
}

type ReplyStore interface {
	CreateReply(ctx context.Context, params models.ReplyCreateParams) (*models.Reply, error)
	MarkReplySent(ctx context.Context, id int64, sentAt time.Time) error
	MarkReplyFailed(ctx context.Context, id int64, retryCount int, errorMessage string) error
	CountPendingReplies(ctx context.Context) (int, error)
}
