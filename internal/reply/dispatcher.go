package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
	"github.com/znz-systems/inboxpilot/internal/store"
)

// ErrDeclined is returned when the confirmer rejects the send. The
// reply row stays PENDING so a later pass can retry it.
var ErrDeclined = errors.New("reply send declined")

// Sender transmits a raw RFC 822 message. Implemented by the Gmail
// client.
type Sender interface {
	Send(ctx context.Context, raw []byte, threadID string) (string, error)
}

// Dispatcher generates, stores, and sends replies with bounded retry.
type Dispatcher struct {
	emails   store.EmailStore
	analyses store.AnalysisStore
	replies  store.ReplyStore
	sender   Sender
	confirm  Confirmer

	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
	now        func() time.Time
}

func NewDispatcher(
	emails store.EmailStore,
	analyses store.AnalysisStore,
	replies store.ReplyStore,
	sender Sender,
	confirm Confirmer,
	maxRetries int,
	retryDelay time.Duration,
) *Dispatcher {
	if confirm == nil {
		confirm = AutoApprove{}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Dispatcher{
		emails:     emails,
		analyses:   analyses,
		replies:    replies,
		sender:     sender,
		confirm:    confirm,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Run processes up to limit analyses that want a reply and have none
// stored yet.
func (d *Dispatcher) Run(ctx context.Context, limit int) error {
	pending, err := d.analyses.ListAnalysesNeedingReply(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing analyses needing reply: %w", err)
	}
	if len(pending) == 0 {
		slog.Info("no replies to send")
		return nil
	}

	slog.Info("dispatching replies", "count", len(pending))
	for i := range pending {
		if err := d.ProcessReply(ctx, pending[i].EmailID, pending[i].ID); err != nil {
			if errors.Is(err, ErrDeclined) {
				slog.Info("reply declined by confirmer", "analysis_id", pending[i].ID)
				continue
			}
			slog.Error("failed to process reply",
				"email_id", pending[i].EmailID,
				"analysis_id", pending[i].ID,
				"error", err)
		}
	}
	return nil
}

// ProcessReply renders and sends the reply for one email/analysis
// pair. Send attempts are bounded by maxRetries with a fixed delay
// between them; the first success wins.
func (d *Dispatcher) ProcessReply(ctx context.Context, emailID, analysisID int64) error {
	email, err := d.emails.GetEmailByID(ctx, emailID)
	if err != nil {
		return fmt.Errorf("fetching email %d: %w", emailID, err)
	}
	analysis, err := d.analyses.GetAnalysisByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("fetching analysis %d: %w", analysisID, err)
	}

	rendered := Generate(email, analysis)

	stored, err := d.replies.CreateReply(ctx, models.ReplyCreateParams{
		EmailID:    emailID,
		AnalysisID: analysisID,
		Subject:    rendered.Subject,
		Body:       rendered.Body,
	})
	if err != nil {
		return fmt.Errorf("storing reply: %w", err)
	}

	approved, err := d.confirm.Confirm(email.Sender, rendered.Subject, rendered.Body)
	if err != nil {
		return fmt.Errorf("confirming reply: %w", err)
	}
	if !approved {
		// Stays PENDING; not a failure.
		return ErrDeclined
	}

	raw := buildRawMessage(email, rendered)

	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		messageID, err := d.sender.Send(ctx, raw, email.ThreadID)
		if err == nil {
			slog.Info("reply sent",
				"reply_id", stored.ID,
				"message_id", messageID,
				"attempt", attempt)
			if err := d.replies.MarkReplySent(ctx, stored.ID, d.now()); err != nil {
				return fmt.Errorf("marking reply sent: %w", err)
			}
			return nil
		}

		lastErr = err
		slog.Warn("reply send attempt failed",
			"reply_id", stored.ID,
			"attempt", attempt,
			"max_retries", d.maxRetries,
			"error", err)
		if attempt < d.maxRetries {
			d.sleep(d.retryDelay)
		}
	}

	message := fmt.Sprintf("failed after %d attempts: %v", d.maxRetries, lastErr)
	if err := d.replies.MarkReplyFailed(ctx, stored.ID, d.maxRetries, message); err != nil {
		return fmt.Errorf("marking reply failed: %w", err)
	}
	return fmt.Errorf("sending reply %d: %w", stored.ID, lastErr)
}

// buildRawMessage assembles the RFC 822 reply, threading it onto the
// original via In-Reply-To and References.
func buildRawMessage(email *models.Email, rendered Rendered) []byte {
	var sb []byte
	sb = append(sb, "To: "+email.Sender+"\r\n"...)
	sb = append(sb, "Subject: "+rendered.Subject+"\r\n"...)
	if email.MessageID != "" {
		sb = append(sb, "In-Reply-To: "+email.MessageID+"\r\n"...)
	}
	if email.ThreadID != "" {
		sb = append(sb, "References: "+email.ThreadID+"\r\n"...)
	}
	sb = append(sb, "Content-Type: text/plain; charset=\"UTF-8\"\r\n"...)
	sb = append(sb, "\r\n"...)
	sb = append(sb, rendered.Body...)
	return sb
}
