package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/znz-systems/inboxpilot/internal/models"
	"github.com/znz-systems/inboxpilot/internal/store"
)

const (
	noValidContent  = "No valid content to summarize."
	noSearchAnswer  = "Unable to generate a synthesized answer from search results."
	defaultMaxHits  = 5
	importanceField = "importance"
)

// Summarizer produces structured model output for a block of text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Notification carries everything the chat collaborator needs to post
// about one email.
type Notification struct {
	Channel    string
	Importance string
	Sender     string
	Subject    string
	Content    string
	Summary    string
}

// Notifier posts a notification and returns the provider message id.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (string, error)
}

// NoopNotifier is used when no chat integration is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, n Notification) (string, error) {
	slog.Debug("chat notification skipped, no notifier configured", "subject", n.Subject)
	return "", nil
}

// Searcher runs a web search and returns structured hits.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// Service runs the analysis stage: it assembles thread content, calls
// the model, parses the response, fires side effects, and persists the
// record.
type Service struct {
	emails   store.EmailStore
	attached store.AttachmentStore
	analyses store.AnalysisStore

	summarizer Summarizer
	notifier   Notifier
	searcher   Searcher
	extractor  *Extractor

	includeAttachments bool
	maxSearchResults   int
}

func NewService(
	emails store.EmailStore,
	attached store.AttachmentStore,
	analyses store.AnalysisStore,
	summarizer Summarizer,
	notifier Notifier,
	searcher Searcher,
	includeAttachments bool,
	maxSearchResults int,
) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if maxSearchResults <= 0 {
		maxSearchResults = defaultMaxHits
	}
	return &Service{
		emails:             emails,
		attached:           attached,
		analyses:           analyses,
		summarizer:         summarizer,
		notifier:           notifier,
		searcher:           searcher,
		extractor:          NewExtractor(),
		includeAttachments: includeAttachments,
		maxSearchResults:   maxSearchResults,
	}
}

// Run analyzes up to limit unprocessed emails. Failures are isolated
// per email; a broken item is logged and the batch continues.
func (s *Service) Run(ctx context.Context, limit int) error {
	emails, err := s.emails.ListUnprocessedEmails(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing unprocessed emails: %w", err)
	}
	if len(emails) == 0 {
		slog.Info("no unprocessed emails found")
		return nil
	}

	slog.Info("analyzing emails", "count", len(emails))
	for i := range emails {
		if err := s.ProcessEmail(ctx, &emails[i]); err != nil {
			slog.Error("failed to analyze email",
				"email_id", emails[i].ID,
				"message_id", emails[i].MessageID,
				"error", err)
		}
	}
	return nil
}

// ProcessEmail runs the full analysis pipeline for one email. The
// analysis insert and the processed flag are two separate writes; a
// crash between them leaves the email unprocessed with an analysis
// already stored, and a later run appends a fresh analysis.
func (s *Service) ProcessEmail(ctx context.Context, email *models.Email) error {
	content, err := s.assembleContent(ctx, email)
	if err != nil {
		return err
	}

	var raw string
	if strings.TrimSpace(content) == "" {
		slog.Warn("email has no analyzable content", "email_id", email.ID)
		raw = noValidContent
	} else {
		raw, err = s.summarizer.Summarize(ctx, content)
		if err != nil {
			// Leave the email unprocessed so the next run retries it.
			return fmt.Errorf("summarizing email %d: %w", email.ID, err)
		}
	}

	sections := Split(raw)
	kind := models.ParseActionKind(sections.ActionType)
	data := s.extractor.ActionData(raw, kind)
	if data == nil && kind.NeedsCalendar() {
		slog.Warn("action data missing required fields, calendar dispatch will be skipped",
			"email_id", email.ID, "action_kind", kind)
	}

	params := models.AnalysisCreateParams{
		EmailID:    email.ID,
		ThreadID:   email.ThreadID,
		ActionKind: kind,
		ActionData: data,
		Summary:    raw,
		Insights:   sections.CombinedInsights(),
	}
	if kind.NeedsCalendar() {
		pending := models.CalendarPending
		params.CalendarStatus = &pending
	}

	if kind == models.ActionForwardToSlack {
		s.notify(ctx, email, sections, data, &params)
	}

	if directive := ParseSearchDirective(sections.SearchRequired); directive.Required {
		s.search(ctx, email, directive, &params)
	}

	analysis, err := s.analyses.CreateAnalysis(ctx, params)
	if err != nil {
		return fmt.Errorf("storing analysis for email %d: %w", email.ID, err)
	}
	if err := s.emails.MarkEmailProcessed(ctx, email.ID); err != nil {
		return fmt.Errorf("marking email %d processed: %w", email.ID, err)
	}

	slog.Info("email analyzed",
		"email_id", email.ID,
		"analysis_id", analysis.ID,
		"action_kind", kind)
	return nil
}

// assembleContent joins the whole thread's bodies oldest first, plus
// extracted attachment text when enabled.
func (s *Service) assembleContent(ctx context.Context, email *models.Email) (string, error) {
	parts := []string{}

	if email.ThreadID != "" {
		threadEmails, err := s.emails.ListEmailsByThreadID(ctx, email.ThreadID)
		if err != nil {
			return "", fmt.Errorf("fetching thread %s: %w", email.ThreadID, err)
		}
		for _, threaded := range threadEmails {
			if body := strings.TrimSpace(threaded.BodyText); body != "" {
				parts = append(parts, body)
			}
		}
	} else if body := strings.TrimSpace(email.BodyText); body != "" {
		parts = append(parts, body)
	}

	if s.includeAttachments {
		attachments, err := s.attached.ListAttachmentsByEmailID(ctx, email.ID)
		if err != nil {
			return "", fmt.Errorf("fetching attachments for email %d: %w", email.ID, err)
		}
		for _, att := range attachments {
			if att.ExtractedText != nil && strings.TrimSpace(*att.ExtractedText) != "" {
				parts = append(parts, *att.ExtractedText)
			}
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

// notify posts the email to chat. Notification failure is recorded on
// the analysis, never fatal.
func (s *Service) notify(ctx context.Context, email *models.Email, sections Sections, data models.ActionData, params *models.AnalysisCreateParams) {
	n := Notification{
		Channel:    data.String("channel"),
		Importance: data.String(importanceField),
		Sender:     email.Sender,
		Subject:    email.Subject,
		Content:    email.BodyText,
		Summary:    sections.Summary,
	}

	messageID, err := s.notifier.Notify(ctx, n)
	if err != nil {
		slog.Error("chat notification failed", "email_id", email.ID, "error", err)
		return
	}
	params.NotificationSent = messageID != ""
	params.NotificationChannel = n.Channel
	params.NotificationMessageID = messageID
}

// search runs the web search side effect and a second model pass over
// the hits. A failed search degrades to an empty-results record.
func (s *Service) search(ctx context.Context, email *models.Email, directive SearchDirective, params *models.AnalysisCreateParams) {
	params.SearchPerformed = true
	params.SearchQuery = directive.Query
	params.SearchResults = []models.SearchResult{}
	params.SearchAnswer = noSearchAnswer

	if s.searcher == nil {
		slog.Warn("search requested but no searcher configured", "email_id", email.ID)
		return
	}

	results, err := s.searcher.Search(ctx, directive.Query, s.maxSearchResults)
	if err != nil {
		slog.Error("web search failed", "email_id", email.ID, "query", directive.Query, "error", err)
		return
	}
	if len(results) == 0 {
		slog.Info("web search returned no results", "email_id", email.ID, "query", directive.Query)
		return
	}
	params.SearchResults = results
	params.SearchAnswer = s.synthesizeAnswer(ctx, results, directive.ContextNeeded)
}

func (s *Service) synthesizeAnswer(ctx context.Context, results []models.SearchResult, contextNeeded string) string {
	prompt := fmt.Sprintf("Analyze these search results focusing on %s:\n\n%s\n\nProvide a concise, well-structured answer that addresses the original query.",
		contextNeeded, formatSearchResults(results))

	raw, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		slog.Error("search answer synthesis failed", "error", err)
		return noSearchAnswer
	}

	if answer := strings.TrimSpace(splitSections(raw)["SUMMARY"]); answer != "" {
		return answer
	}
	return noSearchAnswer
}

func formatSearchResults(results []models.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Based on the following search results:\n\n")
	for i, result := range results {
		fmt.Fprintf(&sb, "%d. [Title]: %s\n   [Content]: %s\n\n", i+1, result.Title, result.Body)
	}
	sb.WriteString("\nProvide a concise summary of the key information.")
	return sb.String()
}
