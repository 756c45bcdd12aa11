// Package handlers implements the admin API endpoints.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/znz-systems/inboxpilot/internal/pipeline"
	"github.com/znz-systems/inboxpilot/internal/store"
)

// StatusHandler serves pipeline health and counters and lets an
// operator trigger a stage by hand.
type StatusHandler struct {
	emails      store.EmailStore
	attachments store.AttachmentStore
	analyses    store.AnalysisStore
	replies     store.ReplyStore
	runner      *pipeline.Runner
}

func NewStatusHandler(
	emails store.EmailStore,
	attachments store.AttachmentStore,
	analyses store.AnalysisStore,
	replies store.ReplyStore,
	runner *pipeline.Runner,
) *StatusHandler {
	return &StatusHandler{
		emails:      emails,
		attachments: attachments,
		analyses:    analyses,
		replies:     replies,
		runner:      runner,
	}
}

func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	UnprocessedEmails      int `json:"unprocessed_emails"`
	UnextractedAttachments int `json:"unextracted_attachments"`
	PendingCalendarActions int `json:"pending_calendar_actions"`
	PendingReplies         int `json:"pending_replies"`
}

// HandleStatus reports the backlog of every pipeline stage.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unprocessed, err := h.emails.CountUnprocessedEmails(ctx)
	if err != nil {
		serverError(w, "counting unprocessed emails", err)
		return
	}
	unextracted, err := h.attachments.CountUnextractedAttachments(ctx)
	if err != nil {
		serverError(w, "counting unextracted attachments", err)
		return
	}
	pendingCalendar, err := h.analyses.CountPendingCalendarAnalyses(ctx)
	if err != nil {
		serverError(w, "counting pending calendar actions", err)
		return
	}
	pendingReplies, err := h.replies.CountPendingReplies(ctx)
	if err != nil {
		serverError(w, "counting pending replies", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		UnprocessedEmails:      unprocessed,
		UnextractedAttachments: unextracted,
		PendingCalendarActions: pendingCalendar,
		PendingReplies:         pendingReplies,
	})
}

// HandleRunStage triggers one pipeline stage synchronously. This is
// the operator recovery path for FAILED calendar actions and stuck
// batches.
func (h *StatusHandler) HandleRunStage(w http.ResponseWriter, r *http.Request) {
	stage := pipeline.Stage(chi.URLParam(r, "stage"))

	if !h.runner.Configured(stage) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown or unconfigured stage: " + string(stage),
		})
		return
	}

	if err := h.runner.RunStage(r.Context(), stage); err != nil {
		serverError(w, "running stage", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stage": string(stage), "status": "completed"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func serverError(w http.ResponseWriter, operation string, err error) {
	slog.Error("admin API error", "operation", operation, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
