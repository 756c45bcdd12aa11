package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/znz-systems/inboxpilot/internal/models"
	"github.com/znz-systems/inboxpilot/internal/pipeline"
	"github.com/znz-systems/inboxpilot/internal/web"
	"github.com/znz-systems/inboxpilot/internal/web/handlers"
)

// --- Count-only mock stores ---

type countStores struct {
	unprocessed     int
	unextracted     int
	pendingCalendar int
	pendingReplies  int
}

func (c *countStores) CreateEmail(_ context.Context, _ models.EmailCreateParams) (*models.Email, error) {
	return nil, errors.New("not implemented")
}
func (c *countStores) EmailExists(_ context.Context, _ string) (bool, error) { return false, nil }
func (c *countStores) GetEmailByID(_ context.Context, _ int64) (*models.Email, error) {
	return nil, errors.New("not implemented")
}
func (c *countStores) ListUnprocessedEmails(_ context.Context, _ int) ([]models.Email, error) {
	return nil, nil
}
func (c *countStores) ListEmailsByThreadID(_ context.Context, _ string) ([]models.Email, error) {
	return nil, nil
}
func (c *countStores) ListRecipientsByEmailID(_ context.Context, _ int64) ([]models.Recipient, error) {
	return nil, nil
}
func (c *countStores) MarkEmailProcessed(_ context.Context, _ int64) error { return nil }
func (c *countStores) UpdateAttachmentSummary(_ context.Context, _ int64, _ string) error {
	return nil
}
func (c *countStores) CountUnprocessedEmails(_ context.Context) (int, error) {
	return c.unprocessed, nil
}

func (c *countStores) CreateAttachment(_ context.Context, _ models.AttachmentCreateParams) (*models.Attachment, error) {
	return nil, errors.New("not implemented")
}
func (c *countStores) ListAttachmentsByEmailID(_ context.Context, _ int64) ([]models.Attachment, error) {
	return nil, nil
}
func (c *countStores) ListUnextractedAttachments(_ context.Context, _ int) ([]models.Attachment, error) {
	return nil, nil
}
func (c *countStores) UpdateAttachmentText(_ context.Context, _ int64, _ string) error { return nil }
func (c *countStores) CountUnextractedAttachments(_ context.Context) (int, error) {
	return c.unextracted, nil
}

func (c *countStores) CreateAnalysis(_ context.Context, _ models.AnalysisCreateParams) (*models.Analysis, error) {
	return nil, errors.New("not implemented")
}
func (c *countStores) GetAnalysisByID(_ context.Context, _ int64) (*models.Analysis, error) {
	return nil, errors.New("not implemented")
}
func (c *countStores) ListPendingCalendarAnalyses(_ context.Context, _ int) ([]models.Analysis, error) {
	return nil, nil
}
func (c *countStores) UpdateCalendarStatus(_ context.Context, _ int64, _ models.CalendarStatus, _ string) error {
	return nil
}
func (c *countStores) ListAnalysesNeedingReply(_ context.Context, _ int) ([]models.Analysis, error) {
	return nil, nil
}
func (c *countStores) CountPendingCalendarAnalyses(_ context.Context) (int, error) {
	return c.pendingCalendar, nil
}

func (c *countStores) CreateReply(_ context.Context, _ models.ReplyCreateParams) (*models.Reply, error) {
	return nil, errors.New("not implemented")
}
func (c *countStores) MarkReplySent(_ context.Context, _ int64, _ time.Time) error   { return nil }
func (c *countStores) MarkReplyFailed(_ context.Context, _ int64, _ int, _ string) error {
	return nil
}
func (c *countStores) CountPendingReplies(_ context.Context) (int, error) {
	return c.pendingReplies, nil
}

type countingStage struct {
	runs int
}

func (s *countingStage) Run(_ context.Context, _ int) error {
	s.runs++
	return nil
}

func newTestServer(stores *countStores, runner *pipeline.Runner) *httptest.Server {
	handler := handlers.NewStatusHandler(stores, stores, stores, stores, runner)
	router := web.NewRouter(web.RouterDeps{
		StatusHandler: handler,
		AdminToken:    "secret",
	})
	return httptest.NewServer(router)
}

func authedRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	return req
}

func TestHealthEndpointUnauthenticated(t *testing.T) {
	srv := newTestServer(&countStores{}, pipeline.NewRunner(10))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusRequiresToken(t *testing.T) {
	srv := newTestServer(&countStores{}, pipeline.NewRunner(10))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestStatusCounts(t *testing.T) {
	stores := &countStores{
		unprocessed:     4,
		unextracted:     2,
		pendingCalendar: 1,
		pendingReplies:  3,
	}
	srv := newTestServer(stores, pipeline.NewRunner(10))
	defer srv.Close()

	resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, srv.URL+"/api/status"))
	if err != nil {
		t.Fatalf("GET /api/status failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body handlers.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.UnprocessedEmails != 4 || body.UnextractedAttachments != 2 ||
		body.PendingCalendarActions != 1 || body.PendingReplies != 3 {
		t.Errorf("unexpected counts %+v", body)
	}
}

func TestRunStageEndpoint(t *testing.T) {
	stage := &countingStage{}
	runner := pipeline.NewRunner(10)
	runner.Register(pipeline.StageAnalyze, stage)

	srv := newTestServer(&countStores{}, runner)
	defer srv.Close()

	resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, srv.URL+"/api/run/analyze"))
	if err != nil {
		t.Fatalf("POST /api/run/analyze failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stage.runs != 1 {
		t.Errorf("expected 1 stage run, got %d", stage.runs)
	}
}

func TestRunStageUnknown(t *testing.T) {
	srv := newTestServer(&countStores{}, pipeline.NewRunner(10))
	defer srv.Close()

	resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, srv.URL+"/api/run/bogus"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown stage, got %d", resp.StatusCode)
	}
}
