package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/znz-systems/inboxpilot/internal/analysis"
	"github.com/znz-systems/inboxpilot/internal/blob"
	"github.com/znz-systems/inboxpilot/internal/calendar"
	"github.com/znz-systems/inboxpilot/internal/config"
	"github.com/znz-systems/inboxpilot/internal/database"
	"github.com/znz-systems/inboxpilot/internal/dedup"
	"github.com/znz-systems/inboxpilot/internal/extract"
	"github.com/znz-systems/inboxpilot/internal/gmail"
	"github.com/znz-systems/inboxpilot/internal/googleauth"
	"github.com/znz-systems/inboxpilot/internal/ingest"
	"github.com/znz-systems/inboxpilot/internal/llm"
	"github.com/znz-systems/inboxpilot/internal/models"
	"github.com/znz-systems/inboxpilot/internal/pipeline"
	"github.com/znz-systems/inboxpilot/internal/ratelimit"
	"github.com/znz-systems/inboxpilot/internal/reply"
	"github.com/znz-systems/inboxpilot/internal/search"
	"github.com/znz-systems/inboxpilot/internal/slack"
	"github.com/znz-systems/inboxpilot/internal/store/postgres"
	"github.com/znz-systems/inboxpilot/internal/web"
	"github.com/znz-systems/inboxpilot/internal/web/handlers"
	"github.com/znz-systems/inboxpilot/migrations"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inboxpilot",
		Short:         "Email ingestion and action pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var confirmSends bool

	stageCmd := func(use, short string, stage pipeline.Stage) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				app, err := buildApp(cmd.Context(), confirmSends)
				if err != nil {
					return err
				}
				defer app.Close()
				return app.runner.RunStage(cmd.Context(), stage)
			},
		}
	}

	repliesCmd := stageCmd("replies", "Send pending auto-replies", pipeline.StageReplies)
	repliesCmd.Flags().BoolVar(&confirmSends, "confirm", false, "review each reply interactively before sending")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every pipeline stage once, in order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()
			app.runner.RunAll(cmd.Context())
			return nil
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on an interval and expose the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.serve(cmd.Context())
		},
	}

	root.AddCommand(
		stageCmd("ingest", "Fetch and store new mail", pipeline.StageIngest),
		stageCmd("attachments", "Extract text from stored attachments", pipeline.StageAttachments),
		stageCmd("analyze", "Run model analysis over unprocessed emails", pipeline.StageAnalyze),
		stageCmd("calendar", "Dispatch pending calendar actions", pipeline.StageCalendar),
		repliesCmd,
		runCmd,
		serveCmd,
	)
	return root
}

type app struct {
	cfg    *config.Config
	db     *sql.DB
	rdb    *redis.Client
	runner *pipeline.Runner
	router http.Handler
}

func (a *app) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
}

// pacedSummarizer and pacedSearcher put the shared token buckets in
// front of the outbound model and search calls.
type pacedSummarizer struct {
	inner   analysis.Summarizer
	limiter *ratelimit.Limiter
}

func (p pacedSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if err := p.limiter.Wait(ctx, "llm"); err != nil {
		return "", err
	}
	return p.inner.Summarize(ctx, text)
}

type pacedSearcher struct {
	inner   analysis.Searcher
	limiter *ratelimit.Limiter
}

func (p pacedSearcher) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	if err := p.limiter.Wait(ctx, "search"); err != nil {
		return nil, err
	}
	return p.inner.Search(ctx, query, maxResults)
}

func buildApp(ctx context.Context, confirmSends bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := postgres.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := database.RunMigrations(migrations.FS, cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	emailStore := postgres.NewEmailStore(db)
	attachmentStore := postgres.NewAttachmentStore(db)
	analysisStore := postgres.NewAnalysisStore(db)
	replyStore := postgres.NewReplyStore(db)

	blobStore, err := blob.NewFromConfig(ctx, blob.Config{
		Backend:           cfg.BlobBackend,
		FSRoot:            cfg.BlobDir,
		BaseURL:           cfg.BlobBaseURL,
		S3Bucket:          cfg.S3Bucket,
		S3Region:          cfg.S3Region,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring blob store: %w", err)
	}

	a := &app{cfg: cfg, db: db, runner: pipeline.NewRunner(cfg.FetchBatchSize)}

	limiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	llmClient := llm.NewClient(cfg.OpenRouterURL, cfg.OpenRouterKey, cfg.OpenRouterModel)
	summarizer := pacedSummarizer{inner: llmClient, limiter: limiter}
	searcher := pacedSearcher{inner: search.NewClient(cfg.SearchURL), limiter: limiter}

	var notifier analysis.Notifier
	if cfg.SlackToken != "" {
		notifier = slack.NewNotifier(cfg.SlackToken, slack.Channels{
			High:   cfg.SlackChannelHigh,
			Medium: cfg.SlackChannelMedium,
			Low:    cfg.SlackChannelLow,
		})
	}

	a.runner.Register(pipeline.StageAnalyze, analysis.NewService(
		emailStore, attachmentStore, analysisStore,
		summarizer, notifier, searcher,
		cfg.IncludeAttachments, cfg.MaxSearchResults,
	))

	var recognizer extract.TextRecognizer
	if cfg.OCRSpaceKey != "" {
		recognizer = extract.NewOCRClient(cfg.OCRSpaceURL, cfg.OCRSpaceKey)
	} else {
		slog.Warn("no OCR key configured, image and PDF attachments will be skipped")
	}
	a.runner.Register(pipeline.StageAttachments, extract.NewService(
		emailStore, attachmentStore, blobStore, recognizer, llmClient,
	))

	// Gmail and Calendar share one token source. Without credentials
	// those stages stay disabled and the rest of the pipeline runs.
	ts, err := googleauth.TokenSource(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile)
	if err != nil {
		slog.Warn("google auth unavailable, ingest/calendar/reply stages disabled", "error", err)
	} else {
		gmailClient, err := gmail.NewClient(ctx, ts)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating gmail client: %w", err)
		}

		var seen ingest.SeenFilter
		if cfg.RedisAddr != "" {
			a.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			seen = dedup.NewFilter(a.rdb)
		}
		a.runner.Register(pipeline.StageIngest, ingest.NewService(
			gmailClient, seen, emailStore, attachmentStore, blobStore, cfg.GmailQuery,
		))

		calendarClient, err := calendar.NewClient(ctx, ts)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating calendar client: %w", err)
		}
		a.runner.Register(pipeline.StageCalendar, calendar.NewDispatcher(
			analysisStore, calendarClient, time.Local,
		))

		var confirmer reply.Confirmer = reply.AutoApprove{}
		if confirmSends {
			confirmer = &reply.TerminalConfirmer{In: os.Stdin, Out: os.Stdout}
		}
		a.runner.Register(pipeline.StageReplies, reply.NewDispatcher(
			emailStore, analysisStore, replyStore,
			gmailClient, confirmer,
			cfg.ReplyMaxRetries, cfg.ReplyRetryDelay,
		))
	}

	statusHandler := handlers.NewStatusHandler(emailStore, attachmentStore, analysisStore, replyStore, a.runner)
	a.router = web.NewRouter(web.RouterDeps{
		StatusHandler: statusHandler,
		AdminToken:    cfg.AdminToken,
	})

	return a, nil
}

// serve runs the pipeline on an interval alongside the admin API until
// the process is signalled.
func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		ticker := time.NewTicker(a.cfg.ServeInterval)
		defer ticker.Stop()

		a.runner.RunAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.runner.RunAll(ctx)
			}
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("admin API server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down admin API: %w", err)
	}
	return nil
}
