package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/znz-systems/inboxpilot/internal/models"
)

type AnalysisStore struct {
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

const analysisColumns = `id, public_id, email_id, thread_id, action_type, action_data, summary, insights,
		calendar_status, COALESCE(calendar_message, ''), search_performed, COALESCE(search_query, ''),
		search_results, COALESCE(search_answer, ''), notification_sent,
		COALESCE(notification_channel, ''), COALESCE(notification_message_id, ''), created_at`

// CreateAnalysis inserts a new analysis row. Inserts are append-only;
// a re-run over the same email stores a second row rather than
// replacing the first.
func (s *AnalysisStore) CreateAnalysis(ctx context.Context, params models.AnalysisCreateParams) (*models.Analysis, error) {
	actionData, err := marshalNullable(params.ActionData == nil, params.ActionData)
	if err != nil {
		return nil, fmt.Errorf("encoding action data: %w", err)
	}
	searchResults, err := marshalNullable(params.SearchResults == nil, params.SearchResults)
	if err != nil {
		return nil, fmt.Errorf("encoding search results: %w", err)
	}

	analysis := &models.Analysis{
		PublicID:              uuid.New(),
		EmailID:               params.EmailID,
		ThreadID:              params.ThreadID,
		ActionKind:            params.ActionKind,
		ActionData:            params.ActionData,
		Summary:               params.Summary,
		Insights:              params.Insights,
		CalendarStatus:        params.CalendarStatus,
		SearchPerformed:       params.SearchPerformed,
		SearchQuery:           params.SearchQuery,
		SearchResults:         params.SearchResults,
		SearchAnswer:          params.SearchAnswer,
		NotificationSent:      params.NotificationSent,
		NotificationChannel:   params.NotificationChannel,
		NotificationMessageID: params.NotificationMessageID,
	}

	var calendarStatus sql.NullString
	if params.CalendarStatus != nil {
		calendarStatus = sql.NullString{String: string(*params.CalendarStatus), Valid: true}
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO analysis
		 (public_id, email_id, thread_id, action_type, action_data, summary, insights, calendar_status,
		  search_performed, search_query, search_results, search_answer,
		  notification_sent, notification_channel, notification_message_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at`,
		analysis.PublicID, analysis.EmailID, analysis.ThreadID, analysis.ActionKind, actionData,
		analysis.Summary, analysis.Insights, calendarStatus,
		analysis.SearchPerformed, analysis.SearchQuery, searchResults, analysis.SearchAnswer,
		analysis.NotificationSent, analysis.NotificationChannel, analysis.NotificationMessageID,
	).Scan(&analysis.ID, &analysis.CreatedAt)
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func (s *AnalysisStore) GetAnalysisByID(ctx context.Context, id int64) (*models.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analysis WHERE id = $1`,
		id,
	)
	return scanAnalysis(row)
}

func (s *AnalysisStore) ListPendingCalendarAnalyses(ctx context.Context, limit int) ([]models.Analysis, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+analysisColumns+`
		 FROM analysis
		 WHERE calendar_status = $1
		 ORDER BY id ASC
		 LIMIT $2`,
		models.CalendarPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows, limit)
}

func (s *AnalysisStore) UpdateCalendarStatus(ctx context.Context, id int64, status models.CalendarStatus, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis SET calendar_status = $2, calendar_message = $3 WHERE id = $1`,
		id, status, message,
	)
	return err
}

func (s *AnalysisStore) ListAnalysesNeedingReply(ctx context.Context, limit int) ([]models.Analysis, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.public_id, a.email_id, a.thread_id, a.action_type, a.action_data, a.summary, a.insights,
		        a.calendar_status, COALESCE(a.calendar_message, ''), a.search_performed, COALESCE(a.search_query, ''),
		        a.search_results, COALESCE(a.search_answer, ''), a.notification_sent,
		        COALESCE(a.notification_channel, ''), COALESCE(a.notification_message_id, ''), a.created_at
		 FROM analysis a
		 LEFT JOIN email_replies r ON r.analysis_id = a.id
		 WHERE a.action_type = $1 AND r.id IS NULL
		 ORDER BY a.id ASC
		 LIMIT $2`,
		models.ActionSendReply, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows, limit)
}

func (s *AnalysisStore) CountPendingCalendarAnalyses(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis WHERE calendar_status = $1`,
		models.CalendarPending,
	).Scan(&count)
	return count, err
}

func collectAnalyses(rows *sql.Rows, sizeHint int) ([]models.Analysis, error) {
	analyses := make([]models.Analysis, 0, sizeHint)
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *analysis)
	}
	return analyses, rows.Err()
}

func scanAnalysis(scanner rowScanner) (*models.Analysis, error) {
	var (
		analysis       models.Analysis
		actionData     []byte
		searchResults  []byte
		calendarStatus sql.NullString
	)
	if err := scanner.Scan(
		&analysis.ID, &analysis.PublicID, &analysis.EmailID, &analysis.ThreadID,
		&analysis.ActionKind, &actionData, &analysis.Summary, &analysis.Insights,
		&calendarStatus, &analysis.CalendarMessage,
		&analysis.SearchPerformed, &analysis.SearchQuery, &searchResults, &analysis.SearchAnswer,
		&analysis.NotificationSent, &analysis.NotificationChannel, &analysis.NotificationMessageID,
		&analysis.CreatedAt,
	); err != nil {
		return nil, err
	}
	if calendarStatus.Valid {
		status := models.CalendarStatus(calendarStatus.String)
		analysis.CalendarStatus = &status
	}
	if len(actionData) > 0 {
		if err := json.Unmarshal(actionData, &analysis.ActionData); err != nil {
			return nil, fmt.Errorf("decoding action data: %w", err)
		}
	}
	if len(searchResults) > 0 {
		if err := json.Unmarshal(searchResults, &analysis.SearchResults); err != nil {
			return nil, fmt.Errorf("decoding search results: %w", err)
		}
	}
	return &analysis, nil
}

func marshalNullable(isNil bool, v interface{}) (interface{}, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}
