package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/znz-systems/inboxpilot/internal/models"
)

type ReplyStore struct {
	db *sql.DB
}

func NewReplyStore(db *sql.DB) *ReplyStore {
	return &ReplyStore{db: db}
}

func (s *ReplyStore) CreateReply(ctx context.Context, params models.ReplyCreateParams) (*models.Reply, error) {
	reply := &models.Reply{
		PublicID:   uuid.New(),
		EmailID:    params.EmailID,
		AnalysisID: params.AnalysisID,
		Subject:    params.Subject,
		Body:       params.Body,
		Status:     models.ReplyPending,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO email_replies (public_id, email_id, analysis_id, subject, body, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, retry_count, created_at`,
		reply.PublicID, reply.EmailID, reply.AnalysisID, reply.Subject, reply.Body, reply.Status,
	).Scan(&reply.ID, &reply.RetryCount, &reply.CreatedAt)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *ReplyStore) MarkReplySent(ctx context.Context, id int64, sentAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_replies SET status = $2, sent_at = $3, error_message = NULL WHERE id = $1`,
		id, models.ReplySent, sentAt,
	)
	return err
}

func (s *ReplyStore) MarkReplyFailed(ctx context.Context, id int64, retryCount int, errorMessage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_replies SET status = $2, retry_count = $3, error_message = $4 WHERE id = $1`,
		id, models.ReplyFailed, retryCount, errorMessage,
	)
	return err
}

func (s *ReplyStore) CountPendingReplies(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_replies WHERE status = $1`,
		models.ReplyPending,
	).Scan(&count)
	return count, err
}
