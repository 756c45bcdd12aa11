package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/znz-systems/inboxpilot/internal/models"
)

type EmailStore struct {
	db *sql.DB
}

func NewEmailStore(db *sql.DB) *EmailStore {
	return &EmailStore{db: db}
}

func (s *EmailStore) CreateEmail(ctx context.Context, params models.EmailCreateParams) (*models.Email, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	email := &models.Email{
		PublicID:   uuid.New(),
		MessageID:  params.MessageID,
		ThreadID:   params.ThreadID,
		Sender:     params.Sender,
		SenderName: params.SenderName,
		Subject:    params.Subject,
		BodyText:   params.BodyText,
		ReceivedAt: params.ReceivedAt,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO emails
		 (public_id, message_id, thread_id, sender, sender_name, subject, body_text, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, processed, created_at`,
		email.PublicID, email.MessageID, email.ThreadID, email.Sender, email.SenderName,
		email.Subject, email.BodyText, email.ReceivedAt,
	).Scan(&email.ID, &email.Processed, &email.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, r := range params.Recipients {
		if r.Address == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO email_recipients (email_id, address, recipient_type)
			 VALUES ($1, $2, $3)`,
			email.ID, r.Address, r.Type,
		); err != nil {
			return nil, fmt.Errorf("inserting recipient %s: %w", r.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return email, nil
}

func (s *EmailStore) EmailExists(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM emails WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	return exists, err
}

func (s *EmailStore) GetEmailByID(ctx context.Context, id int64) (*models.Email, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, message_id, thread_id, sender, sender_name, subject, body_text,
		        received_at, processed, COALESCE(attachment_summary, ''), created_at
		 FROM emails
		 WHERE id = $1`,
		id,
	)
	return scanEmail(row)
}

func (s *EmailStore) ListUnprocessedEmails(ctx context.Context, limit int) ([]models.Email, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, message_id, thread_id, sender, sender_name, subject, body_text,
		        received_at, processed, COALESCE(attachment_summary, ''), created_at
		 FROM emails
		 WHERE processed = FALSE
		 ORDER BY received_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmails(rows, limit)
}

func (s *EmailStore) ListEmailsByThreadID(ctx context.Context, threadID string) ([]models.Email, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, message_id, thread_id, sender, sender_name, subject, body_text,
		        received_at, processed, COALESCE(attachment_summary, ''), created_at
		 FROM emails
		 WHERE thread_id = $1
		 ORDER BY received_at ASC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmails(rows, 8)
}

func (s *EmailStore) ListRecipientsByEmailID(ctx context.Context, emailID int64) ([]models.Recipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email_id, address, recipient_type
		 FROM email_recipients
		 WHERE email_id = $1
		 ORDER BY id ASC`,
		emailID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := make([]models.Recipient, 0, 4)
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.EmailID, &r.Address, &r.Type); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (s *EmailStore) MarkEmailProcessed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE emails SET processed = TRUE WHERE id = $1`, id)
	return err
}

func (s *EmailStore) UpdateAttachmentSummary(ctx context.Context, id int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE emails SET attachment_summary = $2 WHERE id = $1`,
		id, summary,
	)
	return err
}

func (s *EmailStore) CountUnprocessedEmails(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM emails WHERE processed = FALSE`,
	).Scan(&count)
	return count, err
}

func collectEmails(rows *sql.Rows, sizeHint int) ([]models.Email, error) {
	emails := make([]models.Email, 0, sizeHint)
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *email)
	}
	return emails, rows.Err()
}

func scanEmail(scanner rowScanner) (*models.Email, error) {
	var email models.Email
	if err := scanner.Scan(
		&email.ID, &email.PublicID, &email.MessageID, &email.ThreadID, &email.Sender,
		&email.SenderName, &email.Subject, &email.BodyText, &email.ReceivedAt,
		&email.Processed, &email.AttachmentSummary, &email.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &email, nil
}
