package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/znz-systems/inboxpilot/internal/models"
)

type AttachmentStore struct {
	db *sql.DB
}

func NewAttachmentStore(db *sql.DB) *AttachmentStore {
	return &AttachmentStore{db: db}
}

func (s *AttachmentStore) CreateAttachment(ctx context.Context, params models.AttachmentCreateParams) (*models.Attachment, error) {
	attachment := &models.Attachment{
		PublicID:    uuid.New(),
		EmailID:     params.EmailID,
		FileName:    strings.TrimSpace(params.FileName),
		ContentType: strings.TrimSpace(params.ContentType),
		SizeBytes:   params.SizeBytes,
		BlobKey:     strings.TrimSpace(params.BlobKey),
		StorageURL:  strings.TrimSpace(params.StorageURL),
	}
	if attachment.FileName == "" {
		attachment.FileName = "attachment"
	}
	if attachment.ContentType == "" {
		attachment.ContentType = "application/octet-stream"
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO attachments (public_id, email_id, file_name, content_type, size_bytes, blob_key, storage_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		attachment.PublicID, attachment.EmailID, attachment.FileName, attachment.ContentType,
		attachment.SizeBytes, attachment.BlobKey, attachment.StorageURL,
	).Scan(&attachment.ID, &attachment.CreatedAt)
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

func (s *AttachmentStore) ListAttachmentsByEmailID(ctx context.Context, emailID int64) ([]models.Attachment, error) {
	return s.listAttachments(ctx,
		`SELECT id, public_id, email_id, file_name, content_type, size_bytes, blob_key, storage_url, extracted_text, created_at
		 FROM attachments
		 WHERE email_id = $1
		 ORDER BY id ASC`,
		emailID,
	)
}

func (s *AttachmentStore) ListUnextractedAttachments(ctx context.Context, limit int) ([]models.Attachment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.listAttachments(ctx,
		`SELECT id, public_id, email_id, file_name, content_type, size_bytes, blob_key, storage_url, extracted_text, created_at
		 FROM attachments
		 WHERE extracted_text IS NULL
		 ORDER BY id ASC
		 LIMIT $1`,
		limit,
	)
}

func (s *AttachmentStore) UpdateAttachmentText(ctx context.Context, id int64, text string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE attachments SET extracted_text = $2 WHERE id = $1`,
		id, text,
	)
	return err
}

func (s *AttachmentStore) CountUnextractedAttachments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attachments WHERE extracted_text IS NULL`,
	).Scan(&count)
	return count, err
}

func (s *AttachmentStore) listAttachments(ctx context.Context, query string, args ...interface{}) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]models.Attachment, 0, 8)
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(
			&a.ID, &a.PublicID, &a.EmailID, &a.FileName, &a.ContentType,
			&a.SizeBytes, &a.BlobKey, &a.StorageURL, &a.ExtractedText, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
