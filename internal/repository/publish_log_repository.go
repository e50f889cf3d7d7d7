package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PublishLogRepository interface {
	Create(ctx context.Context, entry *models.PublishLog) (int64, error)
	ListByPostID(ctx context.Context, postID string) ([]*models.PublishLog, error)
}

type publishLogRepository struct {
	db *sql.DB
}

func NewPublishLogRepository(db *sql.DB) PublishLogRepository {
	return &publishLogRepository{db: db}
}

func (r *publishLogRepository) Create(ctx context.Context, entry *models.PublishLog) (int64, error) {
	query := `
		INSERT INTO publish_logs (job_id, attempt, scheduled_post_id, platform, status, response, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	var response any
	if len(entry.Response) > 0 {
		response = []byte(entry.Response)
	}

	err := r.db.QueryRowContext(ctx, query,
		entry.JobID, entry.Attempt, entry.ScheduledPostID, entry.Platform, entry.Status, response, entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return entry.ID, nil
}

func (r *publishLogRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PublishLog, error) {
	query := `SELECT id, job_id, attempt, scheduled_post_id, platform, status, response, error, created_at
		FROM publish_logs WHERE scheduled_post_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var entries []*models.PublishLog
	for rows.Next() {
		entry, err := scanPublishLog(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return entries, nil
}

func scanPublishLog(row rowScanner) (*models.PublishLog, error) {
	var (
		entry    models.PublishLog
		platform string
		status   string
		response []byte
		errMsg   sql.NullString
	)
	err := row.Scan(&entry.ID, &entry.JobID, &entry.Attempt, &entry.ScheduledPostID, &platform, &status, &response, &errMsg, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.Platform = models.Platform(platform)
	entry.Status = models.ResultStatus(status)
	entry.Response = response
	entry.Error = errMsg.String
	return &entry, nil
}
