package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	ListByOwner(ctx context.Context, ownerID string, status models.PostStatus, limit int) ([]*models.ScheduledPost, error)
	ListByRange(ctx context.Context, ownerID string, start, end time.Time) ([]*models.ScheduledPost, error)
	ListUnqueued(ctx context.Context, createdBefore time.Time, limit int) ([]*models.ScheduledPost, error)
	MarkQueued(ctx context.Context, id, jobID string) error
	Cancel(ctx context.Context, id string) (bool, error)
	CompleteExecution(ctx context.Context, id string, status models.PostStatus, results []models.PlatformResult) (models.PostStatus, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, owner_id, project_id, platforms, payload, scheduled_at, status, job_id, results, created_at, updated_at`

func (r *scheduledPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts (id, owner_id, project_id, platforms, payload, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	payload, err := json.Marshal(post.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	var projectID sql.NullString
	if post.ProjectID != nil {
		projectID = sql.NullString{String: *post.ProjectID, Valid: true}
	}

	err = r.db.QueryRowContext(ctx, query,
		post.ID, post.OwnerID, projectID, pq.Array(platformStrings(post.Platforms)),
		payload, post.ScheduledAt, post.Status,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE id = $1`
	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) ListByOwner(ctx context.Context, ownerID string, status models.PostStatus, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE owner_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY scheduled_at DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, string(status), limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	return collectScheduledPosts(rows)
}

func (r *scheduledPostRepository) ListByRange(ctx context.Context, ownerID string, start, end time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE owner_id = $1 AND scheduled_at >= $2 AND scheduled_at <= $3
		ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID, start, end)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	return collectScheduledPosts(rows)
}

// ListUnqueued returns pending posts that never had a job recorded, oldest first.
func (r *scheduledPostRepository) ListUnqueued(ctx context.Context, createdBefore time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE status = $1 AND job_id IS NULL AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPending, createdBefore, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	return collectScheduledPosts(rows)
}

func (r *scheduledPostRepository) MarkQueued(ctx context.Context, id, jobID string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			job_id = $2,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusQueued, jobID, time.Now(), id, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Cancel moves a pending or queued post to cancelled. It reports false when
// the row was absent or in any other status.
func (r *scheduledPostRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, time.Now(), id,
		models.PostStatusPending, models.PostStatusQueued)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteExecution stores the results of a job execution in one statement.
// The status only moves when the row is still pending or queued, so a
// concurrent cancel is never overwritten. It returns the status now stored.
func (r *scheduledPostRepository) CompleteExecution(ctx context.Context, id string, status models.PostStatus, results []models.PlatformResult) (models.PostStatus, error) {
	query := `
		UPDATE scheduled_posts
		SET status = CASE WHEN status IN ($1, $2) THEN $3 ELSE status END,
			results = $4,
			updated_at = $5
		WHERE id = $6
		RETURNING status
	`

	encoded, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	var stored string
	err = r.db.QueryRowContext(ctx, query,
		models.PostStatusPending, models.PostStatusQueued, status,
		encoded, time.Now(), id,
	).Scan(&stored)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", models.ErrPostNotFound
		}
		slog.Info(err.Error())
		return "", err
	}
	return models.PostStatus(stored), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledPost(row rowScanner) (*models.ScheduledPost, error) {
	var (
		post      models.ScheduledPost
		projectID sql.NullString
		platforms pq.StringArray
		payload   []byte
		results   []byte
		status    string
		jobID     sql.NullString
	)

	err := row.Scan(&post.ID, &post.OwnerID, &projectID, &platforms, &payload,
		&post.ScheduledAt, &status, &jobID, &results, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if projectID.Valid {
		post.ProjectID = &projectID.String
	}
	post.Status = models.PostStatus(status)
	post.JobID = jobID.String
	post.Platforms = make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		post.Platforms = append(post.Platforms, models.Platform(p))
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &post.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	post.Results = []models.PlatformResult{}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &post.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}

	return &post, nil
}

func collectScheduledPosts(rows *sql.Rows) ([]*models.ScheduledPost, error) {
	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return posts, nil
}

func platformStrings(platforms []models.Platform) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}
