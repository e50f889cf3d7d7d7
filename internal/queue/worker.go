package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ScheduledPostID == "" {
		return fmt.Errorf("payload without scheduled post id: %w", asynq.SkipRetry)
	}

	jobID, ok := asynq.GetTaskID(ctx)
	if !ok {
		jobID = TaskID(payload.ScheduledPostID)
	}

	attempt, _ := asynq.GetRetryCount(ctx)

	summary, err := q.PublishPost(ctx, jobID, attempt, payload.ScheduledPostID)
	if err != nil {
		return err
	}

	if rw := task.ResultWriter(); rw != nil {
		if out, err := json.Marshal(summary); err == nil {
			if _, err := rw.Write(out); err != nil {
				slog.Warn("unable to write job result", "job_id", jobID, "error", err)
			}
		}
	}
	return nil
}

// PublishPost runs one execution of a publish job; attempt is the number of
// retries already made. Platform failures are
// recorded as results; only errors that make the execution unusable as a
// whole are returned, and those are retried by the queue.
func (q *Queue) PublishPost(ctx context.Context, jobID string, attempt int, postID string) (*transfer.PublishSummary, error) {
	post, err := q.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", postID, err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrPostNotFound, postID)
	}

	if post.Status.Terminal() {
		slog.Info("skipping publish job", "job_id", jobID, "scheduled_post_id", postID, "status", post.Status)
		return &transfer.PublishSummary{Status: post.Status, Skipped: true}, nil
	}

	prior, err := q.priorSuccesses(ctx, postID)
	if err != nil {
		return nil, err
	}

	var logErrs []error
	results := make([]models.PlatformResult, 0, len(post.Platforms))
	for _, p := range post.Platforms {
		if entry, ok := prior[p]; ok {
			slog.Info("platform already published, reusing result", "job_id", jobID, "scheduled_post_id", postID, "platform", p)
			results = append(results, resultFromLog(entry))
			continue
		}

		result, entry := q.publishToPlatform(ctx, jobID, attempt, post, p)
		results = append(results, result)

		if _, err := q.pl.Create(ctx, entry); err != nil {
			slog.Error("Error saving publish log", "job_id", jobID, "scheduled_post_id", postID, "platform", p, "error", err)
			logErrs = append(logErrs, err)
		}
	}

	if len(logErrs) > 0 {
		return nil, fmt.Errorf("write publish log: %w", errors.Join(logErrs...))
	}

	status := models.AggregateStatus(results)
	stored, err := q.pr.CompleteExecution(ctx, postID, status, results)
	if err != nil {
		return nil, fmt.Errorf("persist results for %s: %w", postID, err)
	}
	if stored != status {
		slog.Warn("post status changed during execution", "scheduled_post_id", postID, "computed", status, "stored", stored)
	}

	published := models.CountSucceeded(results)
	summary := &transfer.PublishSummary{
		PublishedCount:     published,
		HadPartialFailures: published < len(results),
		Status:             stored,
	}
	slog.Info("publish job finished", "job_id", jobID, "scheduled_post_id", postID,
		"status", stored, "published", published, "platforms", len(results))
	return summary, nil
}

func (q *Queue) publishToPlatform(ctx context.Context, jobID string, attempt int, post *models.ScheduledPost, p models.Platform) (models.PlatformResult, *models.PublishLog) {
	entry := &models.PublishLog{
		JobID:           jobID,
		Attempt:         attempt,
		ScheduledPostID: post.ID,
		Platform:        p,
	}

	resp, err := q.callAdapter(ctx, p, post.PayloadFor(p))
	if err != nil {
		slog.Info("Error publishing", "platform", p, "scheduled_post_id", post.ID, "error", err)
		entry.Status = models.ResultFailed
		entry.Error = err.Error()
		return models.PlatformResult{Platform: p, Status: models.ResultFailed, Error: err.Error()}, entry
	}

	entry.Status = models.ResultSuccess
	if raw, err := json.Marshal(resp); err == nil {
		entry.Response = raw
	}
	return models.PlatformResult{Platform: p, PostID: resp.PostID, URL: resp.URL, Status: models.ResultSuccess}, entry
}

// callAdapter bounds the adapter call by the platform timeout and turns a
// panicking adapter into a platform failure.
func (q *Queue) callAdapter(ctx context.Context, p models.Platform, req models.PublishRequest) (resp *models.PublishResponse, err error) {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("adapter panic: %v", r)
		}
	}()

	resp, err = q.registry.Publish(ctx, p, req)
	if err == nil && resp == nil {
		resp = &models.PublishResponse{}
	}
	return resp, err
}

func (q *Queue) priorSuccesses(ctx context.Context, postID string) (map[models.Platform]*models.PublishLog, error) {
	entries, err := q.pl.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load publish log for %s: %w", postID, err)
	}
	prior := make(map[models.Platform]*models.PublishLog)
	for _, entry := range entries {
		if entry.Status == models.ResultSuccess {
			prior[entry.Platform] = entry
		}
	}
	return prior, nil
}

func resultFromLog(entry *models.PublishLog) models.PlatformResult {
	result := models.PlatformResult{Platform: entry.Platform, Status: models.ResultSuccess}
	var resp models.PublishResponse
	if len(entry.Response) > 0 && json.Unmarshal(entry.Response, &resp) == nil {
		result.PostID = resp.PostID
		result.URL = resp.URL
	}
	return result
}
