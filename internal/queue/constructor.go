package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/crosspost/configs"
)

type Enqueuer struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       config.Queue
}

func NewEnqueuer(redisConn asynq.RedisConnOpt, cfg config.Queue) *Enqueuer {
	return &Enqueuer{
		client:    asynq.NewClient(redisConn),
		inspector: asynq.NewInspector(redisConn),
		cfg:       cfg,
	}
}

func (e *Enqueuer) Inspector() *asynq.Inspector {
	return e.inspector
}

func (e *Enqueuer) Close() error {
	return errors.Join(e.client.Close(), e.inspector.Close())
}

// EnqueuePost schedules the publish job for a post and returns its job id.
// Enqueueing a post that already has a job returns the existing id.
func (e *Enqueuer) EnqueuePost(ctx context.Context, payload PublishPostPayload, delay time.Duration) (string, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	info, err := e.client.EnqueueContext(ctx, task, TaskOptions(e.cfg, payload.ScheduledPostID, delay)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// An earlier enqueue for this post got through.
		slog.Info("Task already scheduled", "job_id", TaskID(payload.ScheduledPostID), "scheduled_post_id", payload.ScheduledPostID)
		return TaskID(payload.ScheduledPostID), nil
	}
	if err != nil {
		return "", err
	}

	slog.Info("Task scheduled", "job_id", info.ID, "scheduled_post_id", payload.ScheduledPostID, "delay", delay)
	return info.ID, nil
}

// RemovePost deletes a job that has not started yet. A job that is already
// gone is not an error.
func (e *Enqueuer) RemovePost(ctx context.Context, jobID string) error {
	err := e.inspector.DeleteTask(e.cfg.Name, jobID)
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}

// TaskOptions is the retry and retention policy of a publish job.
// MaxAttempts counts the first run, asynq's MaxRetry does not.
func TaskOptions(cfg config.Queue, postID string, delay time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(cfg.Name),
		asynq.TaskID(TaskID(postID)),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(max(cfg.MaxAttempts-1, 0)),
		asynq.Retention(cfg.Retention),
	}
}

// Backoff doubles base for every retry already made: base, 2*base, 4*base...
func Backoff(base time.Duration, retried int) time.Duration {
	if retried < 0 {
		retried = 0
	}
	if retried > 20 {
		retried = 20
	}
	return base << retried
}

func RetryDelay(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return Backoff(base, n)
	}
}
