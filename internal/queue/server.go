package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/crosspost/configs"
)

func NewServer(redisConn asynq.RedisConnOpt, cfg config.Queue) *asynq.Server {
	return asynq.NewServer(redisConn, asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         map[string]int{cfg.Name: 1},
		RetryDelayFunc: RetryDelay(cfg.BackoffBase),
		ErrorHandler:   asynq.ErrorHandlerFunc(reportFailure),
		Logger:         slogLogger{},
	})
}

func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
	return mux
}

func reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	jobID, _ := asynq.GetTaskID(ctx)

	switch failureOutcome(err, retried, maxRetry) {
	case outcomeRejected:
		slog.Error("publish job rejected, not retrying", "job_id", jobID, "attempts", retried+1, "error", err)
	case outcomeExhausted:
		slog.Error("publish job exhausted retries", "job_id", jobID, "attempts", retried+1, "error", err)
	default:
		slog.Warn("publish job failed, retrying", "job_id", jobID, "attempt", retried+1, "error", err)
	}
}

type outcome int

const (
	outcomeRetrying outcome = iota
	outcomeExhausted
	outcomeRejected
)

// failureOutcome mirrors asynq's choice between retrying and archiving a failed task.
func failureOutcome(err error, retried, maxRetry int) outcome {
	switch {
	case errors.Is(err, asynq.SkipRetry):
		return outcomeRejected
	case retried >= maxRetry:
		return outcomeExhausted
	}
	return outcomeRetrying
}

type slogLogger struct{}

func (slogLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (slogLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...)) }
func (slogLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...)) }
func (slogLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }
func (slogLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}
