package job

import (
	"context"
	"log/slog"
	"time"
)

type requeuer interface {
	RequeueUnqueued(ctx context.Context, olderThan time.Duration) (int, error)
}

// RequeueJob retries the enqueue of posts that were stored but never queued.
type RequeueJob struct {
	s     requeuer
	after time.Duration
}

func NewRequeueJob(s requeuer, after time.Duration) *RequeueJob {
	return &RequeueJob{s: s, after: after}
}

func (j *RequeueJob) RequeuePosts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := j.s.RequeueUnqueued(ctx, j.after); err != nil {
		slog.Info("Unable to requeue posts", "error", err)
	}
}
