package queue

import (
	"context"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	ScheduledPostID string `json:"scheduled_post_id"`
}

// TaskID is the queue job id for a scheduled post. One post maps to at most
// one live job.
func TaskID(postID string) string {
	return "publish:" + postID
}

// Publisher dispatches one platform publish; *platform.Registry satisfies it.
type Publisher interface {
	Publish(ctx context.Context, p models.Platform, req models.PublishRequest) (*models.PublishResponse, error)
}

type Queue struct {
	pr       repository.ScheduledPostRepository
	pl       repository.PublishLogRepository
	registry Publisher
	timeout  time.Duration
}

func NewQueue(
	pr repository.ScheduledPostRepository,
	pl repository.PublishLogRepository,
	registry Publisher,
	timeout time.Duration) *Queue {
	return &Queue{
		pr:       pr,
		pl:       pl,
		registry: registry,
		timeout:  timeout,
	}
}
