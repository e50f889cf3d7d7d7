package transfer

import (
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type ScheduleRequest struct {
	OwnerID     string                                   `json:"owner_id"`
	ProjectID   *string                                  `json:"project_id,omitempty"`
	Platforms   []models.Platform                        `json:"platforms"`
	Text        string                                   `json:"text"`
	MediaURLs   []string                                 `json:"media_urls"`
	PerPlatform map[models.Platform]models.PlatformExtra `json:"per_platform,omitempty"`
	ScheduledAt time.Time                                `json:"scheduled_at"`
}

type ScheduleResult struct {
	ScheduledPostID string        `json:"scheduled_post_id"`
	JobID           string        `json:"job_id"`
	Delay           time.Duration `json:"-"`
}

// PublishSummary is reported back to the queue after each job execution.
type PublishSummary struct {
	PublishedCount     int               `json:"published_count"`
	HadPartialFailures bool              `json:"had_partial_failures"`
	Status             models.PostStatus `json:"status"`
	Skipped            bool              `json:"skipped,omitempty"`
}
