package models

import (
	"encoding/json"
	"time"
)

// PublishLog is written once per (job, attempt, platform). Attempt is the
// queue's retry count, zero for the first execution.
type PublishLog struct {
	ID              int64           `db:"id" json:"id"`
	JobID           string          `db:"job_id" json:"job_id"`
	Attempt         int             `db:"attempt" json:"attempt"`
	ScheduledPostID string          `db:"scheduled_post_id" json:"scheduled_post_id"`
	Platform        Platform        `db:"platform" json:"platform"`
	Status          ResultStatus    `db:"status" json:"status"`
	Response        json.RawMessage `db:"response" json:"response,omitempty"`
	Error           string          `db:"error" json:"error,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
