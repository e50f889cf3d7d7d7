package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
	titleExcerptLen  = 50
	requeueBatch     = 100
)

// Enqueuer is the delayed job queue as seen by the scheduling side.
type Enqueuer interface {
	EnqueuePost(ctx context.Context, payload queue.PublishPostPayload, delay time.Duration) (string, error)
	RemovePost(ctx context.Context, jobID string) error
}

type ScheduleService interface {
	Schedule(ctx context.Context, req *transfer.ScheduleRequest) (*transfer.ScheduleResult, error)
	List(ctx context.Context, ownerID string, status models.PostStatus, limit int) ([]*models.ScheduledPost, error)
	Get(ctx context.Context, ownerID, postID string) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, postID string) error
	Events(ctx context.Context, ownerID string, start, end time.Time) ([]models.CalendarEvent, error)
	Logs(ctx context.Context, ownerID, postID string) ([]*models.PublishLog, error)
	RequeueUnqueued(ctx context.Context, olderThan time.Duration) (int, error)
}

type scheduleService struct {
	pr  repository.ScheduledPostRepository
	pl  repository.PublishLogRepository
	q   Enqueuer
	now func() time.Time
}

func NewScheduleService(
	pr repository.ScheduledPostRepository,
	pl repository.PublishLogRepository,
	q Enqueuer) ScheduleService {
	return &scheduleService{
		pr:  pr,
		pl:  pl,
		q:   q,
		now: time.Now,
	}
}

// PublishDelay is how long the queue holds a job scheduled for scheduledAt.
// Past times are due immediately.
func PublishDelay(scheduledAt, now time.Time) time.Duration {
	delay := scheduledAt.Sub(now)
	if delay < 0 {
		delay = 0
	}
	return delay
}

func (s *scheduleService) Schedule(ctx context.Context, req *transfer.ScheduleRequest) (*transfer.ScheduleResult, error) {
	if req == nil {
		err := errors.New("schedule request is nil")
		slog.Error(err.Error())
		return nil, err
	}

	if err := validateScheduleRequest(req); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Error(err.Error())
		return nil, err
	}

	post := &models.ScheduledPost{
		ID:        id,
		OwnerID:   req.OwnerID,
		ProjectID: req.ProjectID,
		Platforms: lo.Uniq(req.Platforms),
		Payload: models.PostPayload{
			Text:        req.Text,
			MediaURLs:   req.MediaURLs,
			PerPlatform: req.PerPlatform,
		},
		ScheduledAt: req.ScheduledAt,
		Status:      models.PostStatusPending,
		Results:     []models.PlatformResult{},
	}

	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating scheduled post: %w", err)
	}

	delay := PublishDelay(post.ScheduledAt, s.now())
	jobID, err := s.q.EnqueuePost(ctx, queue.PublishPostPayload{ScheduledPostID: post.ID}, delay)
	if err != nil {
		slog.Error("Error scheduling post", "scheduled_post_id", post.ID, "unqueued", true, "error", err)
		return nil, fmt.Errorf("error scheduling post: %w", err)
	}

	if err := s.pr.MarkQueued(ctx, post.ID, jobID); err != nil {
		// The job is in the queue and the worker accepts pending posts.
		slog.Warn("unable to mark post queued", "scheduled_post_id", post.ID, "job_id", jobID, "error", err)
	}

	return &transfer.ScheduleResult{ScheduledPostID: post.ID, JobID: jobID, Delay: delay}, nil
}

func validateScheduleRequest(req *transfer.ScheduleRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Platforms, validation.Required, validation.Each(validation.By(knownPlatform))),
		validation.Field(&req.Text, validation.Required),
		validation.Field(&req.ScheduledAt, validation.Required),
		validation.Field(&req.PerPlatform, validation.By(overridesTargeted(req.Platforms))),
	)
	return models.AsValidationError(err)
}

func knownPlatform(value any) error {
	p, _ := value.(models.Platform)
	if !p.Valid() {
		return fmt.Errorf("unknown platform %q", p)
	}
	return nil
}

func overridesTargeted(platforms []models.Platform) validation.RuleFunc {
	return func(value any) error {
		overrides, _ := value.(map[models.Platform]models.PlatformExtra)
		for p := range overrides {
			if !lo.Contains(platforms, p) {
				return fmt.Errorf("override for %q which is not a target platform", p)
			}
		}
		return nil
	}
}

func (s *scheduleService) List(ctx context.Context, ownerID string, status models.PostStatus, limit int) ([]*models.ScheduledPost, error) {
	if ownerID == "" {
		return nil, &models.ValidationError{Errs: validation.Errors{"owner_id": validation.ErrRequired}}
	}
	if status != "" && !lo.Contains(postStatuses, status) {
		return nil, &models.ValidationError{Errs: validation.Errors{"status": fmt.Errorf("unknown status %q", status)}}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	posts, err := s.pr.ListByOwner(ctx, ownerID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing scheduled posts: %w", err)
	}
	return posts, nil
}

var postStatuses = []models.PostStatus{
	models.PostStatusPending,
	models.PostStatusQueued,
	models.PostStatusPublished,
	models.PostStatusFailed,
	models.PostStatusPartial,
	models.PostStatusCancelled,
}

func (s *scheduleService) Get(ctx context.Context, ownerID, postID string) (*models.ScheduledPost, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting scheduled post: %w", err)
	}
	if post == nil || post.OwnerID != ownerID {
		return nil, models.ErrPostNotFound
	}
	return post, nil
}

// Cancel stops a post that has not been executed. Cancelling twice is a no-op.
func (s *scheduleService) Cancel(ctx context.Context, postID string) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("error getting scheduled post: %w", err)
	}
	if post == nil {
		return models.ErrPostNotFound
	}
	if post.Status == models.PostStatusCancelled {
		return nil
	}
	if err := cancelConflict(post.Status); err != nil {
		return err
	}

	ok, err := s.pr.Cancel(ctx, postID)
	if err != nil {
		return fmt.Errorf("error cancelling scheduled post: %w", err)
	}
	if !ok {
		// Lost a race with the worker; report the status it left behind.
		current, err := s.pr.GetByID(ctx, postID)
		if err != nil {
			return fmt.Errorf("error getting scheduled post: %w", err)
		}
		if current == nil {
			return models.ErrPostNotFound
		}
		if current.Status == models.PostStatusCancelled {
			return nil
		}
		return cancelConflict(current.Status)
	}

	// The job id is deterministic, so remove even when MarkQueued never ran.
	jobID := post.JobID
	if jobID == "" {
		jobID = queue.TaskID(postID)
	}
	if err := s.q.RemovePost(ctx, jobID); err != nil {
		slog.Warn("unable to remove queued job", "scheduled_post_id", postID, "job_id", jobID, "error", err)
	}
	slog.Info("scheduled post cancelled", "scheduled_post_id", postID)
	return nil
}

func cancelConflict(status models.PostStatus) error {
	if status == models.PostStatusPublished {
		return models.ErrAlreadyPublished
	}
	if !status.CanTransition(models.PostStatusCancelled) {
		return &models.TransitionError{From: status, To: models.PostStatusCancelled}
	}
	return nil
}

func (s *scheduleService) Events(ctx context.Context, ownerID string, start, end time.Time) ([]models.CalendarEvent, error) {
	if end.Before(start) {
		return nil, &models.ValidationError{Errs: validation.Errors{"end": errors.New("must not be before start")}}
	}

	posts, err := s.pr.ListByRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("error listing calendar events: %w", err)
	}

	return lo.Map(posts, func(p *models.ScheduledPost, _ int) models.CalendarEvent {
		return models.CalendarEvent{
			ID:           p.ID,
			TitleExcerpt: lo.Ellipsis(p.Payload.Text, titleExcerptLen),
			Start:        p.ScheduledAt,
			Platforms:    p.Platforms,
			Status:       p.Status,
			ColorHint:    models.ColorHint(p.Status),
		}
	}), nil
}

func (s *scheduleService) Logs(ctx context.Context, ownerID, postID string) ([]*models.PublishLog, error) {
	if _, err := s.Get(ctx, ownerID, postID); err != nil {
		return nil, err
	}
	entries, err := s.pl.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting publish log: %w", err)
	}
	return entries, nil
}

// RequeueUnqueued enqueues pending posts whose original enqueue failed.
// Posts younger than olderThan are left alone, their Schedule call may still
// be in flight.
func (s *scheduleService) RequeueUnqueued(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.now()
	posts, err := s.pr.ListUnqueued(ctx, now.Add(-olderThan), requeueBatch)
	if err != nil {
		return 0, fmt.Errorf("error listing unqueued posts: %w", err)
	}

	requeued := 0
	var errs []error
	for _, post := range posts {
		jobID, err := s.q.EnqueuePost(ctx, queue.PublishPostPayload{ScheduledPostID: post.ID}, PublishDelay(post.ScheduledAt, now))
		if err != nil {
			slog.Error("Error requeueing post", "scheduled_post_id", post.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if err := s.pr.MarkQueued(ctx, post.ID, jobID); err != nil {
			slog.Warn("unable to mark post queued", "scheduled_post_id", post.ID, "job_id", jobID, "error", err)
		}
		requeued++
	}

	if requeued > 0 {
		slog.Info("requeued unqueued posts", "count", requeued)
	}
	return requeued, errors.Join(errs...)
}
