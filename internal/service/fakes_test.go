package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/queue"
)

type fakePostRepo struct {
	posts     map[string]*models.ScheduledPost
	created   int
	createErr error
	// cancelHook runs before Cancel applies, to simulate a racing worker.
	cancelHook func(p *models.ScheduledPost)
}

func newFakePostRepo(posts ...*models.ScheduledPost) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[string]*models.ScheduledPost)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) Create(_ context.Context, post *models.ScheduledPost) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created++
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*models.ScheduledPost, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) ListByOwner(_ context.Context, ownerID string, status models.PostStatus, limit int) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.OwnerID == ownerID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) ListByRange(_ context.Context, ownerID string, start, end time.Time) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.OwnerID == ownerID && !p.ScheduledAt.Before(start) && !p.ScheduledAt.After(end) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *fakePostRepo) ListUnqueued(_ context.Context, createdBefore time.Time, limit int) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.Status == models.PostStatusPending && p.JobID == "" && p.CreatedAt.Before(createdBefore) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) MarkQueued(_ context.Context, id, jobID string) error {
	if p, ok := r.posts[id]; ok && p.Status == models.PostStatusPending {
		p.Status = models.PostStatusQueued
		p.JobID = jobID
	}
	return nil
}

func (r *fakePostRepo) Cancel(_ context.Context, id string) (bool, error) {
	p, ok := r.posts[id]
	if !ok {
		return false, nil
	}
	if r.cancelHook != nil {
		r.cancelHook(p)
	}
	if !p.Status.CanTransition(models.PostStatusCancelled) {
		return false, nil
	}
	p.Status = models.PostStatusCancelled
	return true, nil
}

func (r *fakePostRepo) CompleteExecution(context.Context, string, models.PostStatus, []models.PlatformResult) (models.PostStatus, error) {
	return "", errors.New("not used")
}

type fakeLogRepo struct {
	entries []*models.PublishLog
}

func (r *fakeLogRepo) Create(_ context.Context, entry *models.PublishLog) (int64, error) {
	r.entries = append(r.entries, entry)
	return int64(len(r.entries)), nil
}

func (r *fakeLogRepo) ListByPostID(_ context.Context, postID string) ([]*models.PublishLog, error) {
	var out []*models.PublishLog
	for _, e := range r.entries {
		if e.ScheduledPostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

type enqueued struct {
	payload queue.PublishPostPayload
	delay   time.Duration
}

type fakeEnqueuer struct {
	jobs       []enqueued
	removed    []string
	enqueueErr error
	removeErr  error
	// failFor makes enqueueing the listed posts fail.
	failFor map[string]bool
}

func (q *fakeEnqueuer) EnqueuePost(_ context.Context, payload queue.PublishPostPayload, delay time.Duration) (string, error) {
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	if q.failFor[payload.ScheduledPostID] {
		return "", errors.New("redis down")
	}
	q.jobs = append(q.jobs, enqueued{payload: payload, delay: delay})
	return queue.TaskID(payload.ScheduledPostID), nil
}

func (q *fakeEnqueuer) RemovePost(_ context.Context, jobID string) error {
	q.removed = append(q.removed, jobID)
	return q.removeErr
}
