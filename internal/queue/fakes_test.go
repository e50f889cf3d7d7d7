package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type fakePostRepo struct {
	mu         sync.Mutex
	posts      map[string]*models.ScheduledPost
	completeFn func(id string) error
	updates    int
}

func newFakePostRepo(posts ...*models.ScheduledPost) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[string]*models.ScheduledPost)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) Create(_ context.Context, post *models.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = post
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) ListByOwner(context.Context, string, models.PostStatus, int) ([]*models.ScheduledPost, error) {
	return nil, errors.New("not used")
}

func (r *fakePostRepo) ListByRange(context.Context, string, time.Time, time.Time) ([]*models.ScheduledPost, error) {
	return nil, errors.New("not used")
}

func (r *fakePostRepo) ListUnqueued(context.Context, time.Time, int) ([]*models.ScheduledPost, error) {
	return nil, errors.New("not used")
}

func (r *fakePostRepo) MarkQueued(_ context.Context, id, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok && p.Status == models.PostStatusPending {
		p.Status = models.PostStatusQueued
		p.JobID = jobID
	}
	return nil
}

func (r *fakePostRepo) Cancel(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || !p.Status.CanTransition(models.PostStatusCancelled) {
		return false, nil
	}
	p.Status = models.PostStatusCancelled
	return true, nil
}

func (r *fakePostRepo) CompleteExecution(_ context.Context, id string, status models.PostStatus, results []models.PlatformResult) (models.PostStatus, error) {
	if r.completeFn != nil {
		if err := r.completeFn(id); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return "", models.ErrPostNotFound
	}
	r.updates++
	if p.Status == models.PostStatusPending || p.Status == models.PostStatusQueued {
		p.Status = status
	}
	p.Results = results
	return p.Status, nil
}

func (r *fakePostRepo) get(id string) *models.ScheduledPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id]
}

type fakeLogRepo struct {
	mu       sync.Mutex
	entries  []*models.PublishLog
	createFn func(entry *models.PublishLog) error
}

func (r *fakeLogRepo) Create(_ context.Context, entry *models.PublishLog) (int64, error) {
	if r.createFn != nil {
		if err := r.createFn(entry); err != nil {
			return 0, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return entry.ID, nil
}

func (r *fakeLogRepo) ListByPostID(_ context.Context, postID string) ([]*models.PublishLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PublishLog
	for _, e := range r.entries {
		if e.ScheduledPostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) forJob(jobID string) []*models.PublishLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PublishLog
	for _, e := range r.entries {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}
