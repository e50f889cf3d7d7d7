package job

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"
)

const prunePageSize = 100

type taskInspector interface {
	ListCompletedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// QueuePruneJob keeps only the newest completed and failed publish jobs.
// Failed means archived: the job ran out of retries.
type QueuePruneJob struct {
	in            taskInspector
	queue         string
	keepCompleted int
	keepFailed    int
}

func NewQueuePruneJob(in taskInspector, queue string, keepCompleted, keepFailed int) *QueuePruneJob {
	return &QueuePruneJob{
		in:            in,
		queue:         queue,
		keepCompleted: keepCompleted,
		keepFailed:    keepFailed,
	}
}

func (j *QueuePruneJob) PruneTasks() {
	completed, err := j.listAll(j.in.ListCompletedTasks)
	if err != nil {
		slog.Info("Unable to list completed tasks", "error", err)
	} else {
		j.delete(pruneCandidates(completed, j.keepCompleted, func(t *asynq.TaskInfo) time.Time { return t.CompletedAt }))
	}

	archived, err := j.listAll(j.in.ListArchivedTasks)
	if err != nil {
		slog.Info("Unable to list archived tasks", "error", err)
		return
	}
	j.delete(pruneCandidates(archived, j.keepFailed, func(t *asynq.TaskInfo) time.Time { return t.LastFailedAt }))
}

func (j *QueuePruneJob) listAll(list func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error)) ([]*asynq.TaskInfo, error) {
	var all []*asynq.TaskInfo
	for page := 1; ; page++ {
		tasks, err := list(j.queue, asynq.PageSize(prunePageSize), asynq.Page(page))
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				return all, nil
			}
			return nil, err
		}
		all = append(all, tasks...)
		if len(tasks) < prunePageSize {
			return all, nil
		}
	}
}

func (j *QueuePruneJob) delete(tasks []*asynq.TaskInfo) {
	for _, t := range tasks {
		if err := j.in.DeleteTask(j.queue, t.ID); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			slog.Info("Unable to delete task", "job_id", t.ID, "error", err)
		}
	}
	if len(tasks) > 0 {
		slog.Info("pruned job records", "queue", j.queue, "count", len(tasks))
	}
}

// pruneCandidates returns every task older than the newest keep tasks.
func pruneCandidates(tasks []*asynq.TaskInfo, keep int, at func(*asynq.TaskInfo) time.Time) []*asynq.TaskInfo {
	if len(tasks) <= keep {
		return nil
	}
	sorted := append([]*asynq.TaskInfo(nil), tasks...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return at(sorted[a]).After(at(sorted[b]))
	})
	return sorted[keep:]
}
