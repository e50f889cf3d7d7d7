package job

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	completed []*asynq.TaskInfo
	archived  []*asynq.TaskInfo
	deleted   []string
	missing   bool
}

func (f *fakeInspector) ListCompletedTasks(_ string, _ ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	if f.missing {
		return nil, asynq.ErrQueueNotFound
	}
	return f.completed, nil
}

func (f *fakeInspector) ListArchivedTasks(_ string, _ ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	if f.missing {
		return nil, asynq.ErrQueueNotFound
	}
	return f.archived, nil
}

func (f *fakeInspector) DeleteTask(_, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func tasks(prefix string, n int, completed bool) []*asynq.TaskInfo {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*asynq.TaskInfo, 0, n)
	for i := 0; i < n; i++ {
		t := &asynq.TaskInfo{ID: prefix + string(rune('a'+i))}
		if completed {
			t.CompletedAt = base.Add(time.Duration(i) * time.Minute)
		} else {
			t.LastFailedAt = base.Add(time.Duration(i) * time.Minute)
		}
		out = append(out, t)
	}
	return out
}

func TestPruneCandidatesKeepsNewest(t *testing.T) {
	all := tasks("c", 5, true)
	got := pruneCandidates(all, 2, func(t *asynq.TaskInfo) time.Time { return t.CompletedAt })

	ids := make([]string, 0, len(got))
	for _, t := range got {
		ids = append(ids, t.ID)
	}
	assert.ElementsMatch(t, []string{"ca", "cb", "cc"}, ids)
	assert.Equal(t, "ca", all[0].ID, "input order must not change")
}

func TestPruneCandidatesUnderLimit(t *testing.T) {
	assert.Empty(t, pruneCandidates(tasks("c", 3, true), 20, func(t *asynq.TaskInfo) time.Time { return t.CompletedAt }))
}

func TestPruneTasks(t *testing.T) {
	in := &fakeInspector{
		completed: tasks("c", 4, true),
		archived:  tasks("f", 3, false),
	}
	NewQueuePruneJob(in, "publish", 2, 1).PruneTasks()

	require.Len(t, in.deleted, 4)
	assert.ElementsMatch(t, []string{"ca", "cb", "fa", "fb"}, in.deleted)
}

func TestPruneTasksQueueNotCreatedYet(t *testing.T) {
	in := &fakeInspector{missing: true}
	NewQueuePruneJob(in, "publish", 20, 20).PruneTasks()
	assert.Empty(t, in.deleted)
}
