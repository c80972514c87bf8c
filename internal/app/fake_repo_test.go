package app

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/evanschultz/tasktree/internal/domain"
)

// fakeRepo is an in-memory Repository that enforces the same uniqueness and
// version rules as the sqlite adapter.
type fakeRepo struct {
	tasks map[string]domain.Task

	rebalances      int
	noopRebalance   bool
	positionUpdates int
	// conflicts makes the next n position or task writes fail with ErrWriteConflict.
	conflicts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: map[string]domain.Task{}}
}

func (f *fakeRepo) put(task domain.Task) {
	if task.Version == 0 {
		task.Version = 1
	}
	f.tasks[task.ID] = task
}

func (f *fakeRepo) takeConflict() bool {
	if f.conflicts > 0 {
		f.conflicts--
		return true
	}
	return false
}

func (f *fakeRepo) positionTaken(group domain.GroupKey, position uint64, exceptID string) bool {
	for _, task := range f.tasks {
		if task.ID != exceptID && task.Group() == group && task.Position == position {
			return true
		}
	}
	return false
}

func (f *fakeRepo) group(group domain.GroupKey) []domain.Task {
	out := make([]domain.Task, 0)
	for _, task := range f.tasks {
		if task.Group() == group {
			out = append(out, task)
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

func (f *fakeRepo) CreateTask(_ context.Context, t domain.Task) error {
	if f.takeConflict() {
		return ErrWriteConflict
	}
	if _, ok := f.tasks[t.ID]; ok || f.positionTaken(t.Group(), t.Position, t.ID) {
		return ErrWriteConflict
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) UpdateTask(_ context.Context, t domain.Task) error {
	if f.takeConflict() {
		return ErrWriteConflict
	}
	current, ok := f.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != t.Version || f.positionTaken(t.Group(), t.Position, t.ID) {
		return ErrWriteConflict
	}
	t.Version++
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) GetTask(_ context.Context, id string) (domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) DeleteTask(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeRepo) MaxPosition(_ context.Context, group domain.GroupKey) (uint64, error) {
	tasks := f.group(group)
	if len(tasks) == 0 {
		return 0, nil
	}
	return tasks[len(tasks)-1].Position, nil
}

func (f *fakeRepo) SiblingAt(_ context.Context, group domain.GroupKey, index int) (domain.Task, error) {
	tasks := f.group(group)
	if index < 0 || index >= len(tasks) {
		return domain.Task{}, ErrNotFound
	}
	return tasks[index], nil
}

func (f *fakeRepo) ListTasks(_ context.Context, q TaskQuery) ([]domain.Task, int, error) {
	tasks := f.group(q.Group)
	if !q.Sort.IsPosition() || q.Sort.Descending() {
		slices.SortStableFunc(tasks, func(a, b domain.Task) int {
			var c int
			switch q.Sort.Field() {
			case "summary":
				c = strings.Compare(a.Summary, b.Summary)
			case "priority":
				c = cmp.Compare(a.Priority, b.Priority)
			case "status":
				c = cmp.Compare(a.Status.Rank(), b.Status.Rank())
			default:
				c = cmp.Compare(a.Position, b.Position)
			}
			if q.Sort.Descending() {
				c = -c
			}
			if c == 0 {
				c = cmp.Compare(a.Position, b.Position)
			}
			return c
		})
	}
	total := len(tasks)
	if q.Offset >= total {
		return []domain.Task{}, total, nil
	}
	end := min(total, q.Offset+q.Limit)
	return tasks[q.Offset:end], total, nil
}

func (f *fakeRepo) CountChildren(_ context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	for _, task := range f.tasks {
		if task.ParentID != "" && slices.Contains(ids, task.ParentID) {
			out[task.ParentID]++
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdatePosition(_ context.Context, id string, position uint64, version int64) error {
	if f.takeConflict() {
		return ErrWriteConflict
	}
	current, ok := f.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if current.Version != version || f.positionTaken(current.Group(), position, id) {
		return ErrWriteConflict
	}
	current.Position = position
	current.Version++
	f.tasks[id] = current
	f.positionUpdates++
	return nil
}

func (f *fakeRepo) Rebalance(_ context.Context, group domain.GroupKey, step uint64) (int, error) {
	f.rebalances++
	tasks := f.group(group)
	if f.noopRebalance {
		return len(tasks), nil
	}
	for i, task := range tasks {
		task.Position = uint64(i+1) * step
		task.Version++
		f.tasks[task.ID] = task
	}
	return len(tasks), nil
}

func (f *fakeRepo) ListTaskChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error) {
	return nil, nil
}

func (f *fakeRepo) ListGroupChangeEvents(context.Context, GroupEventsQuery) ([]domain.ChangeEvent, error) {
	return nil, nil
}
