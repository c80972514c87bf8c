package app

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanschultz/tasktree/internal/domain"
)

func newTestService(repo *fakeRepo, cfg ServiceConfig) *Service {
	seq := 0
	idGen := func() string {
		seq++
		return fmt.Sprintf("t%d", seq)
	}
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	return NewService(repo, idGen, func() time.Time { return now }, cfg)
}

func createTasks(t *testing.T, svc *Service, parentID string, summaries ...string) []domain.Task {
	t.Helper()
	out := make([]domain.Task, 0, len(summaries))
	for _, summary := range summaries {
		task, err := svc.CreateTask(context.Background(), CreateTaskInput{ParentID: parentID, Summary: summary})
		require.NoError(t, err)
		out = append(out, task)
	}
	return out
}

func groupOrder(t *testing.T, repo *fakeRepo, group domain.GroupKey) []string {
	t.Helper()
	ids := make([]string, 0)
	var last uint64
	for i, task := range repo.group(group) {
		if i > 0 {
			require.Greater(t, task.Position, last, "positions must be strictly increasing")
		}
		last = task.Position
		ids = append(ids, task.ID)
	}
	return ids
}

func TestCreateTaskAllocatesSteps(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})

	tasks := createTasks(t, svc, "", "A", "B", "C")

	assert.Equal(t, PositionStep, tasks[0].Position)
	assert.Equal(t, 2*PositionStep, tasks[1].Position)
	assert.Equal(t, 3*PositionStep, tasks[2].Position)
	assert.Equal(t, domain.StatusTodo, tasks[0].Status)
	assert.Equal(t, int64(1), tasks[0].Version)
}

func TestCreateTaskRejectsMissingParent(t *testing.T) {
	svc := newTestService(newFakeRepo(), ServiceConfig{})

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{ParentID: "missing", Summary: "child"})
	require.ErrorIs(t, err, ErrInvalidForeignKey)
	assert.Contains(t, err.Error(), "parent task not found")
}

func TestCreateTaskValidatesPayload(t *testing.T) {
	svc := newTestService(newFakeRepo(), ServiceConfig{})

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{Summary: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidSummary)

	_, err = svc.CreateTask(context.Background(), CreateTaskInput{Summary: "x", Priority: 9})
	require.ErrorIs(t, err, domain.ErrInvalidPriority)
}

func TestCreateTaskFailsWhenGroupIsFull(t *testing.T) {
	repo := newFakeRepo()
	repo.put(domain.Task{ID: "top", Position: math.MaxUint64 - PositionStep, Summary: "top"})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{Summary: "overflow"})
	require.ErrorIs(t, err, ErrTooManyTasks)
	assert.Len(t, repo.tasks, 1)
}

func TestCreateTaskRetriesWriteConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.conflicts = 2
	svc := newTestService(repo, ServiceConfig{})

	task, err := svc.CreateTask(context.Background(), CreateTaskInput{Summary: "A"})
	require.NoError(t, err)
	assert.Equal(t, PositionStep, task.Position)
}

func TestMoveTaskToFront(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B", "C")

	require.NoError(t, svc.MoveTask(context.Background(), tasks[1].ID, 0))

	moved, err := repo.GetTask(context.Background(), tasks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, tasks[0].Position/2, moved.Position)
	assert.Equal(t, []string{tasks[1].ID, tasks[0].ID, tasks[2].ID}, groupOrder(t, repo, domain.TopLevelGroup))
}

func TestMoveTaskOrders(t *testing.T) {
	cases := []struct {
		name  string
		move  int
		index int
		want  []int
	}{
		{name: "later into gap", move: 0, index: 1, want: []int{1, 0, 2}},
		{name: "earlier into gap", move: 2, index: 1, want: []int{0, 2, 1}},
		{name: "to last", move: 0, index: 2, want: []int{1, 2, 0}},
		{name: "past end appends", move: 0, index: 10, want: []int{1, 2, 0}},
		{name: "last past end is noop", move: 2, index: 10, want: []int{0, 1, 2}},
		{name: "same index is noop", move: 1, index: 1, want: []int{0, 1, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := newTestService(repo, ServiceConfig{})
			tasks := createTasks(t, svc, "", "A", "B", "C")

			require.NoError(t, svc.MoveTask(context.Background(), tasks[tc.move].ID, tc.index))

			want := make([]string, 0, len(tc.want))
			for _, idx := range tc.want {
				want = append(want, tasks[idx].ID)
			}
			assert.Equal(t, want, groupOrder(t, repo, domain.TopLevelGroup))
			assert.Zero(t, repo.rebalances)
		})
	}
}

func TestMoveTaskPastEndUsesStep(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B", "C")

	require.NoError(t, svc.MoveTask(context.Background(), tasks[0].ID, 2))

	moved, err := repo.GetTask(context.Background(), tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4*PositionStep, moved.Position)
}

func TestMoveTaskNoopDoesNotWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B")

	require.NoError(t, svc.MoveTask(context.Background(), tasks[0].ID, 0))
	assert.Zero(t, repo.positionUpdates)
}

func TestAlternatingMovesTriggerRebalance(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B")

	var last string
	for i := 0; i < 200 && repo.rebalances == 0; i++ {
		order := groupOrder(t, repo, domain.TopLevelGroup)
		last = order[1]
		require.NoError(t, svc.MoveTask(context.Background(), last, 0))
	}
	require.Equal(t, 1, repo.rebalances)

	order := groupOrder(t, repo, domain.TopLevelGroup)
	require.Len(t, order, 2)
	assert.Equal(t, last, order[0])
	first, err := repo.GetTask(context.Background(), order[0])
	require.NoError(t, err)
	second, err := repo.GetTask(context.Background(), order[1])
	require.NoError(t, err)
	assert.Equal(t, PositionStep/2, first.Position)
	assert.Equal(t, PositionStep, second.Position)
	assert.ElementsMatch(t, []string{tasks[0].ID, tasks[1].ID}, order)
}

func TestMoveTaskExhaustsRebalanceAttempts(t *testing.T) {
	repo := newFakeRepo()
	repo.noopRebalance = true
	repo.put(domain.Task{ID: "a", Position: 1, Summary: "a"})
	repo.put(domain.Task{ID: "b", Position: PositionStep, Summary: "b"})
	svc := newTestService(repo, ServiceConfig{})

	err := svc.MoveTask(context.Background(), "b", 0)
	require.ErrorIs(t, err, ErrPositionExhausted)
	assert.Equal(t, maxRebalanceAttempts, repo.rebalances)
}

func TestMoveTaskErrors(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A")

	require.ErrorIs(t, svc.MoveTask(context.Background(), "missing", 0), ErrNotFound)
	require.ErrorIs(t, svc.MoveTask(context.Background(), tasks[0].ID, -1), ErrInvalidIndex)
	require.ErrorIs(t, svc.MoveTask(context.Background(), " ", 0), domain.ErrInvalidID)
}

func TestMoveTaskPastCeilingFails(t *testing.T) {
	repo := newFakeRepo()
	repo.put(domain.Task{ID: "a", Position: PositionStep, Summary: "a"})
	repo.put(domain.Task{ID: "b", Position: math.MaxUint64 - 10, Summary: "b"})
	svc := newTestService(repo, ServiceConfig{})

	require.ErrorIs(t, svc.MoveTask(context.Background(), "a", 1), ErrTooManyTasks)
}

func TestMoveTaskWriteConflictRetries(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B")

	repo.conflicts = DefaultWriteConflictRetries
	require.NoError(t, svc.MoveTask(context.Background(), tasks[1].ID, 0))
	assert.Equal(t, []string{tasks[1].ID, tasks[0].ID}, groupOrder(t, repo, domain.TopLevelGroup))

	repo.conflicts = DefaultWriteConflictRetries + 1
	require.ErrorIs(t, svc.MoveTask(context.Background(), tasks[1].ID, 1), ErrWriteConflict)
	assert.Zero(t, repo.conflicts)
}

func TestMoveTaskWithRetriesDisabled(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{WriteConflictRetries: -1})
	tasks := createTasks(t, svc, "", "A", "B")

	repo.conflicts = 1
	require.ErrorIs(t, svc.MoveTask(context.Background(), tasks[1].ID, 0), ErrWriteConflict)
}

func TestListTasksPagination(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	for i := 0; i < 23; i++ {
		createTasks(t, svc, "", fmt.Sprintf("task %02d", i))
	}

	first, err := svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel()})
	require.NoError(t, err)
	assert.Len(t, first.Items, DefaultPageSize)
	assert.Equal(t, 23, first.TotalCount)
	assert.Equal(t, 3, first.PageCount)
	assert.False(t, first.HasPrevious)
	assert.True(t, first.HasNext)

	last, err := svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel(), PageNumber: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, last.Items, 3)
	assert.True(t, last.HasPrevious)
	assert.False(t, last.HasNext)

	beyond, err := svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel(), PageNumber: 9, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 23, beyond.TotalCount)
	assert.Equal(t, 3, beyond.PageCount)
}

func TestListTasksClampsPaging(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{MaxPageSize: 5})
	for i := 0; i < 7; i++ {
		createTasks(t, svc, "", fmt.Sprintf("task %d", i))
	}

	page, err := svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel(), PageNumber: -4, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, 5, page.PageSize)
	assert.Equal(t, 2, page.PageCount)

	page, err = svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel(), PageNumber: math.MaxInt, PageSize: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, page.PageSize)
	assert.Empty(t, page.Items)
}

func TestListTasksSortTieBreaksOnPosition(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "same", "same", "alpha")

	page, err := svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel(), Sort: domain.SortSummary})
	require.NoError(t, err)
	ids := []string{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID}
	assert.Equal(t, []string{tasks[2].ID, tasks[0].ID, tasks[1].ID}, ids)

	page, err = svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel(), Sort: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, tasks[0].ID, page.Items[0].ID)
}

func TestSubTaskRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	parent := createTasks(t, svc, "", "parent")[0]

	before, err := svc.GetTask(context.Background(), parent.ID)
	require.NoError(t, err)
	child := createTasks(t, svc, parent.ID, "child")[0]
	after, err := svc.GetTask(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, before.SubTaskCount+1, after.SubTaskCount)

	page, err := svc.ListSubTasks(context.Background(), parent.ID, ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, child.ID, page.Items[0].ID)
	assert.Equal(t, PositionStep, page.Items[0].Position)

	top, err := svc.ListTasks(context.Background(), ListQuery{Group: domain.TopLevel()})
	require.NoError(t, err)
	require.Len(t, top.Items, 1)
	assert.Equal(t, 1, top.Items[0].SubTaskCount)

	_, err = svc.ListSubTasks(context.Background(), "missing", ListQuery{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReparentIntegrity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B")
	child := createTasks(t, svc, tasks[0].ID, "A1")[0]
	ctx := context.Background()

	err := svc.ValidateReparent(ctx, tasks[1].ID, "missing")
	require.ErrorIs(t, err, ErrInvalidForeignKey)
	assert.Contains(t, err.Error(), "parent task not found")

	err = svc.ValidateReparent(ctx, tasks[0].ID, child.ID)
	require.ErrorIs(t, err, ErrInvalidForeignKey)
	assert.Contains(t, err.Error(), "circular relationship")

	err = svc.ValidateReparent(ctx, tasks[0].ID, tasks[0].ID)
	require.ErrorIs(t, err, ErrInvalidForeignKey)

	require.NoError(t, svc.ValidateReparent(ctx, child.ID, ""))
	require.NoError(t, svc.ValidateReparent(ctx, child.ID, tasks[0].ID))

	moved, err := svc.ReparentTask(ctx, tasks[1].ID, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tasks[0].ID, moved.ParentID)
	assert.Equal(t, 2*PositionStep, moved.Position)
	assert.Equal(t, []string{child.ID, tasks[1].ID}, groupOrder(t, repo, domain.GroupKey(tasks[0].ID)))
}

func TestUpdateTaskReplacesPayloadAndParent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	tasks := createTasks(t, svc, "", "A", "B")
	due := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	updated, err := svc.UpdateTask(context.Background(), UpdateTaskInput{
		TaskID:      tasks[1].ID,
		ParentID:    tasks[0].ID,
		Summary:     " renamed ",
		Description: "details",
		DueAt:       &due,
		Priority:    3,
		Status:      domain.StatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Summary)
	assert.Equal(t, tasks[0].ID, updated.ParentID)
	assert.Equal(t, PositionStep, updated.Position)
	assert.Equal(t, int64(2), updated.Version)

	stored, err := repo.GetTask(context.Background(), tasks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Version, stored.Version)
	assert.Equal(t, domain.StatusInProgress, stored.Status)

	_, err = svc.UpdateTask(context.Background(), UpdateTaskInput{TaskID: "missing", Summary: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateTask(context.Background(), UpdateTaskInput{TaskID: tasks[0].ID, ParentID: tasks[1].ID, Summary: "A"})
	require.ErrorIs(t, err, ErrInvalidForeignKey)
}

func TestDeleteTaskOrphansChildren(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	parent := createTasks(t, svc, "", "parent")[0]
	child := createTasks(t, svc, parent.ID, "child")[0]

	require.NoError(t, svc.DeleteTask(context.Background(), parent.ID))
	require.ErrorIs(t, svc.DeleteTask(context.Background(), parent.ID), ErrNotFound)

	orphan, err := repo.GetTask(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, orphan.ParentID)
}

func TestRebalanceGroup(t *testing.T) {
	repo := newFakeRepo()
	repo.put(domain.Task{ID: "a", Position: 7, Summary: "a"})
	repo.put(domain.Task{ID: "b", Position: 8, Summary: "b"})
	repo.put(domain.Task{ID: "c", Position: 100, Summary: "c"})
	repo.put(domain.Task{ID: "x", ParentID: "a", Position: 3, Summary: "x"})
	svc := newTestService(repo, ServiceConfig{})

	require.NoError(t, svc.RebalanceGroup(context.Background(), ""))

	assert.Equal(t, []string{"a", "b", "c"}, groupOrder(t, repo, domain.TopLevelGroup))
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, uint64(i+1)*PositionStep, repo.tasks[id].Position)
	}
	assert.Equal(t, uint64(3), repo.tasks["x"].Position)
}

func TestNextPosition(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})

	position, err := svc.NextPosition(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, PositionStep, position)

	createTasks(t, svc, "", "A")
	position, err = svc.NextPosition(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2*PositionStep, position)
}
