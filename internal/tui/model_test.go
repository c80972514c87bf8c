package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/evanschultz/tasktree/internal/adapters/storage/sqlite"
	"github.com/evanschultz/tasktree/internal/app"
	"github.com/evanschultz/tasktree/internal/domain"
)

type moveCall struct {
	taskID string
	index  int
}

// fakeService keeps sibling groups as ordered slices keyed by parent id.
type fakeService struct {
	groups     map[string][]domain.Task
	moves      []moveCall
	rebalanced []string
	err        error
	moveErr    error
}

func newFakeService(tasks ...domain.Task) *fakeService {
	f := &fakeService{groups: map[string][]domain.Task{}}
	for _, task := range tasks {
		f.groups[task.ParentID] = append(f.groups[task.ParentID], task)
	}
	for parent := range f.groups {
		f.refreshCounts(parent)
	}
	return f
}

func (f *fakeService) refreshCounts(parent string) {
	group := f.groups[parent]
	for i := range group {
		group[i].SubTaskCount = len(f.groups[group[i].ID])
	}
}

func (f *fakeService) list(parent string, in app.ListQuery) app.Page {
	items := slices.Clone(f.groups[parent])
	sortKey := domain.ParseSortKey(string(in.Sort))
	switch sortKey.Field() {
	case "summary":
		slices.SortStableFunc(items, func(a, b domain.Task) int { return strings.Compare(a.Summary, b.Summary) })
	}
	if sortKey.Descending() {
		slices.Reverse(items)
	}
	size := in.PageSize
	if size <= 0 {
		size = app.DefaultPageSize
	}
	number := max(in.PageNumber, 1)
	total := len(items)
	pageCount := (total + size - 1) / size
	start := min((number-1)*size, total)
	end := min(start+size, total)
	return app.Page{
		Items:       items[start:end],
		PageNumber:  number,
		PageSize:    size,
		PageCount:   pageCount,
		TotalCount:  total,
		HasPrevious: number > 1,
		HasNext:     number < pageCount,
	}
}

func (f *fakeService) ListTasks(_ context.Context, in app.ListQuery) (app.Page, error) {
	if f.err != nil {
		return app.Page{}, f.err
	}
	return f.list(in.Group.Group().ParentID(), in), nil
}

func (f *fakeService) ListSubTasks(ctx context.Context, parentID string, in app.ListQuery) (app.Page, error) {
	if _, err := f.GetTask(ctx, parentID); err != nil {
		return app.Page{}, err
	}
	return f.list(parentID, in), nil
}

func (f *fakeService) GetTask(_ context.Context, taskID string) (domain.Task, error) {
	if f.err != nil {
		return domain.Task{}, f.err
	}
	for _, group := range f.groups {
		for _, task := range group {
			if task.ID == taskID {
				return task, nil
			}
		}
	}
	return domain.Task{}, app.ErrNotFound
}

func (f *fakeService) MoveTask(ctx context.Context, taskID string, index int) error {
	f.moves = append(f.moves, moveCall{taskID: taskID, index: index})
	if f.moveErr != nil {
		return f.moveErr
	}
	task, err := f.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	group := f.groups[task.ParentID]
	from := slices.IndexFunc(group, func(t domain.Task) bool { return t.ID == taskID })
	group = slices.Delete(group, from, from+1)
	group = slices.Insert(group, min(index, len(group)), task)
	f.groups[task.ParentID] = group
	return nil
}

func (f *fakeService) RebalanceGroup(_ context.Context, parentID string) error {
	f.rebalanced = append(f.rebalanced, parentID)
	return f.err
}

func (f *fakeService) order(parent string) []string {
	ids := make([]string, 0, len(f.groups[parent]))
	for _, task := range f.groups[parent] {
		ids = append(ids, task.ID)
	}
	return ids
}

func task(id, parent, summary string) domain.Task {
	return domain.Task{ID: id, ParentID: parent, Summary: summary, Status: domain.StatusTodo}
}

func threeTasks() *fakeService {
	return newFakeService(
		task("t1", "", "Alpha"),
		task("t2", "", "Bravo"),
		task("t3", "", "Charlie"),
	)
}

func TestModelLoadsTopLevelGroup(t *testing.T) {
	m := loadReadyModel(t, NewModel(threeTasks()))
	out := m.render()
	for _, want := range []string{"tasktree", "top", "1. Alpha", "2. Bravo", "3. Charlie", "page 1/1 • 3 tasks"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view, got\n%s", want, out)
		}
	}
	if m.View().Content == nil {
		t.Fatal("expected view content")
	}
}

func TestModelEmptyGroup(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService()))
	out := m.render()
	if !strings.Contains(out, "No tasks in this group.") || !strings.Contains(out, "page 1/1 • 0 tasks") {
		t.Fatalf("unexpected empty view\n%s", out)
	}
	m = applyMsg(t, m, keyRune('J'))
	m = applyMsg(t, m, keyRune('G'))
	if m.err != nil {
		t.Fatalf("unexpected error %v", m.err)
	}
}

func TestModelMoveTaskDownKeepsFocus(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('J'))

	if len(svc.moves) != 1 || svc.moves[0] != (moveCall{taskID: "t2", index: 2}) {
		t.Fatalf("unexpected moves %#v", svc.moves)
	}
	if got := svc.order(""); !slices.Equal(got, []string{"t1", "t3", "t2"}) {
		t.Fatalf("unexpected order %v", got)
	}
	selected, ok := m.selectedTask()
	if !ok || selected.ID != "t2" || m.selected != 2 {
		t.Fatalf("expected focus to follow moved task, got %#v at %d", selected, m.selected)
	}
	if !strings.Contains(m.status, `moved "Bravo" to #3`) {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelMoveTaskBoundaries(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('K'))
	if len(svc.moves) != 0 {
		t.Fatalf("expected no move above the first slot, got %#v", svc.moves)
	}

	m = applyMsg(t, m, keyRune('G'))
	if got := svc.order(""); !slices.Equal(got, []string{"t2", "t3", "t1"}) {
		t.Fatalf("unexpected order after move last %v", got)
	}
	m = applyMsg(t, m, keyRune('J'))
	if len(svc.moves) != 1 {
		t.Fatalf("expected no move below the last slot, got %#v", svc.moves)
	}

	m = applyMsg(t, m, keyRune('g'))
	if got := svc.order(""); !slices.Equal(got, []string{"t1", "t2", "t3"}) {
		t.Fatalf("unexpected order after move first %v", got)
	}
	if m.selected != 0 {
		t.Fatalf("expected focus on first row, got %d", m.selected)
	}
}

func TestModelMoveInDescendingPositionOrder(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('s'))
	if m.sortKey != domain.SortPositionDesc {
		t.Fatalf("expected position_desc, got %q", m.sortKey)
	}
	if first, _ := m.selectedTask(); first.ID != "t3" {
		t.Fatalf("expected t3 first in descending view, got %q", first.ID)
	}

	m = applyMsg(t, m, keyRune('J'))
	if len(svc.moves) != 1 || svc.moves[0] != (moveCall{taskID: "t3", index: 1}) {
		t.Fatalf("unexpected moves %#v", svc.moves)
	}
	if got := svc.order(""); !slices.Equal(got, []string{"t1", "t3", "t2"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if selected, _ := m.selectedTask(); selected.ID != "t3" || m.selected != 1 {
		t.Fatalf("expected focus on t3 at row 1, got %q at %d", selected.ID, m.selected)
	}
}

func TestModelRejectsMoveUnderFieldSort(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('s'))
	m = applyMsg(t, m, keyRune('s'))
	if m.sortKey != domain.SortSummary {
		t.Fatalf("expected sort to wrap to summary, got %q", m.sortKey)
	}
	m = applyMsg(t, m, keyRune('J'))
	if len(svc.moves) != 0 {
		t.Fatalf("expected no move under summary sort, got %#v", svc.moves)
	}
	if !strings.Contains(m.status, "position order") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelPagingFollowsCursor(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc, WithPageSize(2)))
	if !strings.Contains(m.render(), "page 1/2 • 3 tasks") {
		t.Fatalf("unexpected first page\n%s", m.render())
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	if m.pageNumber != 2 || m.selected != 0 {
		t.Fatalf("expected cursor on page 2 row 0, got page %d row %d", m.pageNumber, m.selected)
	}
	if !strings.Contains(m.render(), "3. Charlie") {
		t.Fatalf("expected group-wide numbering\n%s", m.render())
	}
	m = applyMsg(t, m, keyRune('k'))
	if m.pageNumber != 1 || m.selected != 1 {
		t.Fatalf("expected cursor back on page 1 row 1, got page %d row %d", m.pageNumber, m.selected)
	}

	m = applyMsg(t, m, keyRune('J'))
	if got := svc.order(""); !slices.Equal(got, []string{"t1", "t3", "t2"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if m.pageNumber != 2 {
		t.Fatalf("expected view to follow task onto page 2, got %d", m.pageNumber)
	}
	if selected, _ := m.selectedTask(); selected.ID != "t2" {
		t.Fatalf("expected t2 selected, got %q", selected.ID)
	}

	m = applyMsg(t, m, keyRune('p'))
	if m.pageNumber != 1 {
		t.Fatalf("expected previous page, got %d", m.pageNumber)
	}
	m = applyMsg(t, m, keyRune('n'))
	if m.pageNumber != 2 {
		t.Fatalf("expected next page, got %d", m.pageNumber)
	}
}

func TestModelDescendAndAscend(t *testing.T) {
	svc := newFakeService(
		task("t1", "", "Alpha"),
		task("t2", "", "Bravo"),
		task("c1", "t2", "Child one"),
		task("c2", "t2", "Child two"),
	)
	m := loadReadyModel(t, NewModel(svc))
	if !strings.Contains(m.render(), "Bravo [todo] (2)") {
		t.Fatalf("expected subtask count on parent row\n%s", m.render())
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	out := m.render()
	if !strings.Contains(out, "top / Bravo") || !strings.Contains(out, "1. Child one") {
		t.Fatalf("expected child group view\n%s", out)
	}

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('K'))
	if got := svc.order("t2"); !slices.Equal(got, []string{"c2", "c1"}) {
		t.Fatalf("unexpected child order %v", got)
	}
	m = applyMsg(t, m, keyRune('R'))
	if !slices.Equal(svc.rebalanced, []string{"t2"}) {
		t.Fatalf("expected child group rebalance, got %v", svc.rebalanced)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	if len(m.trail) != 0 {
		t.Fatalf("expected top level, got trail %v", m.trail)
	}
	if selected, _ := m.selectedTask(); selected.ID != "t2" {
		t.Fatalf("expected focus back on parent, got %q", selected.ID)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	if len(m.trail) != 0 || m.err != nil {
		t.Fatal("expected ascend at top level to be a no-op")
	}
}

func TestModelRebalanceTopLevel(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('R'))
	if !slices.Equal(svc.rebalanced, []string{""}) {
		t.Fatalf("expected top-level rebalance, got %v", svc.rebalanced)
	}
	if m.status != "group rebalanced" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelStartParentResolvesTrail(t *testing.T) {
	svc := newFakeService(
		task("t1", "", "Alpha"),
		task("c1", "t1", "Child"),
		task("g1", "c1", "Grandchild"),
	)
	m := loadReadyModel(t, NewModel(svc, WithStartParent(" c1 ")))
	out := m.render()
	if !strings.Contains(out, "top / Alpha / Child") || !strings.Contains(out, "1. Grandchild") {
		t.Fatalf("unexpected start view\n%s", out)
	}

	missing := loadReadyModel(t, NewModel(svc, WithStartParent("nope")))
	if !errors.Is(missing.err, app.ErrNotFound) {
		t.Fatalf("expected not found, got %v", missing.err)
	}
}

func TestModelErrorsAndRetry(t *testing.T) {
	svc := threeTasks()
	svc.err = errors.New("database locked")
	m := loadReadyModel(t, NewModel(svc))
	if !strings.Contains(m.render(), "error: database locked") {
		t.Fatalf("expected error view\n%s", m.render())
	}
	m = applyMsg(t, m, keyRune('J'))
	if len(svc.moves) != 0 {
		t.Fatal("expected actions to be ignored while in error state")
	}

	svc.err = nil
	m = applyMsg(t, m, keyRune('r'))
	if m.err != nil || len(m.page.Items) != 3 {
		t.Fatalf("expected reload to recover, err=%v items=%d", m.err, len(m.page.Items))
	}

	svc.moveErr = fmt.Errorf("wrap: %w", app.ErrWriteConflict)
	m = applyMsg(t, m, keyRune('J'))
	if !errors.Is(m.err, app.ErrWriteConflict) {
		t.Fatalf("expected write conflict surfaced, got %v", m.err)
	}
}

func TestModelRendersDescriptionMarkdown(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	withDetails := task("t1", "", "Alpha")
	withDetails.Description = "ship the **release** notes"
	withDetails.Priority = 3
	withDetails.DueAt = &due
	m := loadReadyModel(t, NewModel(newFakeService(withDetails)))
	out := m.render()
	for _, want := range []string{"release", "p3", "due 2026-03-01", "priority: 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view\n%s", want, out)
		}
	}
}

func TestModelHelpQuitAndLoading(t *testing.T) {
	m := NewModel(threeTasks())
	if m.render() != "loading..." {
		t.Fatalf("expected loading view, got %q", m.render())
	}
	m = loadReadyModel(t, m)
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll {
		t.Fatal("expected full help")
	}
	if !strings.Contains(m.render(), "rebalance group") {
		t.Fatalf("expected full help in view\n%s", m.render())
	}
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
}

func TestModelKeyConfigOverride(t *testing.T) {
	svc := threeTasks()
	m := loadReadyModel(t, NewModel(svc, WithKeyConfig(KeyConfig{MoveTaskDown: "ctrl+j"})))
	m = applyMsg(t, m, keyRune('J'))
	if len(svc.moves) != 0 {
		t.Fatalf("expected default binding to be replaced, got %#v", svc.moves)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 'j', Mod: tea.ModCtrl})
	if len(svc.moves) != 1 || svc.moves[0].taskID != "t1" {
		t.Fatalf("expected override to move t1, got %#v", svc.moves)
	}
}

func TestModelOverSQLite(t *testing.T) {
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	next := 0
	svc := app.NewService(repo, func() string {
		next++
		return fmt.Sprintf("t%d", next)
	}, nil, app.ServiceConfig{})
	ctx := context.Background()
	for _, summary := range []string{"one", "two", "three"} {
		if _, err := svc.CreateTask(ctx, app.CreateTaskInput{Summary: summary}); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
	}

	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('G'))
	if m.err != nil {
		t.Fatalf("unexpected error %v", m.err)
	}
	page, err := svc.ListTasks(ctx, app.ListQuery{Group: domain.TopLevel()})
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	got := []string{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID}
	if !slices.Equal(got, []string{"t2", "t3", "t1"}) {
		t.Fatalf("unexpected stored order %v", got)
	}
	if selected, _ := m.selectedTask(); selected.ID != "t1" || m.selected != 2 {
		t.Fatalf("expected focus on moved task, got %q at %d", selected.ID, m.selected)
	}
}

func TestFitLinesAndClamp(t *testing.T) {
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("fitLines truncate = %q", got)
	}
	if got := fitLines("a", 3); got != "a\n\n" {
		t.Fatalf("fitLines pad = %q", got)
	}
	if got := fitLines("a", 0); got != "" {
		t.Fatalf("fitLines zero = %q", got)
	}
	if clamp(5, 0, 2) != 2 || clamp(-1, 0, 2) != 0 || clamp(3, 0, -1) != 0 {
		t.Fatal("unexpected clamp results")
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
