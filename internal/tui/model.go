// Package tui provides a terminal browser for ordered task groups.
package tui

import (
	"context"
	"fmt"
	"image/color"
	"slices"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/tasktree/internal/app"
	"github.com/evanschultz/tasktree/internal/domain"
)

// Service represents the task operations the browser depends on.
type Service interface {
	ListTasks(context.Context, app.ListQuery) (app.Page, error)
	ListSubTasks(context.Context, string, app.ListQuery) (app.Page, error)
	GetTask(context.Context, string) (domain.Task, error)
	MoveTask(context.Context, string, int) error
	RebalanceGroup(context.Context, string) error
}

// loadedMsg carries one loaded page of the current group.
type loadedMsg struct {
	page app.Page
	err  error
}

// trailMsg carries the resolved ancestor chain of the start group.
type trailMsg struct {
	trail []domain.Task
	err   error
}

// actionMsg reports the outcome of one mutating action.
type actionMsg struct {
	err         error
	status      string
	reload      bool
	focusTaskID string
	pageNumber  int
}

// Model represents the browser state.
type Model struct {
	svc      Service
	keys     keyMap
	help     help.Model
	markdown *markdownRenderer

	ready  bool
	width  int
	height int
	err    error
	status string

	trail      []domain.Task
	page       app.Page
	pageNumber int
	pageSize   int
	sortKey    domain.SortKey
	selected   int

	startParentID      string
	pendingFocusTaskID string
}

// maxTrailDepth bounds ancestor resolution for the start group.
const maxTrailDepth = 64

// NewModel constructs a browser over svc rooted at the top-level group.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:        svc,
		keys:       newKeyMap(),
		help:       h,
		markdown:   &markdownRenderer{},
		status:     "loading...",
		pageNumber: 1,
		sortKey:    domain.SortPosition,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init returns the initial load command.
func (m Model) Init() tea.Cmd {
	if m.startParentID != "" {
		return m.resolveTrail
	}
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case trailMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.startParentID = ""
		m.trail = msg.trail
		m.resetGroup()
		return m, m.loadData

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.page = msg.page
		m.pageNumber = max(msg.page.PageNumber, 1)
		if msg.page.PageCount > 0 && m.pageNumber > msg.page.PageCount {
			// The group shrank under us; clamp to the last page.
			m.pageNumber = msg.page.PageCount
			return m, m.loadData
		}
		m.selected = clamp(m.selected, 0, len(m.page.Items)-1)
		if id := m.pendingFocusTaskID; id != "" {
			if idx := slices.IndexFunc(m.page.Items, func(t domain.Task) bool { return t.ID == id }); idx >= 0 {
				m.selected = idx
			}
			m.pendingFocusTaskID = ""
		}
		if m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		if msg.pageNumber > 0 {
			m.pageNumber = msg.pageNumber
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey dispatches one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.err = nil
		m.status = "reloading..."
		return m, m.Init()
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.err != nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		} else if m.page.HasPrevious {
			m.pageNumber--
			m.selected = m.page.PageSize - 1
			return m, m.loadData
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.page.Items)-1 {
			m.selected++
		} else if m.page.HasNext {
			m.pageNumber++
			m.selected = 0
			return m, m.loadData
		}
		return m, nil
	case key.Matches(msg, m.keys.nextPage):
		if !m.page.HasNext {
			return m, nil
		}
		m.pageNumber++
		m.selected = 0
		return m, m.loadData
	case key.Matches(msg, m.keys.prevPage):
		if !m.page.HasPrevious {
			return m, nil
		}
		m.pageNumber--
		m.selected = 0
		return m, m.loadData
	case key.Matches(msg, m.keys.descend):
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.trail = append(slices.Clone(m.trail), task)
		m.resetGroup()
		m.status = "opened " + task.Summary
		return m, m.loadData
	case key.Matches(msg, m.keys.ascend):
		if len(m.trail) == 0 {
			return m, nil
		}
		left := m.trail[len(m.trail)-1]
		m.trail = m.trail[:len(m.trail)-1]
		m.resetGroup()
		m.pendingFocusTaskID = left.ID
		m.status = "ready"
		return m, m.loadData
	case key.Matches(msg, m.keys.cycleSort):
		m.sortKey = nextSortKey(m.sortKey)
		m.pageNumber = 1
		m.selected = 0
		m.status = "sort: " + string(m.sortKey)
		return m, m.loadData
	case key.Matches(msg, m.keys.moveTaskUp):
		return m.moveSelectedBy(-1)
	case key.Matches(msg, m.keys.moveTaskDown):
		return m.moveSelectedBy(1)
	case key.Matches(msg, m.keys.moveTaskFirst):
		return m.moveSelectedTo(0)
	case key.Matches(msg, m.keys.moveTaskLast):
		return m.moveSelectedTo(m.page.TotalCount - 1)
	case key.Matches(msg, m.keys.rebalance):
		return m, m.rebalanceCmd()
	}
	return m, nil
}

// resetGroup clears per-group paging state.
func (m *Model) resetGroup() {
	m.pageNumber = 1
	m.selected = 0
	m.page = app.Page{}
}

// selectedTask returns the highlighted task.
func (m Model) selectedTask() (domain.Task, bool) {
	if m.selected < 0 || m.selected >= len(m.page.Items) {
		return domain.Task{}, false
	}
	return m.page.Items[m.selected], true
}

// selectedIndex returns the group-wide index of the highlighted task.
func (m Model) selectedIndex() int {
	return (max(m.page.PageNumber, 1)-1)*max(m.page.PageSize, 1) + m.selected
}

// currentParentID returns the parent of the group being browsed.
func (m Model) currentParentID() string {
	if len(m.trail) == 0 {
		return ""
	}
	return m.trail[len(m.trail)-1].ID
}

// moveSelectedBy shifts the highlighted task by delta positions.
func (m Model) moveSelectedBy(delta int) (tea.Model, tea.Cmd) {
	return m.moveSelectedTo(m.selectedIndex() + delta)
}

// moveSelectedTo moves the highlighted task to a group-wide index.
func (m Model) moveSelectedTo(target int) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		return m, nil
	}
	if !m.sortKey.IsPosition() {
		m.status = "switch to position order to reorder"
		return m, nil
	}
	if target < 0 || target >= m.page.TotalCount || target == m.selectedIndex() {
		return m, nil
	}
	index := target
	if m.sortKey.Descending() {
		index = m.page.TotalCount - 1 - target
	}
	pageSize := max(m.page.PageSize, 1)
	svc := m.svc
	return m, func() tea.Msg {
		if err := svc.MoveTask(context.Background(), task.ID, index); err != nil {
			return actionMsg{err: fmt.Errorf("move task %q: %w", task.Summary, err)}
		}
		return actionMsg{
			status:      fmt.Sprintf("moved %q to #%d", task.Summary, target+1),
			reload:      true,
			focusTaskID: task.ID,
			pageNumber:  target/pageSize + 1,
		}
	}
}

// rebalanceCmd renumbers the current group.
func (m Model) rebalanceCmd() tea.Cmd {
	parentID := m.currentParentID()
	focus := ""
	if task, ok := m.selectedTask(); ok {
		focus = task.ID
	}
	svc := m.svc
	return func() tea.Msg {
		if err := svc.RebalanceGroup(context.Background(), parentID); err != nil {
			return actionMsg{err: fmt.Errorf("rebalance group: %w", err)}
		}
		return actionMsg{status: "group rebalanced", reload: true, focusTaskID: focus}
	}
}

// loadData loads the current page of the current group.
func (m Model) loadData() tea.Msg {
	if m.svc == nil {
		return loadedMsg{err: fmt.Errorf("task service is not configured")}
	}
	query := app.ListQuery{
		Sort:       m.sortKey,
		PageNumber: m.pageNumber,
		PageSize:   m.pageSize,
	}
	ctx := context.Background()
	parentID := m.currentParentID()
	if parentID == "" {
		query.Group = domain.TopLevel()
		page, err := m.svc.ListTasks(ctx, query)
		return loadedMsg{page: page, err: err}
	}
	page, err := m.svc.ListSubTasks(ctx, parentID, query)
	return loadedMsg{page: page, err: err}
}

// resolveTrail walks from the start group up to the top level.
func (m Model) resolveTrail() tea.Msg {
	if m.svc == nil {
		return trailMsg{err: fmt.Errorf("task service is not configured")}
	}
	var trail []domain.Task
	for id := m.startParentID; id != "" && len(trail) < maxTrailDepth; {
		task, err := m.svc.GetTask(context.Background(), id)
		if err != nil {
			return trailMsg{err: fmt.Errorf("open group %s: %w", m.startParentID, err)}
		}
		trail = append(trail, task)
		id = task.ParentID
	}
	slices.Reverse(trail)
	return trailMsg{trail: trail}
}

// nextSortKey cycles through the supported orderings.
func nextSortKey(current domain.SortKey) domain.SortKey {
	keys := domain.SortKeys()
	idx := slices.Index(keys, current)
	return keys[(idx+1)%len(keys)]
}

// View renders the browser.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render renders the browser as plain terminal text.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	sections := []string{
		titleStyle.Render("tasktree") + mutedStyle.Render("  "+m.breadcrumb()),
		mutedStyle.Render("sort: " + string(m.sortKey)),
		"",
	}
	if len(m.page.Items) == 0 {
		sections = append(sections, mutedStyle.Render("No tasks in this group."))
	}
	offset := m.selectedIndex() - m.selected
	for idx, task := range m.page.Items {
		line := fmt.Sprintf("%3d. %s", offset+idx+1, taskLine(task))
		if idx == m.selected {
			sections = append(sections, selectedStyle.Render("› "+line))
			continue
		}
		sections = append(sections, "  "+line)
	}

	if task, ok := m.selectedTask(); ok {
		sections = append(sections, "", m.renderDetails(task, accent))
	}

	sections = append(sections, "", statusStyle.Render(m.pageSummary()))
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

// renderDetails renders the detail panel for task.
func (m Model) renderDetails(task domain.Task, accent color.Color) string {
	lines := []string{
		fmt.Sprintf("id: %s", task.ID),
		fmt.Sprintf("position: %d", task.Position),
		fmt.Sprintf("status: %s • priority: %d", task.Status, task.Priority),
	}
	if task.DueAt != nil {
		lines = append(lines, "due: "+task.DueAt.UTC().Format("2006-01-02"))
	}
	if task.SubTaskCount > 0 {
		lines = append(lines, fmt.Sprintf("subtasks: %d", task.SubTaskCount))
	}
	width := max(24, m.width-6)
	if desc := m.markdown.render(task.Description, width); desc != "" {
		lines = append(lines, "", desc)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// breadcrumb renders the path from the top level to the current group.
func (m Model) breadcrumb() string {
	parts := []string{"top"}
	for _, task := range m.trail {
		parts = append(parts, task.Summary)
	}
	return strings.Join(parts, " / ")
}

// pageSummary renders page and count information.
func (m Model) pageSummary() string {
	pageCount := max(m.page.PageCount, 1)
	noun := "tasks"
	if m.page.TotalCount == 1 {
		noun = "task"
	}
	return fmt.Sprintf("page %d/%d • %d %s", max(m.page.PageNumber, 1), pageCount, m.page.TotalCount, noun)
}

// taskLine renders one list row.
func taskLine(task domain.Task) string {
	parts := []string{task.Summary, "[" + string(task.Status) + "]"}
	if task.Priority > 0 {
		parts = append(parts, fmt.Sprintf("p%d", task.Priority))
	}
	if task.DueAt != nil {
		parts = append(parts, "due "+task.DueAt.UTC().Format("2006-01-02"))
	}
	if task.SubTaskCount > 0 {
		parts = append(parts, fmt.Sprintf("(%d)", task.SubTaskCount))
	}
	return strings.Join(parts, " ")
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines truncates or pads content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}
