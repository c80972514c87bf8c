package domain

import (
	"strings"
	"time"
)

// Priority bounds accepted for task priority values.
const (
	MinPriority = 0
	MaxPriority = 5
)

// Task represents one orderable task row.
type Task struct {
	ID           string
	ParentID     string
	Position     uint64
	Version      int64
	Summary      string
	Description  string
	DueAt        *time.Time
	Priority     int
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SubTaskCount int
}

// TaskInput holds input values for constructing a task.
type TaskInput struct {
	ID          string
	ParentID    string
	Position    uint64
	Summary     string
	Description string
	DueAt       *time.Time
	Priority    int
	Status      Status
}

// NewTask constructs a validated task.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ParentID = strings.TrimSpace(in.ParentID)
	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.ParentID == in.ID {
		return Task{}, ErrInvalidParentID
	}

	task := Task{
		ID:        in.ID,
		ParentID:  in.ParentID,
		Position:  in.Position,
		Version:   1,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := task.UpdateDetails(in.Summary, in.Description, in.DueAt, in.Priority, in.Status, now); err != nil {
		return Task{}, err
	}
	task.UpdatedAt = task.CreatedAt
	return task, nil
}

// Group returns the sibling group the task belongs to.
func (t Task) Group() GroupKey {
	return GroupKey(t.ParentID)
}

// IsTopLevel reports whether the task has no parent.
func (t Task) IsTopLevel() bool {
	return t.ParentID == ""
}

// UpdateDetails replaces the payload fields.
func (t *Task) UpdateDetails(summary, description string, dueAt *time.Time, priority int, status Status, now time.Time) error {
	summary = strings.TrimSpace(summary)
	description = strings.TrimSpace(description)
	if summary == "" {
		return ErrInvalidSummary
	}
	if priority < MinPriority || priority > MaxPriority {
		return ErrInvalidPriority
	}
	status, err := NormalizeStatus(status)
	if err != nil {
		return err
	}
	t.Summary = summary
	t.Description = description
	t.DueAt = normalizeDueAt(dueAt)
	t.Priority = priority
	t.Status = status
	t.UpdatedAt = now.UTC()
	return nil
}

// Reparent moves the task into another sibling group at the given position.
func (t *Task) Reparent(parentID string, position uint64, now time.Time) error {
	parentID = strings.TrimSpace(parentID)
	if parentID == t.ID {
		return ErrInvalidParentID
	}
	t.ParentID = parentID
	t.Position = position
	t.UpdatedAt = now.UTC()
	return nil
}

// SetPosition sets the position within the current group.
func (t *Task) SetPosition(position uint64, now time.Time) {
	t.Position = position
	t.UpdatedAt = now.UTC()
}

func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}
