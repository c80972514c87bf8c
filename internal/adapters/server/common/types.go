// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed or semantically invalid input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports writes that kept losing concurrent races.
var ErrConflict = errors.New("write conflict")

// ErrTooManyTasks reports a sibling group with no numeric room left at its end.
var ErrTooManyTasks = errors.New("too many tasks")

// ErrPositionExhausted reports a move that found no gap even after rebalancing.
var ErrPositionExhausted = errors.New("position exhausted")

// Task is the transport representation of one task.
//
// Position is encoded as a decimal string because it spans the full uint64 range.
type Task struct {
	ID           string     `json:"id"`
	ParentID     string     `json:"parentId,omitempty"`
	Position     uint64     `json:"position,string"`
	Summary      string     `json:"summary"`
	Description  string     `json:"description,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Priority     int        `json:"priority"`
	Status       string     `json:"status"`
	SubTaskCount int        `json:"subTaskCount"`
	CreatedAt    time.Time  `json:"createDate"`
	UpdatedAt    time.Time  `json:"updateDate"`
}

// TaskPage is one page of an ordered sibling group.
type TaskPage struct {
	Items       []Task
	PageNumber  int
	PageSize    int
	PageCount   int
	TotalCount  int
	HasPrevious bool
	HasNext     bool
}

// ListTasksRequest selects one page of a sibling group.
type ListTasksRequest struct {
	ParentID   string
	SortOrder  string
	PageNumber int
	PageSize   int
}

// CreateTaskRequest holds the fields accepted when creating a task.
type CreateTaskRequest struct {
	ParentID    string     `json:"parentId,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// UpdateTaskRequest replaces the payload and parent of one task.
type UpdateTaskRequest struct {
	TaskID      string     `json:"-"`
	ParentID    string     `json:"parentId,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// MoveTaskRequest relocates one task to a zero-based sibling index.
type MoveTaskRequest struct {
	TaskID string `json:"-"`
	Index  int    `json:"index"`
}

// RebalanceGroupRequest names the sibling group to renumber; empty means top level.
type RebalanceGroupRequest struct {
	ParentID string `json:"parentId"`
}

// ChangeEvent is the transport representation of one ledger entry.
type ChangeEvent struct {
	ID         int64             `json:"id"`
	TaskID     string            `json:"taskId,omitempty"`
	ParentID   string            `json:"parentId,omitempty"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// TaskService is the task surface shared by the HTTP and MCP transports.
type TaskService interface {
	ListTasks(context.Context, ListTasksRequest) (TaskPage, error)
	ListSubTasks(context.Context, ListTasksRequest) (TaskPage, error)
	GetTask(context.Context, string) (Task, error)
	CreateTask(context.Context, CreateTaskRequest) (Task, error)
	UpdateTask(context.Context, UpdateTaskRequest) (Task, error)
	DeleteTask(context.Context, string) error
	MoveTask(context.Context, MoveTaskRequest) error
	RebalanceGroup(context.Context, RebalanceGroupRequest) error
	ListTaskEvents(ctx context.Context, taskID string, limit int) ([]ChangeEvent, error)
	ListGroupEvents(ctx context.Context, parentID string, limit int) ([]ChangeEvent, error)
}
