package app

import (
	"context"

	"github.com/evanschultz/tasktree/internal/domain"
)

// TaskQuery describes one ordered range scan over a sibling group.
type TaskQuery struct {
	Group  domain.GroupKey
	Sort   domain.SortKey
	Offset int
	Limit  int
}

// GroupEventsQuery selects change events recorded for one sibling group.
type GroupEventsQuery struct {
	Group domain.GroupKey
	Limit int
}

// Repository is the persistence contract of the ordering engine.
//
// Writes that collide on (parent_id, position) or on a stale Version must
// fail with ErrWriteConflict. Lookups of missing rows fail with ErrNotFound.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	DeleteTask(context.Context, string) error

	MaxPosition(context.Context, domain.GroupKey) (uint64, error)
	SiblingAt(context.Context, domain.GroupKey, int) (domain.Task, error)
	ListTasks(context.Context, TaskQuery) ([]domain.Task, int, error)
	CountChildren(context.Context, []string) (map[string]int, error)
	UpdatePosition(ctx context.Context, id string, position uint64, version int64) error
	Rebalance(ctx context.Context, group domain.GroupKey, step uint64) (int, error)

	ListTaskChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error)
	ListGroupChangeEvents(context.Context, GroupEventsQuery) ([]domain.ChangeEvent, error)
}

// positionReader reads group extents.
type positionReader interface {
	MaxPosition(context.Context, domain.GroupKey) (uint64, error)
}

// taskGetter loads single tasks.
type taskGetter interface {
	GetTask(context.Context, string) (domain.Task, error)
}

// positionWriter persists single-task position changes.
type positionWriter interface {
	UpdatePosition(ctx context.Context, id string, position uint64, version int64) error
}

// groupRebalancer renumbers a whole group atomically.
type groupRebalancer interface {
	Rebalance(ctx context.Context, group domain.GroupKey, step uint64) (int, error)
}
