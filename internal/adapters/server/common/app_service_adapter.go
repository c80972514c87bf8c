package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/tasktree/internal/app"
	"github.com/evanschultz/tasktree/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service task APIs.
type AppServiceAdapter struct {
	service *app.Service
}

var _ TaskService = (*AppServiceAdapter)(nil)

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListTasks lists one page of the group under in.ParentID.
func (a *AppServiceAdapter) ListTasks(ctx context.Context, in ListTasksRequest) (TaskPage, error) {
	if err := a.ready(); err != nil {
		return TaskPage{}, err
	}
	page, err := a.service.ListTasks(ctx, listQuery(in, domain.ChildrenOf(in.ParentID)))
	if err != nil {
		return TaskPage{}, mapAppError("list tasks", err)
	}
	return mapPage(page), nil
}

// ListSubTasks lists one page of the direct children of an existing parent.
func (a *AppServiceAdapter) ListSubTasks(ctx context.Context, in ListTasksRequest) (TaskPage, error) {
	if err := a.ready(); err != nil {
		return TaskPage{}, err
	}
	page, err := a.service.ListSubTasks(ctx, in.ParentID, listQuery(in, domain.ChildrenOf(in.ParentID)))
	if err != nil {
		return TaskPage{}, mapAppError("list subtasks", err)
	}
	return mapPage(page), nil
}

// GetTask loads one task.
func (a *AppServiceAdapter) GetTask(ctx context.Context, taskID string) (Task, error) {
	if err := a.ready(); err != nil {
		return Task{}, err
	}
	task, err := a.service.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, mapAppError("get task", err)
	}
	return mapTask(task), nil
}

// CreateTask appends a task to its group.
func (a *AppServiceAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (Task, error) {
	if err := a.ready(); err != nil {
		return Task{}, err
	}
	task, err := a.service.CreateTask(ctx, app.CreateTaskInput{
		ParentID:    in.ParentID,
		Summary:     in.Summary,
		Description: in.Description,
		DueAt:       in.DueDate,
		Priority:    in.Priority,
		Status:      domain.Status(in.Status),
	})
	if err != nil {
		return Task{}, mapAppError("create task", err)
	}
	return mapTask(task), nil
}

// UpdateTask replaces the payload and parent of one task.
func (a *AppServiceAdapter) UpdateTask(ctx context.Context, in UpdateTaskRequest) (Task, error) {
	if err := a.ready(); err != nil {
		return Task{}, err
	}
	task, err := a.service.UpdateTask(ctx, app.UpdateTaskInput{
		TaskID:      in.TaskID,
		ParentID:    in.ParentID,
		Summary:     in.Summary,
		Description: in.Description,
		DueAt:       in.DueDate,
		Priority:    in.Priority,
		Status:      domain.Status(in.Status),
	})
	if err != nil {
		return Task{}, mapAppError("update task", err)
	}
	return mapTask(task), nil
}

// DeleteTask removes one task without touching its children.
func (a *AppServiceAdapter) DeleteTask(ctx context.Context, taskID string) error {
	if err := a.ready(); err != nil {
		return err
	}
	return mapAppError("delete task", a.service.DeleteTask(ctx, taskID))
}

// MoveTask relocates one task within its group.
func (a *AppServiceAdapter) MoveTask(ctx context.Context, in MoveTaskRequest) error {
	if err := a.ready(); err != nil {
		return err
	}
	return mapAppError("move task", a.service.MoveTask(ctx, in.TaskID, in.Index))
}

// RebalanceGroup renumbers one group.
func (a *AppServiceAdapter) RebalanceGroup(ctx context.Context, in RebalanceGroupRequest) error {
	if err := a.ready(); err != nil {
		return err
	}
	return mapAppError("rebalance group", a.service.RebalanceGroup(ctx, in.ParentID))
}

// ListTaskEvents lists recent ledger entries for one task.
func (a *AppServiceAdapter) ListTaskEvents(ctx context.Context, taskID string, limit int) ([]ChangeEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	events, err := a.service.ListTaskChangeEvents(ctx, taskID, limit)
	if err != nil {
		return nil, mapAppError("list task events", err)
	}
	return mapEvents(events), nil
}

// ListGroupEvents lists recent ledger entries for one group.
func (a *AppServiceAdapter) ListGroupEvents(ctx context.Context, parentID string, limit int) ([]ChangeEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	events, err := a.service.ListGroupChangeEvents(ctx, parentID, limit)
	if err != nil {
		return nil, mapAppError("list group events", err)
	}
	return mapEvents(events), nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

func listQuery(in ListTasksRequest, filter domain.GroupFilter) app.ListQuery {
	return app.ListQuery{
		Group:      filter,
		Sort:       domain.ParseSortKey(strings.TrimSpace(in.SortOrder)),
		PageNumber: in.PageNumber,
		PageSize:   in.PageSize,
	}
}

func mapPage(page app.Page) TaskPage {
	items := make([]Task, 0, len(page.Items))
	for _, task := range page.Items {
		items = append(items, mapTask(task))
	}
	return TaskPage{
		Items:       items,
		PageNumber:  page.PageNumber,
		PageSize:    page.PageSize,
		PageCount:   page.PageCount,
		TotalCount:  page.TotalCount,
		HasPrevious: page.HasPrevious,
		HasNext:     page.HasNext,
	}
}

func mapTask(task domain.Task) Task {
	return Task{
		ID:           task.ID,
		ParentID:     task.ParentID,
		Position:     task.Position,
		Summary:      task.Summary,
		Description:  task.Description,
		DueDate:      task.DueAt,
		Priority:     task.Priority,
		Status:       string(task.Status),
		SubTaskCount: task.SubTaskCount,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

func mapEvents(events []domain.ChangeEvent) []ChangeEvent {
	out := make([]ChangeEvent, 0, len(events))
	for _, event := range events {
		out = append(out, ChangeEvent{
			ID:         event.ID,
			TaskID:     event.TaskID,
			ParentID:   event.ParentID,
			Operation:  string(event.Operation),
			Metadata:   event.Metadata,
			OccurredAt: event.OccurredAt,
		})
	}
	return out
}

// mapAppError converts app and domain failures into transport-facing sentinel errors.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrWriteConflict):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, app.ErrTooManyTasks):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrTooManyTasks, err))
	case errors.Is(err, app.ErrPositionExhausted):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrPositionExhausted, err))
	case errors.Is(err, app.ErrInvalidForeignKey),
		errors.Is(err, app.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidParentID),
		errors.Is(err, domain.ErrInvalidSummary),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidStatus):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
