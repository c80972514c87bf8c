package mcpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/tasktree/internal/adapters/server/common"
	"github.com/evanschultz/tasktree/internal/domain"
)

// taskPayloadArgs are the payload arguments shared by create and update.
type taskPayloadArgs struct {
	ParentID    string `json:"parent_id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Priority    int    `json:"priority"`
	Status      string `json:"status"`
}

// dueDate parses the optional RFC3339 due date.
func (a taskPayloadArgs) dueDate() (*time.Time, error) {
	raw := strings.TrimSpace(a.DueDate)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("due_date must be RFC3339: %w", err)
	}
	return &ts, nil
}

func statusNames() []string {
	statuses := domain.Statuses()
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func sortNames() []string {
	keys := domain.SortKeys()
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, string(key))
	}
	return out
}

func payloadOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("parent_id", mcp.Description("Parent task id; empty for top level")),
		mcp.WithString("description", mcp.Description("Task description (markdown)")),
		mcp.WithString("due_date", mcp.Description("Optional RFC3339 timestamp")),
		mcp.WithNumber("priority", mcp.Description("Priority 0-5"), mcp.Min(float64(domain.MinPriority)), mcp.Max(float64(domain.MaxPriority))),
		mcp.WithString("status", mcp.Description("Workflow status"), mcp.Enum(statusNames()...)),
	}
}

// registerTaskTools registers per-task CRUD and move tools.
func registerTaskTools(srv *mcpserver.MCPServer, tasks common.TaskService) {
	srv.AddTool(
		mcp.NewTool(
			"tasktree.list_tasks",
			mcp.WithDescription("List one page of a sibling group; omit parent_id for the top level."),
			mcp.WithString("parent_id", mcp.Description("Parent task id")),
			mcp.WithString("sort_order", mcp.Description("Sort key; defaults to position"), mcp.Enum(sortNames()...)),
			mcp.WithNumber("page_number", mcp.Description("1-based page number"), mcp.Min(1)),
			mcp.WithNumber("page_size", mcp.Description("Items per page"), mcp.Min(1)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				ParentID   string `json:"parent_id"`
				SortOrder  string `json:"sort_order"`
				PageNumber int    `json:"page_number"`
				PageSize   int    `json:"page_size"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			in := common.ListTasksRequest{
				ParentID:   strings.TrimSpace(args.ParentID),
				SortOrder:  args.SortOrder,
				PageNumber: args.PageNumber,
				PageSize:   args.PageSize,
			}
			list := tasks.ListTasks
			if in.ParentID != "" {
				list = tasks.ListSubTasks
			}
			page, err := list(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"tasks":       page.Items,
				"page_number": page.PageNumber,
				"page_size":   page.PageSize,
				"page_count":  page.PageCount,
				"total_count": page.TotalCount,
				"has_next":    page.HasNext,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tasktree.get_task",
			mcp.WithDescription("Get one task with its direct subtask count."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := tasks.GetTask(ctx, taskID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode get_task result: %w", err)
			}
			return result, nil
		},
	)

	createOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Create a task appended to the end of its sibling group."),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Task summary")),
	}, payloadOptions()...)
	srv.AddTool(
		mcp.NewTool("tasktree.create_task", createOpts...),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args taskPayloadArgs
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Summary) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "summary" not found`), nil
			}
			due, err := args.dueDate()
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			task, err := tasks.CreateTask(ctx, common.CreateTaskRequest{
				ParentID:    args.ParentID,
				Summary:     args.Summary,
				Description: args.Description,
				DueDate:     due,
				Priority:    args.Priority,
				Status:      args.Status,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	updateOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Replace the payload and parent of one task; a parent change appends it to the new group."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Task summary")),
	}, payloadOptions()...)
	srv.AddTool(
		mcp.NewTool("tasktree.update_task", updateOpts...),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				TaskID string `json:"task_id"`
				taskPayloadArgs
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.TaskID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "task_id" not found`), nil
			}
			due, err := args.dueDate()
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			task, err := tasks.UpdateTask(ctx, common.UpdateTaskRequest{
				TaskID:      args.TaskID,
				ParentID:    args.ParentID,
				Summary:     args.Summary,
				Description: args.Description,
				DueDate:     due,
				Priority:    args.Priority,
				Status:      args.Status,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode update_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tasktree.delete_task",
			mcp.WithDescription("Delete one task. Subtasks are kept and keep their parent reference."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := tasks.DeleteTask(ctx, taskID); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"deleted": taskID})
			if err != nil {
				return nil, fmt.Errorf("encode delete_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tasktree.move_task",
			mcp.WithDescription("Move one task to a zero-based index within its sibling group; indexes past the end append."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithNumber("index", mcp.Required(), mcp.Description("Target zero-based index"), mcp.Min(0)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				TaskID string `json:"task_id"`
				Index  *int   `json:"index"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.TaskID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "task_id" not found`), nil
			}
			if args.Index == nil {
				return mcp.NewToolResultError(`invalid_request: required argument "index" not found`), nil
			}
			if err := tasks.MoveTask(ctx, common.MoveTaskRequest{TaskID: args.TaskID, Index: *args.Index}); err != nil {
				return toolResultFromError(err), nil
			}
			task, err := tasks.GetTask(ctx, args.TaskID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode move_task result: %w", err)
			}
			return result, nil
		},
	)
}

// registerGroupTools registers group maintenance and activity tools.
func registerGroupTools(srv *mcpserver.MCPServer, tasks common.TaskService) {
	srv.AddTool(
		mcp.NewTool(
			"tasktree.rebalance_group",
			mcp.WithDescription("Renumber one sibling group to evenly spaced positions, keeping its order."),
			mcp.WithString("parent_id", mcp.Description("Parent task id; empty for top level")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			parentID := strings.TrimSpace(req.GetString("parent_id", ""))
			if err := tasks.RebalanceGroup(ctx, common.RebalanceGroupRequest{ParentID: parentID}); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"rebalanced": parentID})
			if err != nil {
				return nil, fmt.Errorf("encode rebalance_group result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tasktree.list_change_events",
			mcp.WithDescription("List recent change events for one task, or for one sibling group when task_id is omitted."),
			mcp.WithString("task_id", mcp.Description("Task identifier")),
			mcp.WithString("parent_id", mcp.Description("Group parent id; empty for top level")),
			mcp.WithNumber("limit", mcp.Description("Maximum events to return"), mcp.Min(1)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				TaskID   string `json:"task_id"`
				ParentID string `json:"parent_id"`
				Limit    int    `json:"limit"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			var (
				events []common.ChangeEvent
				err    error
			)
			if taskID := strings.TrimSpace(args.TaskID); taskID != "" {
				events, err = tasks.ListTaskEvents(ctx, taskID, args.Limit)
			} else {
				events, err = tasks.ListGroupEvents(ctx, strings.TrimSpace(args.ParentID), args.Limit)
			}
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"events": events})
			if err != nil {
				return nil, fmt.Errorf("encode list_change_events result: %w", err)
			}
			return result, nil
		},
	)
}
