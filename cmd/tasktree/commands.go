package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/tasktree/internal/adapters/server"
	"github.com/evanschultz/tasktree/internal/adapters/server/common"
	"github.com/evanschultz/tasktree/internal/config"
	"github.com/evanschultz/tasktree/internal/domain"
	"github.com/evanschultz/tasktree/internal/tui"
)

func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime("serve", true, func(env *runtimeEnv) error {
				cfg := serveradapter.Config{
					HTTPBind:      env.cfg.Server.HTTPBind,
					APIEndpoint:   env.cfg.Server.APIEndpoint,
					MCPEndpoint:   env.cfg.Server.MCPEndpoint,
					ServerName:    "tasktree",
					ServerVersion: version,
				}
				if cmd.Flags().Changed("http") {
					cfg.HTTPBind = httpBind
				}
				if cmd.Flags().Changed("api-endpoint") {
					cfg.APIEndpoint = apiEndpoint
				}
				if cmd.Flags().Changed("mcp-endpoint") {
					cfg.MCPEndpoint = mcpEndpoint
				}
				return serveCommandRunner(cmd.Context(), cfg, serveradapter.Dependencies{
					Tasks:  common.NewAppServiceAdapter(env.svc),
					Logger: env.logger.Sink(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (overrides server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint")
	return cmd
}

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and reorder tasks in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd.Context(), opts, parentID)
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "open the subtasks of this task")
	return cmd
}

// runBrowse starts the terminal browser.
func runBrowse(_ context.Context, opts *rootOptions, parentID string) error {
	return opts.withRuntime("browse", false, func(env *runtimeEnv) error {
		m := tui.NewModel(
			env.svc,
			tui.WithPageSize(env.cfg.UI.PageSize),
			tui.WithMarkdownStyle(env.cfg.UI.MarkdownStyle),
			tui.WithKeyConfig(toTUIKeyConfig(env.cfg.UI.Keys)),
			tui.WithStartParent(parentID),
		)
		env.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

func toTUIKeyConfig(cfg config.KeyConfig) tui.KeyConfig {
	return tui.KeyConfig{
		MoveTaskUp:    cfg.MoveTaskUp,
		MoveTaskDown:  cfg.MoveTaskDown,
		MoveTaskFirst: cfg.MoveTaskFirst,
		MoveTaskLast:  cfg.MoveTaskLast,
		Rebalance:     cfg.Rebalance,
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		req      common.ListTasksRequest
		asJSON   bool
		showSort bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of a sibling group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showSort {
				for _, key := range domain.SortKeys() {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			}
			return opts.withRuntime("list", !asJSON, func(env *runtimeEnv) error {
				tasks := common.NewAppServiceAdapter(env.svc)
				var (
					page common.TaskPage
					err  error
				)
				if strings.TrimSpace(req.ParentID) == "" {
					page, err = tasks.ListTasks(cmd.Context(), req)
				} else {
					page, err = tasks.ListSubTasks(cmd.Context(), req)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), page)
				}
				writeTaskTable(cmd.OutOrStdout(), page)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.ParentID, "parent", "", "list the subtasks of this task")
	cmd.Flags().StringVar(&req.SortOrder, "sort", "position", "sort order (see --sort-orders)")
	cmd.Flags().IntVar(&req.PageNumber, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 0, "page size (0 uses ordering.default_page_size)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the page as JSON")
	cmd.Flags().BoolVar(&showSort, "sort-orders", false, "print the accepted sort orders and exit")
	return cmd
}

// writeTaskTable renders one page as a bordered table followed by a page summary.
func writeTaskTable(w io.Writer, page common.TaskPage) {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("239"))).
		Headers("#", "ID", "SUMMARY", "STATUS", "PRI", "DUE", "SUBTASKS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	offset := (max(page.PageNumber, 1) - 1) * page.PageSize
	for i, task := range page.Items {
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.UTC().Format("2006-01-02")
		}
		t.Row(
			strconv.Itoa(offset+i+1),
			task.ID,
			task.Summary,
			task.Status,
			strconv.Itoa(task.Priority),
			due,
			strconv.Itoa(task.SubTaskCount),
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
	_, _ = fmt.Fprintf(w, "page %d/%d • %d tasks\n", max(page.PageNumber, 1), max(page.PageCount, 1), page.TotalCount)
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var eventLimit int
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task with its recent changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime("show", true, func(env *runtimeEnv) error {
				tasks := common.NewAppServiceAdapter(env.svc)
				task, err := tasks.GetTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "id: %s\n", task.ID)
				if task.ParentID != "" {
					_, _ = fmt.Fprintf(out, "parent: %s\n", task.ParentID)
				}
				_, _ = fmt.Fprintf(out, "summary: %s\n", task.Summary)
				_, _ = fmt.Fprintf(out, "position: %d\n", task.Position)
				_, _ = fmt.Fprintf(out, "status: %s\n", task.Status)
				_, _ = fmt.Fprintf(out, "priority: %d\n", task.Priority)
				if task.DueDate != nil {
					_, _ = fmt.Fprintf(out, "due: %s\n", task.DueDate.UTC().Format(time.RFC3339))
				}
				_, _ = fmt.Fprintf(out, "subtasks: %d\n", task.SubTaskCount)
				if desc := strings.TrimSpace(task.Description); desc != "" {
					rendered, err := glamour.Render(desc, env.cfg.UI.MarkdownStyle)
					if err != nil {
						rendered = desc
					}
					_, _ = fmt.Fprintf(out, "\n%s\n", strings.TrimRight(rendered, "\n"))
				}
				if eventLimit <= 0 {
					return nil
				}
				events, err := tasks.ListTaskEvents(cmd.Context(), task.ID, eventLimit)
				if err != nil {
					return err
				}
				if len(events) > 0 {
					_, _ = fmt.Fprintln(out, "\nrecent changes:")
					writeEvents(out, events)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&eventLimit, "events", 5, "number of recent change events to include")
	return cmd
}

// taskFlags binds the payload flags shared by add and update.
type taskFlags struct {
	parentID    string
	description string
	due         string
	priority    int
	status      string
}

func (f *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.parentID, "parent", "", "parent task id")
	cmd.Flags().StringVar(&f.description, "description", "", "markdown description")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (RFC3339 or YYYY-MM-DD; empty clears on update)")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "priority 0-5")
	cmd.Flags().StringVar(&f.status, "status", "", "status: todo, reserved, in_progress, done")
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var flags taskFlags
	cmd := &cobra.Command{
		Use:   "add <summary>",
		Short: "Append a task to the end of its sibling group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := parseDueDate(flags.due)
			if err != nil {
				return err
			}
			return opts.withRuntime("add", true, func(env *runtimeEnv) error {
				task, err := common.NewAppServiceAdapter(env.svc).CreateTask(cmd.Context(), common.CreateTaskRequest{
					ParentID:    flags.parentID,
					Summary:     args[0],
					Description: flags.description,
					DueDate:     due,
					Priority:    flags.priority,
					Status:      flags.status,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s at position %d\n", task.ID, task.Position)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var (
		flags   taskFlags
		summary string
	)
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change fields of a task; unset flags keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := parseDueDate(flags.due)
			if err != nil {
				return err
			}
			return opts.withRuntime("update", true, func(env *runtimeEnv) error {
				tasks := common.NewAppServiceAdapter(env.svc)
				current, err := tasks.GetTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				req := common.UpdateTaskRequest{
					TaskID:      current.ID,
					ParentID:    current.ParentID,
					Summary:     current.Summary,
					Description: current.Description,
					DueDate:     current.DueDate,
					Priority:    current.Priority,
					Status:      current.Status,
				}
				changed := cmd.Flags().Changed
				if changed("summary") {
					req.Summary = summary
				}
				if changed("parent") {
					req.ParentID = flags.parentID
				}
				if changed("description") {
					req.Description = flags.description
				}
				if changed("due") {
					req.DueDate = due
				}
				if changed("priority") {
					req.Priority = flags.priority
				}
				if changed("status") {
					req.Status = flags.status
				}
				task, err := tasks.UpdateTask(cmd.Context(), req)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", task.ID)
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&summary, "summary", "", "new summary")
	return cmd
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <index>",
		Short: "Move a task to a zero-based index within its sibling group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be an integer: %w", err)
			}
			return opts.withRuntime("move", true, func(env *runtimeEnv) error {
				tasks := common.NewAppServiceAdapter(env.svc)
				if err := tasks.MoveTask(cmd.Context(), common.MoveTaskRequest{TaskID: args[0], Index: index}); err != nil {
					return err
				}
				task, err := tasks.GetTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "moved %s to index %d (position %d)\n", task.ID, index, task.Position)
				return nil
			})
		},
	}
}

func newReparentCmd(opts *rootOptions) *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "reparent <task-id>",
		Short: "Move a task under another parent, appending it there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime("reparent", true, func(env *runtimeEnv) error {
				task, err := env.svc.ReparentTask(cmd.Context(), args[0], parentID)
				if err != nil {
					return err
				}
				where := "top level"
				if task.ParentID != "" {
					where = task.ParentID
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reparented %s under %s (position %d)\n", task.ID, where, task.Position)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "new parent task id (empty selects the top level)")
	return cmd
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime("rm", true, func(env *runtimeEnv) error {
				if err := common.NewAppServiceAdapter(env.svc).DeleteTask(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newRebalanceCmd(opts *rootOptions) *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Renumber a sibling group with even spacing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime("rebalance", true, func(env *runtimeEnv) error {
				req := common.RebalanceGroupRequest{ParentID: parentID}
				if err := common.NewAppServiceAdapter(env.svc).RebalanceGroup(cmd.Context(), req); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "rebalanced")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task id (empty selects the top level)")
	return cmd
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		taskID   string
		parentID string
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent change events for a task or a sibling group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if taskID != "" && cmd.Flags().Changed("parent") {
				return fmt.Errorf("--task and --parent are mutually exclusive")
			}
			return opts.withRuntime("events", !asJSON, func(env *runtimeEnv) error {
				tasks := common.NewAppServiceAdapter(env.svc)
				var (
					events []common.ChangeEvent
					err    error
				)
				if taskID != "" {
					events, err = tasks.ListTaskEvents(cmd.Context(), taskID, limit)
				} else {
					events, err = tasks.ListGroupEvents(cmd.Context(), parentID, limit)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), events)
				}
				writeEvents(cmd.OutOrStdout(), events)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent of the sibling group (empty selects the top level)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	return cmd
}

// writeEvents prints events newest first, one per line.
func writeEvents(w io.Writer, events []common.ChangeEvent) {
	for _, event := range events {
		subject := event.TaskID
		if subject == "" {
			subject = "group"
		}
		line := fmt.Sprintf("%s  %-9s %s", event.OccurredAt.UTC().Format(time.RFC3339), event.Operation, subject)
		for _, k := range slices.Sorted(maps.Keys(event.Metadata)) {
			line += fmt.Sprintf(" %s=%s", k, event.Metadata[k])
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// parseDueDate accepts RFC3339 timestamps or plain dates; blank means no due date.
func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q: want RFC3339 or YYYY-MM-DD", raw)
}
