package app

import (
	"context"
	"io"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tasktree/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	MaxPageSize     int
	DefaultPageSize int
	// WriteConflictRetries bounds transparent retries; zero selects the default, negative disables.
	WriteConflictRetries int
	Logger               *charmLog.Logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service coordinates task persistence with the ordering engine.
type Service struct {
	repo            Repository
	idGen           IDGenerator
	clock           Clock
	logger          *charmLog.Logger
	defaultPageSize int

	allocator  allocator
	query      orderedQuery
	rebalancer rebalancer
	mover      mover
	tree       treeIntegrity
	retry      conflictRetry
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = charmLog.New(io.Discard)
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	cfg.DefaultPageSize = min(cfg.DefaultPageSize, cfg.MaxPageSize)
	switch {
	case cfg.WriteConflictRetries == 0:
		cfg.WriteConflictRetries = DefaultWriteConflictRetries
	case cfg.WriteConflictRetries < 0:
		cfg.WriteConflictRetries = 0
	}

	query := orderedQuery{repo: repo, maxPageSize: cfg.MaxPageSize}
	balancer := rebalancer{repo: repo, logger: cfg.Logger}
	return &Service{
		repo:            repo,
		idGen:           idGen,
		clock:           clock,
		logger:          cfg.Logger,
		defaultPageSize: cfg.DefaultPageSize,
		allocator:       allocator{positions: repo},
		query:           query,
		rebalancer:      balancer,
		mover: mover{
			tasks:      repo,
			query:      query,
			positions:  repo,
			writer:     repo,
			rebalancer: balancer,
		},
		tree:  treeIntegrity{tasks: repo},
		retry: conflictRetry{retries: cfg.WriteConflictRetries, logger: cfg.Logger},
	}
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	ParentID    string
	Summary     string
	Description string
	DueAt       *time.Time
	Priority    int
	Status      domain.Status
}

// CreateTask appends a new task to the end of its sibling group.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	parentID := strings.TrimSpace(in.ParentID)
	if err := s.tree.validateNewParent(ctx, parentID); err != nil {
		return domain.Task{}, err
	}
	id := s.idGen()

	var task domain.Task
	err := s.retry.do(ctx, "create task", func() error {
		position, err := s.allocator.nextPosition(ctx, domain.GroupKey(parentID))
		if err != nil {
			return err
		}
		task, err = domain.NewTask(domain.TaskInput{
			ID:          id,
			ParentID:    parentID,
			Position:    position,
			Summary:     in.Summary,
			Description: in.Description,
			DueAt:       in.DueAt,
			Priority:    in.Priority,
			Status:      in.Status,
		}, s.clock())
		if err != nil {
			return err
		}
		return s.repo.CreateTask(ctx, task)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// GetTask returns one task with its direct child count.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Task{}, domain.ErrInvalidID
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	tasks := []domain.Task{task}
	if err := s.query.attachSubTaskCounts(ctx, tasks); err != nil {
		return domain.Task{}, err
	}
	return tasks[0], nil
}

// UpdateTaskInput holds input values for update task operations.
type UpdateTaskInput struct {
	TaskID      string
	ParentID    string
	Summary     string
	Description string
	DueAt       *time.Time
	Priority    int
	Status      domain.Status
}

// UpdateTask replaces the payload and parent of a task.
//
// A parent change appends the task to the destination group.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	taskID := strings.TrimSpace(in.TaskID)
	if taskID == "" {
		return domain.Task{}, domain.ErrInvalidID
	}
	parentID := strings.TrimSpace(in.ParentID)

	var out domain.Task
	err := s.retry.do(ctx, "update task", func() error {
		task, err := s.repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		now := s.clock()
		if err := task.UpdateDetails(in.Summary, in.Description, in.DueAt, in.Priority, in.Status, now); err != nil {
			return err
		}
		if parentID != task.ParentID {
			if err := s.reparentInPlace(ctx, &task, parentID, now); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			return err
		}
		task.Version++
		out = task
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// ReparentTask moves a task under another parent, appending it to that group.
func (s *Service) ReparentTask(ctx context.Context, taskID, parentID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Task{}, domain.ErrInvalidID
	}
	parentID = strings.TrimSpace(parentID)

	var out domain.Task
	err := s.retry.do(ctx, "reparent task", func() error {
		task, err := s.repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.ParentID == parentID {
			out = task
			return nil
		}
		if err := s.reparentInPlace(ctx, &task, parentID, s.clock()); err != nil {
			return err
		}
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			return err
		}
		task.Version++
		out = task
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// DeleteTask removes one task. Children keep their parent reference.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.DeleteTask(ctx, taskID)
}

// MoveTask moves a task to a zero-based index within its sibling group.
func (s *Service) MoveTask(ctx context.Context, taskID string, index int) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.ErrInvalidID
	}
	return s.retry.do(ctx, "move task", func() error {
		found, err := s.mover.moveToIndex(ctx, taskID, index)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
}

// ListTasks returns one page of the group selected by in.Group.
func (s *Service) ListTasks(ctx context.Context, in ListQuery) (Page, error) {
	if in.PageSize == 0 {
		in.PageSize = s.defaultPageSize
	}
	return s.query.list(ctx, in)
}

// ListSubTasks returns one page of the direct children of parentID.
func (s *Service) ListSubTasks(ctx context.Context, parentID string, in ListQuery) (Page, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return Page{}, domain.ErrInvalidParentID
	}
	if _, err := s.repo.GetTask(ctx, parentID); err != nil {
		return Page{}, err
	}
	in.Group = domain.ChildrenOf(parentID)
	return s.ListTasks(ctx, in)
}

// RebalanceGroup renumbers every task under parentID; an empty id selects the top level.
func (s *Service) RebalanceGroup(ctx context.Context, parentID string) error {
	group := domain.GroupKey(strings.TrimSpace(parentID))
	return s.retry.do(ctx, "rebalance group", func() error {
		renumbered, err := s.rebalancer.rebalance(ctx, group)
		if err != nil {
			return err
		}
		s.logger.Info("rebalanced group on request", "group", group.String(), "tasks", renumbered)
		return nil
	})
}

// ValidateReparent reports whether taskID may move under newParentID.
func (s *Service) ValidateReparent(ctx context.Context, taskID, newParentID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.ErrInvalidID
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	return s.tree.validateReparent(ctx, task, newParentID)
}

// NextPosition returns the position a task appended under parentID would receive.
func (s *Service) NextPosition(ctx context.Context, parentID string) (uint64, error) {
	return s.allocator.nextPosition(ctx, domain.GroupKey(strings.TrimSpace(parentID)))
}

// ListTaskChangeEvents lists recent change events for a task.
func (s *Service) ListTaskChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTaskChangeEvents(ctx, taskID, limit)
}

// ListGroupChangeEvents lists recent change events recorded for one sibling group.
func (s *Service) ListGroupChangeEvents(ctx context.Context, parentID string, limit int) ([]domain.ChangeEvent, error) {
	return s.repo.ListGroupChangeEvents(ctx, GroupEventsQuery{
		Group: domain.GroupKey(strings.TrimSpace(parentID)),
		Limit: limit,
	})
}

func (s *Service) reparentInPlace(ctx context.Context, task *domain.Task, parentID string, now time.Time) error {
	if err := s.tree.validateReparent(ctx, *task, parentID); err != nil {
		return err
	}
	position, err := s.allocator.nextPosition(ctx, domain.GroupKey(parentID))
	if err != nil {
		return err
	}
	if err := task.Reparent(parentID, position, now); err != nil {
		return err
	}
	s.logger.Debug("task reparented", "task_id", task.ID, "parent_id", parentID, "position", position)
	return nil
}
