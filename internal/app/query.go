package app

import (
	"context"
	"fmt"
	"math"

	"github.com/evanschultz/tasktree/internal/domain"
)

// DefaultMaxPageSize and DefaultPageSize define pagination defaults.
const (
	DefaultMaxPageSize = 5000
	DefaultPageSize    = 10
)

// ListQuery holds input values for paginated group listings.
type ListQuery struct {
	Group      domain.GroupFilter
	Sort       domain.SortKey
	PageNumber int
	PageSize   int
}

// Page is one page of an ordered group listing.
type Page struct {
	Items       []domain.Task
	PageNumber  int
	PageSize    int
	PageCount   int
	TotalCount  int
	HasPrevious bool
	HasNext     bool
}

// orderedQuery serves paginated sorted views of sibling groups.
type orderedQuery struct {
	repo        Repository
	maxPageSize int
}

// list returns one page of the filtered group plus direct child counts.
func (q orderedQuery) list(ctx context.Context, in ListQuery) (Page, error) {
	pageNumber := max(in.PageNumber, 1)
	pageSize := min(max(in.PageSize, 1), q.maxPageSize)
	sortKey := domain.ParseSortKey(string(in.Sort))

	offset := math.MaxInt
	if pageNumber-1 <= math.MaxInt/pageSize {
		offset = (pageNumber - 1) * pageSize
	}

	items, total, err := q.repo.ListTasks(ctx, TaskQuery{
		Group:  in.Group.Group(),
		Sort:   sortKey,
		Offset: offset,
		Limit:  pageSize,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list group %s: %w", in.Group.Group(), err)
	}
	if err := q.attachSubTaskCounts(ctx, items); err != nil {
		return Page{}, err
	}

	pageCount := pageCountFor(total, pageSize)
	return Page{
		Items:       items,
		PageNumber:  pageNumber,
		PageSize:    pageSize,
		PageCount:   pageCount,
		TotalCount:  total,
		HasPrevious: pageNumber > 1,
		HasNext:     pageNumber < pageCount,
	}, nil
}

// siblingAt returns the task at a zero-based rank, or ErrNotFound past the end.
func (q orderedQuery) siblingAt(ctx context.Context, group domain.GroupKey, index int) (domain.Task, error) {
	return q.repo.SiblingAt(ctx, group, index)
}

// attachSubTaskCounts fills SubTaskCount with direct child counts.
func (q orderedQuery) attachSubTaskCounts(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	counts, err := q.repo.CountChildren(ctx, ids)
	if err != nil {
		return fmt.Errorf("count subtasks: %w", err)
	}
	for i := range tasks {
		tasks[i].SubTaskCount = counts[tasks[i].ID]
	}
	return nil
}

// pageCountFor returns ceil(total/pageSize).
func pageCountFor(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
