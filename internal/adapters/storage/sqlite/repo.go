package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/evanschultz/tasktree/internal/app"
	"github.com/evanschultz/tasktree/internal/domain"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// DefaultBusyTimeout is how long a connection waits on a locked database before failing.
const DefaultBusyTimeout = 5 * time.Second

// positionBias maps the unsigned position domain onto SQLite's signed INTEGER in order.
const positionBias uint64 = 1 << 63

// defaultEventLimit caps change-event listings when no limit is given.
const defaultEventLimit = 50

// Options tunes how a database file is opened.
type Options struct {
	BusyTimeout time.Duration
}

// Repository is the SQLite implementation of app.Repository.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ app.Repository = (*Repository)(nil)

// Open opens or creates the database file at path and applies the schema.
func Open(path string, opts Options) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return openDSN(fileDSN(path, opts))
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	name := "tasktree-" + uuid.NewString()
	return openDSN("file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)")
}

func openDSN(dsn string) (*Repository, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// fileDSN builds a connection string whose pragmas apply to every pooled connection.
func fileDSN(path string, opts Options) string {
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	query := url.Values{}
	query.Add("_pragma", "busy_timeout("+strconv.FormatInt(busy.Milliseconds(), 10)+")")
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "foreign_keys(1)")
	query.Set("_txlock", "immediate")
	return "file:" + path + "?" + query.Encode()
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates tables and indexes when they are missing.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			parent_id TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			reordering INTEGER NOT NULL DEFAULT 0,
			summary TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			due_at TEXT,
			priority INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'todo',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// Rows staged by a rebalance leave the unique index until the group is published.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_parent_position_unique ON tasks(parent_id, position) WHERE reordering = 0;`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent_position ON tasks(parent_id, position);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL DEFAULT '',
			parent_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_task_created_at ON change_events(task_id, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_parent_created_at ON change_events(parent_id, created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// withinTx runs fn in one transaction and commits when fn succeeds.
func (r *Repository) withinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyWriteErr(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classifyWriteErr(err)
	}
	if err := tx.Commit(); err != nil {
		return classifyWriteErr(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// CreateTask inserts a task and records a create event.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	return r.withinTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks(id, parent_id, position, version, summary, description, due_at, priority, status, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			t.ParentID,
			encodePosition(t.Position),
			t.Summary,
			t.Description,
			nullableTS(t.DueAt),
			t.Priority,
			string(t.Status),
			ts(t.CreatedAt),
			ts(t.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
		return insertChangeEvent(ctx, tx, domain.ChangeEvent{
			TaskID:     t.ID,
			ParentID:   t.ParentID,
			Operation:  domain.ChangeOperationCreate,
			Metadata:   map[string]string{"position": formatPosition(t.Position)},
			OccurredAt: t.CreatedAt,
		})
	})
}

// UpdateTask writes every mutable column when t.Version matches the stored version.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	return r.withinTx(ctx, func(tx *sql.Tx) error {
		prev, err := getTaskByID(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET parent_id = ?, position = ?, summary = ?, description = ?, due_at = ?, priority = ?, status = ?,
			    updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`,
			t.ParentID,
			encodePosition(t.Position),
			t.Summary,
			t.Description,
			nullableTS(t.DueAt),
			t.Priority,
			string(t.Status),
			ts(t.UpdatedAt),
			t.ID,
			t.Version,
		)
		if err != nil {
			return fmt.Errorf("update task %s: %w", t.ID, err)
		}
		if err := translateStaleVersion(res); err != nil {
			return err
		}
		op, metadata := classifyTaskTransition(prev, t)
		return insertChangeEvent(ctx, tx, domain.ChangeEvent{
			TaskID:     t.ID,
			ParentID:   t.ParentID,
			Operation:  op,
			Metadata:   metadata,
			OccurredAt: t.UpdatedAt,
		})
	})
}

// GetTask returns one task by id.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTaskByID(ctx, r.db, id)
}

// DeleteTask removes one task. Children are left in place.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	return r.withinTx(ctx, func(tx *sql.Tx) error {
		prev, err := getTaskByID(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		if err := translateNoRows(res); err != nil {
			return err
		}
		return insertChangeEvent(ctx, tx, domain.ChangeEvent{
			TaskID:     id,
			ParentID:   prev.ParentID,
			Operation:  domain.ChangeOperationDelete,
			Metadata:   map[string]string{"position": formatPosition(prev.Position)},
			OccurredAt: r.now(),
		})
	})
}

// MaxPosition returns the largest position in group, or 0 when the group is empty.
func (r *Repository) MaxPosition(ctx context.Context, group domain.GroupKey) (uint64, error) {
	var stored sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE parent_id = ?`, group.ParentID()).Scan(&stored)
	if err != nil {
		return 0, fmt.Errorf("select max position: %w", err)
	}
	if !stored.Valid {
		return 0, nil
	}
	return decodePosition(stored.Int64), nil
}

// SiblingAt returns the task at a zero-based rank in ascending position order.
func (r *Repository) SiblingAt(ctx context.Context, group domain.GroupKey, index int) (domain.Task, error) {
	if index < 0 {
		return domain.Task{}, app.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE parent_id = ?
		ORDER BY position ASC
		LIMIT 1 OFFSET ?
	`, group.ParentID(), index)
	return scanTaskRow(row)
}

// ListTasks returns one sorted window of a group plus the group size.
func (r *Repository) ListTasks(ctx context.Context, q app.TaskQuery) ([]domain.Task, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE parent_id = ?`, q.Group.ParentID()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	out := make([]domain.Task, 0)
	if q.Limit <= 0 || q.Offset >= total {
		return out, total, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE parent_id = ?
		ORDER BY `+orderByClause(q.Sort)+`
		LIMIT ? OFFSET ?
	`, q.Group.ParentID(), q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountChildren returns direct child counts keyed by parent id.
func (r *Repository) CountChildren(ctx context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT parent_id, COUNT(*)
		FROM tasks
		WHERE parent_id IN (`+placeholders+`)
		GROUP BY parent_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("count children: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			parentID string
			count    int
		)
		if err := rows.Scan(&parentID, &count); err != nil {
			return nil, err
		}
		out[parentID] = count
	}
	return out, rows.Err()
}

// UpdatePosition moves one task within its group when version matches.
func (r *Repository) UpdatePosition(ctx context.Context, id string, position uint64, version int64) error {
	return r.withinTx(ctx, func(tx *sql.Tx) error {
		prev, err := getTaskByID(ctx, tx, id)
		if err != nil {
			return err
		}
		now := r.now()
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET position = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`, encodePosition(position), ts(now), id, version)
		if err != nil {
			return fmt.Errorf("update position of task %s: %w", id, err)
		}
		if err := translateStaleVersion(res); err != nil {
			return err
		}
		return insertChangeEvent(ctx, tx, domain.ChangeEvent{
			TaskID:    id,
			ParentID:  prev.ParentID,
			Operation: domain.ChangeOperationMove,
			Metadata: map[string]string{
				"from_position": formatPosition(prev.Position),
				"to_position":   formatPosition(position),
			},
			OccurredAt: now,
		})
	})
}

// Rebalance renumbers group to rank*step in one transaction.
//
// The first statement stages new positions outside the unique index; the
// second publishes them. Other connections see either the old or the new set.
func (r *Repository) Rebalance(ctx context.Context, group domain.GroupKey, step uint64) (int, error) {
	if step == 0 || step > math.MaxInt64 {
		return 0, fmt.Errorf("invalid rebalance step %d", step)
	}
	var renumbered int
	err := r.withinTx(ctx, func(tx *sql.Tx) error {
		var count int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE parent_id = ?`, group.ParentID()).Scan(&count); err != nil {
			return fmt.Errorf("count group: %w", err)
		}
		if count == 0 {
			return nil
		}
		if uint64(count) > uint64(math.MaxInt64)/step {
			return app.ErrTooManyTasks
		}
		now := r.now()
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET position = ? + ranked.rn * ?, reordering = 1, version = tasks.version + 1, updated_at = ?
			FROM (
				SELECT id, row_number() OVER (ORDER BY position ASC) AS rn
				FROM tasks
				WHERE parent_id = ?
			) AS ranked
			WHERE tasks.id = ranked.id
		`, encodePosition(0), int64(step), ts(now), group.ParentID())
		if err != nil {
			return fmt.Errorf("stage rebalance: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET reordering = 0 WHERE parent_id = ? AND reordering = 1`, group.ParentID()); err != nil {
			return fmt.Errorf("publish rebalance: %w", err)
		}
		renumbered = int(affected)
		return insertChangeEvent(ctx, tx, domain.ChangeEvent{
			ParentID:  group.ParentID(),
			Operation: domain.ChangeOperationRebalance,
			Metadata: map[string]string{
				"tasks": strconv.Itoa(renumbered),
				"step":  strconv.FormatUint(step, 10),
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return 0, err
	}
	return renumbered, nil
}

// ListTaskChangeEvents lists recent change events for one task.
func (r *Repository) ListTaskChangeEvents(ctx context.Context, taskID string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return r.listChangeEvents(ctx, `WHERE task_id = ?`, taskID, limit)
}

// ListGroupChangeEvents lists recent change events recorded under one parent.
func (r *Repository) ListGroupChangeEvents(ctx context.Context, q app.GroupEventsQuery) ([]domain.ChangeEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return r.listChangeEvents(ctx, `WHERE parent_id = ?`, q.Group.ParentID(), limit)
}

func (r *Repository) listChangeEvents(ctx context.Context, where string, arg string, limit int) ([]domain.ChangeEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, parent_id, operation, metadata_json, created_at
		FROM change_events
		`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &event.ParentID, &opRaw, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// taskColumns lists the selected task columns in scan order.
const taskColumns = `id, parent_id, position, version, summary, description, due_at, priority, status, created_at, updated_at`

// statusRankExpr orders statuses by workflow rank instead of by name.
const statusRankExpr = `CASE status WHEN 'todo' THEN 0 WHEN 'reserved' THEN 1 WHEN 'in_progress' THEN 2 WHEN 'done' THEN 3 ELSE 4 END`

// orderByClause renders the ORDER BY for a sort key with position as the tie-break.
func orderByClause(key domain.SortKey) string {
	var expr string
	switch key.Field() {
	case "summary":
		expr = "summary"
	case "description":
		expr = "description"
	case "dueDate":
		expr = "due_at"
	case "priority":
		expr = "priority"
	case "status":
		expr = statusRankExpr
	case "createDate":
		expr = "created_at"
	default:
		if key.Descending() {
			return "position DESC"
		}
		return "position ASC"
	}
	dir := "ASC"
	if key.Descending() {
		dir = "DESC"
	}
	return expr + " " + dir + ", position ASC"
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// getTaskByID loads one task row.
func getTaskByID(ctx context.Context, q queryRower, id string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTaskRow(row)
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertChangeEvent appends a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(task_id, parent_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.TaskID,
		event.ParentID,
		string(event.Operation),
		string(metadataJSON),
		ts(occurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// classifyTaskTransition picks the ledger operation for a full task update.
func classifyTaskTransition(prev, next domain.Task) (domain.ChangeOperation, map[string]string) {
	if prev.ParentID != next.ParentID {
		return domain.ChangeOperationReparent, map[string]string{
			"from_parent": prev.ParentID,
			"to_parent":   next.ParentID,
			"position":    formatPosition(next.Position),
		}
	}
	changed := make([]string, 0, 6)
	if prev.Summary != next.Summary {
		changed = append(changed, "summary")
	}
	if prev.Description != next.Description {
		changed = append(changed, "description")
	}
	if !equalNullableTimes(prev.DueAt, next.DueAt) {
		changed = append(changed, "due_at")
	}
	if prev.Priority != next.Priority {
		changed = append(changed, "priority")
	}
	if prev.Status != next.Status {
		changed = append(changed, "status")
	}
	if prev.Position != next.Position {
		changed = append(changed, "position")
	}
	return domain.ChangeOperationUpdate, map[string]string{"changed_fields": strings.Join(changed, ",")}
}

func equalNullableTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTaskRow scans a single-row lookup, mapping no rows to app.ErrNotFound.
func scanTaskRow(row *sql.Row) (domain.Task, error) {
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, app.ErrNotFound
	}
	return task, err
}

// scanTask decodes one task row.
func scanTask(s scanner) (domain.Task, error) {
	var (
		task       domain.Task
		position   int64
		status     string
		dueRaw     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(
		&task.ID,
		&task.ParentID,
		&position,
		&task.Version,
		&task.Summary,
		&task.Description,
		&dueRaw,
		&task.Priority,
		&status,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return domain.Task{}, err
	}
	task.Position = decodePosition(position)
	task.Status = domain.Status(status)
	task.DueAt = parseNullTS(dueRaw)
	task.CreatedAt = parseTS(createdRaw)
	task.UpdatedAt = parseTS(updatedRaw)
	return task, nil
}

// encodePosition biases an unsigned position into signed storage, preserving order.
func encodePosition(position uint64) int64 {
	return int64(position ^ positionBias)
}

// decodePosition reverses encodePosition.
func decodePosition(stored int64) uint64 {
	return uint64(stored) ^ positionBias
}

func formatPosition(position uint64) string {
	return strconv.FormatUint(position, 10)
}

// translateNoRows maps a zero-row write to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// translateStaleVersion maps a zero-row version-checked write to app.ErrWriteConflict.
//
// Callers load the row inside the same transaction first, so a missing row
// has already surfaced as app.ErrNotFound.
func translateStaleVersion(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: stale task version", app.ErrWriteConflict)
	}
	return nil
}

// classifyWriteErr maps uniqueness violations and lock contention to app.ErrWriteConflict.
func classifyWriteErr(err error) error {
	var sqliteErr *moderncsqlite.Error
	if err == nil || !errors.As(err, &sqliteErr) {
		return err
	}
	code := sqliteErr.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", app.ErrWriteConflict, err)
	}
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %v", app.ErrWriteConflict, err)
	}
	return err
}

// tsLayout is fixed-width so stored timestamps sort lexically in time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	parsed := parseTS(v.String)
	return &parsed
}
