package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskvault/taskvault/internal/model"
)

// Tasks provides access to the tasks table and hydrated task listings.
type Tasks struct {
	db Executor
}

// NewTasks creates a task repository on the given executor.
func NewTasks(db Executor) *Tasks {
	return &Tasks{db: db}
}

// Insert stores a new task and fills in its assigned id.
func (t *Tasks) Insert(ctx context.Context, task *model.Task) error {
	query, args, err := psql.Insert("tasks").
		Columns("title", "description", "priority_id", "user_id", "is_completed").
		Values(task.Title, task.Description, task.PriorityID, task.OwnerID, task.Completed).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	if err := sqlx.GetContext(ctx, t.db, &task.ID, query, args...); err != nil {
		return ParsePostgresError(err, "insert", "tasks")
	}
	return nil
}

// GetByID fetches a task by primary key.
func (t *Tasks) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	query, args, err := psql.Select("id", "title", "description", "priority_id", "user_id", "is_completed").
		From("tasks").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, err
	}

	var task model.Task
	if err := sqlx.GetContext(ctx, t.db, &task, query, args...); err != nil {
		return nil, ParsePostgresError(err, "get", "tasks")
	}
	return &task, nil
}

// UpdateFields applies a partial update. Only the supplied columns change.
func (t *Tasks) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	query, args, err := psql.Update("tasks").
		SetMap(fields).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return err
	}

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ParsePostgresError(err, "update", "tasks")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &Error{Op: "update", Table: "tasks", Err: model.ErrNotFound}
	}
	return nil
}

// Delete removes a task. Its tag links cascade at the schema level.
func (t *Tasks) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("tasks").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return err
	}

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ParsePostgresError(err, "delete", "tasks")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &Error{Op: "delete", Table: "tasks", Err: model.ErrNotFound}
	}
	return nil
}

type taskRow struct {
	ID          int64   `db:"id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	Priority    *string `db:"priority"`
	Completed   bool    `db:"is_completed"`
	CreatedBy   string  `db:"created_by"`
}

func listColumns() []string {
	return []string{
		"tasks.id",
		"tasks.title",
		"tasks.description",
		"priorities.name AS priority",
		"tasks.is_completed",
		"users.username AS created_by",
	}
}

// ListAll returns every task as a hydrated view, ordered by id.
func (t *Tasks) ListAll(ctx context.Context) ([]model.TaskView, error) {
	builder := psql.Select(listColumns()...).
		From("tasks").
		LeftJoin("priorities ON priorities.id = tasks.priority_id").
		Join("users ON users.id = tasks.user_id").
		OrderBy("tasks.id")

	return t.list(ctx, builder)
}

// ListByOwner returns the owner's tasks as hydrated views, ordered by id.
func (t *Tasks) ListByOwner(ctx context.Context, ownerID int64) ([]model.TaskView, error) {
	builder := psql.Select(listColumns()...).
		From("tasks").
		LeftJoin("priorities ON priorities.id = tasks.priority_id").
		Join("users ON users.id = tasks.user_id").
		Where("tasks.user_id = ?", ownerID).
		OrderBy("tasks.id")

	return t.list(ctx, builder)
}

func (t *Tasks) list(ctx context.Context, builder interface {
	ToSql() (string, []any, error)
}) ([]model.TaskView, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, t.db, &rows, query, args...); err != nil {
		return nil, ParsePostgresError(err, "list", "tasks")
	}

	views := make([]model.TaskView, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		views = append(views, model.TaskView{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Priority:    r.Priority,
			Tags:        []string{},
			Completed:   r.Completed,
			CreatedBy:   r.CreatedBy,
		})
		ids = append(ids, r.ID)
	}

	if len(ids) == 0 {
		return views, nil
	}

	tags, err := t.tagsForTasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if names, ok := tags[views[i].ID]; ok {
			views[i].Tags = names
		}
	}
	return views, nil
}

type tagLinkRow struct {
	TaskID int64  `db:"task_id"`
	Name   string `db:"name"`
}

func (t *Tasks) tagsForTasks(ctx context.Context, ids []int64) (map[int64][]string, error) {
	query, args, err := psql.Select("task_tags.task_id", "tags.name").
		From("task_tags").
		Join("tags ON tags.id = task_tags.tag_id").
		Where("task_tags.task_id = ANY(?)", pq.Array(ids)).
		OrderBy("tags.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []tagLinkRow
	if err := sqlx.SelectContext(ctx, t.db, &rows, query, args...); err != nil {
		return nil, ParsePostgresError(err, "tags_for_tasks", "task_tags")
	}

	out := make(map[int64][]string, len(ids))
	for _, r := range rows {
		out[r.TaskID] = append(out[r.TaskID], r.Name)
	}
	return out, nil
}
