package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskvault/taskvault/internal/model"
)

// TagIndex manages tag identity and the task<->tag association. Name matching
// is exact: no case folding, no trimming.
type TagIndex struct {
	db Executor
}

// NewTagIndex creates a tag index on the given executor.
func NewTagIndex(db Executor) *TagIndex {
	return &TagIndex{db: db}
}

// GetOrCreate resolves a tag name to its identity, creating the row on first
// use. Idempotent: concurrent callers with the same name receive the same id.
func (t *TagIndex) GetOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	// Upsert in one statement so two transactions racing on a new name both
	// land on the same row.
	query, args, err := psql.Insert("tags").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}

	tag := &model.Tag{Name: name}
	if err := sqlx.GetContext(ctx, t.db, &tag.ID, query, args...); err != nil {
		return nil, ParsePostgresError(err, "get_or_create", "tags")
	}
	return tag, nil
}

// AddTag links a tag to a task. Idempotent: an existing link is left as is.
func (t *TagIndex) AddTag(ctx context.Context, taskID, tagID int64) error {
	query, args, err := psql.Insert("task_tags").
		Columns("task_id", "tag_id").
		Values(taskID, tagID).
		Suffix("ON CONFLICT (task_id, tag_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return ParsePostgresError(err, "add_tag", "task_tags")
	}
	return nil
}

// RemoveTag unlinks a tag from a task. Idempotent: a missing link is not an
// error.
func (t *TagIndex) RemoveTag(ctx context.Context, taskID, tagID int64) error {
	query, args, err := psql.Delete("task_tags").
		Where("task_id = ? AND tag_id = ?", taskID, tagID).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return ParsePostgresError(err, "remove_tag", "task_tags")
	}
	return nil
}

// ClearTask removes every link for a task.
func (t *TagIndex) ClearTask(ctx context.Context, taskID int64) error {
	query, args, err := psql.Delete("task_tags").
		Where("task_id = ?", taskID).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return ParsePostgresError(err, "clear_task", "task_tags")
	}
	return nil
}

// ReplaceTags drops all existing links for the task and relinks it to the
// resolved set of names. Duplicate input names collapse to one link.
func (t *TagIndex) ReplaceTags(ctx context.Context, taskID int64, names []string) error {
	if err := t.ClearTask(ctx, taskID); err != nil {
		return err
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		tag, err := t.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := t.AddTag(ctx, taskID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// NamesForTask returns the tag names linked to a task in creation order.
func (t *TagIndex) NamesForTask(ctx context.Context, taskID int64) ([]string, error) {
	query, args, err := psql.Select("tags.name").
		From("task_tags").
		Join("tags ON tags.id = task_tags.tag_id").
		Where("task_tags.task_id = ?", taskID).
		OrderBy("tags.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var names []string
	if err := sqlx.SelectContext(ctx, t.db, &names, query, args...); err != nil {
		return nil, ParsePostgresError(err, "names_for_task", "task_tags")
	}
	return names, nil
}
