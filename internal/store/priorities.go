package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskvault/taskvault/internal/model"
)

// Priorities provides access to the priorities reference table.
type Priorities struct {
	db Executor
}

// NewPriorities creates a priority repository on the given executor.
func NewPriorities(db Executor) *Priorities {
	return &Priorities{db: db}
}

// GetByID fetches a priority by primary key.
func (p *Priorities) GetByID(ctx context.Context, id int64) (*model.Priority, error) {
	query, args, err := psql.Select("id", "name").
		From("priorities").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, err
	}

	var priority model.Priority
	if err := sqlx.GetContext(ctx, p.db, &priority, query, args...); err != nil {
		return nil, ParsePostgresError(err, "get", "priorities")
	}
	return &priority, nil
}

// List returns all priorities ordered by id.
func (p *Priorities) List(ctx context.Context) ([]model.Priority, error) {
	query, args, err := psql.Select("id", "name").
		From("priorities").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var priorities []model.Priority
	if err := sqlx.SelectContext(ctx, p.db, &priorities, query, args...); err != nil {
		return nil, ParsePostgresError(err, "list", "priorities")
	}
	return priorities, nil
}
