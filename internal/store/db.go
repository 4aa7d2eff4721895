// Package store implements the relational persistence layer on PostgreSQL
// using sqlx and squirrel. All repositories operate on an Executor so the
// same code runs inside and outside transactions.
package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/taskvault/taskvault/internal/logger"
)

// Executor abstracts *sqlx.DB and *sqlx.Tx so repositories can run on either.
type Executor = sqlx.ExtContext

// psql builds queries with PostgreSQL $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string, maxConns int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Store().Debug("database connection established", "max_conns", maxConns)
	return db, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS priorities (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(20) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(80) NOT NULL,
		description VARCHAR(200),
		priority_id BIGINT REFERENCES priorities(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		is_completed BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_tags (
		task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (task_id, tag_id)
	);
`

// defaultPriorities are seeded once on an empty priorities table.
var defaultPriorities = []string{"Low", "Medium", "High"}

// InitSchema creates all tables and seeds the default priorities. Idempotent.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var count int
	if err := sqlx.GetContext(ctx, db, &count, "SELECT COUNT(*) FROM priorities"); err != nil {
		return fmt.Errorf("failed to inspect priorities: %w", err)
	}
	if count > 0 {
		return nil
	}

	insert := psql.Insert("priorities").Columns("name")
	for _, name := range defaultPriorities {
		insert = insert.Values(name)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build priority seed: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to seed priorities: %w", err)
	}

	logger.Store().Info("schema initialized", "seeded_priorities", len(defaultPriorities))
	return nil
}
