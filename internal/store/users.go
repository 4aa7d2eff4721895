package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskvault/taskvault/internal/model"
)

// Users provides access to the users table.
type Users struct {
	db Executor
}

// NewUsers creates a user repository on the given executor.
func NewUsers(db Executor) *Users {
	return &Users{db: db}
}

// Create inserts a user and returns it with the assigned id. A duplicate
// username surfaces as model.ErrConflict.
func (u *Users) Create(ctx context.Context, username, passwordHash string) (*model.User, error) {
	query, args, err := psql.Insert("users").
		Columns("username", "password_hash").
		Values(username, passwordHash).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}

	user := &model.User{Username: username, PasswordHash: passwordHash}
	if err := sqlx.GetContext(ctx, u.db, &user.ID, query, args...); err != nil {
		return nil, ParsePostgresError(err, "create", "users")
	}
	return user, nil
}

// GetByID fetches a user by primary key.
func (u *Users) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query, args, err := psql.Select("id", "username", "password_hash").
		From("users").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := sqlx.GetContext(ctx, u.db, &user, query, args...); err != nil {
		return nil, ParsePostgresError(err, "get", "users")
	}
	return &user, nil
}

// GetByUsername fetches a user by exact username.
func (u *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query, args, err := psql.Select("id", "username", "password_hash").
		From("users").
		Where("username = ?", username).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := sqlx.GetContext(ctx, u.db, &user, query, args...); err != nil {
		return nil, ParsePostgresError(err, "get", "users")
	}
	return &user, nil
}
