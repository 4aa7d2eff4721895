package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/internal/model"
)

// fakeInvalidator records which owners were invalidated.
type fakeInvalidator struct {
	owners []int64
}

func (f *fakeInvalidator) OnMutation(ownerID int64) {
	f.owners = append(f.owners, ownerID)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeInvalidator) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	inv := &fakeInvalidator{}
	return NewService(sqlx.NewDb(db, "postgres"), inv), mock, inv
}

func expectTaskSelect(mock sqlmock.Sqlmock, taskID, ownerID int64, completed bool) {
	mock.ExpectQuery(`SELECT .* FROM tasks WHERE id = \$1`).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "priority_id", "user_id", "is_completed"}).
			AddRow(taskID, "Ship report", nil, 2, ownerID, completed))
}

func TestCreate(t *testing.T) {
	t.Run("creates task with tags in one transaction", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, name FROM priorities WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Medium"))
		mock.ExpectQuery(`INSERT INTO tasks .* RETURNING id`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery(`INSERT INTO tags`).
			WithArgs("work").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(`INSERT INTO task_tags`).
			WithArgs(int64(10), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		task, err := svc.Create(context.Background(), 1, CreateInput{
			Title:      "Ship report",
			PriorityID: 2,
			Tags:       []string{"work", "work"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), task.ID)
		assert.False(t, task.Completed)

		assert.Equal(t, []int64{1}, inv.owners, "owner must be invalidated after commit")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty title fails validation before touching the store", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		_, err := svc.Create(context.Background(), 1, CreateInput{Title: "", PriorityID: 2})
		assert.True(t, model.IsValidation(err))

		assert.Empty(t, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown priority fails validation and rolls back", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, name FROM priorities WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := svc.Create(context.Background(), 1, CreateInput{Title: "x", PriorityID: 99})
		assert.True(t, model.IsValidation(err))

		assert.Empty(t, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tag link failure rolls back the whole creation", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, name FROM priorities WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Medium"))
		mock.ExpectQuery(`INSERT INTO tasks .* RETURNING id`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery(`INSERT INTO tags`).
			WithArgs("work").
			WillReturnError(fmt.Errorf("dial tcp 127.0.0.1:5432: connection reset"))
		mock.ExpectRollback()

		_, err := svc.Create(context.Background(), 1, CreateInput{
			Title:      "Ship report",
			PriorityID: 2,
			Tags:       []string{"work"},
		})
		assert.ErrorIs(t, err, model.ErrUpstream)

		assert.Empty(t, inv.owners, "no invalidation on a rolled-back mutation")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdate(t *testing.T) {
	t.Run("partial field update", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 1, false)
		mock.ExpectExec(`UPDATE tasks SET title = \$1 WHERE id = \$2`).
			WithArgs("New title", int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		title := "New title"
		task, err := svc.Update(context.Background(), 10, 1, UpdateInput{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "New title", task.Title)

		assert.Equal(t, []int64{1}, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task maps to not found", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM tasks WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := svc.Update(context.Background(), 99, 1, UpdateInput{})
		assert.ErrorIs(t, err, model.ErrNotFound)

		assert.Empty(t, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner is rejected and nothing changes", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 2, false)
		mock.ExpectRollback()

		title := "hijacked"
		_, err := svc.Update(context.Background(), 10, 1, UpdateInput{Title: &title})
		assert.ErrorIs(t, err, model.ErrPermission)

		assert.Empty(t, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replace-all tags can drop the Completed link without clearing the flag", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		// Task is completed and linked to ["work", "Completed"]. The caller
		// re-supplies only ["work"]: the links are rebuilt from that list and
		// is_completed is never touched.
		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 1, true)
		mock.ExpectExec(`DELETE FROM task_tags WHERE task_id = \$1`).
			WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(`INSERT INTO tags`).
			WithArgs("work").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(`INSERT INTO task_tags`).
			WithArgs(int64(10), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		task, err := svc.Update(context.Background(), 10, 1, UpdateInput{Tags: []string{"work"}})
		require.NoError(t, err)
		assert.True(t, task.Completed, "flag stays set even though the Completed tag was dropped")

		assert.Equal(t, []int64{1}, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes task and links atomically", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 1, false)
		mock.ExpectExec(`DELETE FROM task_tags WHERE task_id = \$1`).
			WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).
			WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.Delete(context.Background(), 10, 1))

		assert.Equal(t, []int64{1}, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 2, false)
		mock.ExpectRollback()

		err := svc.Delete(context.Background(), 10, 1)
		assert.ErrorIs(t, err, model.ErrPermission)

		assert.Empty(t, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetCompletion(t *testing.T) {
	t.Run("completing adds only the Completed link", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 1, false)
		mock.ExpectExec(`UPDATE tasks SET is_completed = \$1 WHERE id = \$2`).
			WithArgs(true, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO tags`).
			WithArgs(model.CompletedTagName).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
		mock.ExpectExec(`INSERT INTO task_tags`).
			WithArgs(int64(10), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.SetCompletion(context.Background(), 10, 1, true, true))

		assert.Equal(t, []int64{1}, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("uncompleting removes only the Completed link", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 1, true)
		mock.ExpectExec(`UPDATE tasks SET is_completed = \$1 WHERE id = \$2`).
			WithArgs(false, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO tags`).
			WithArgs(model.CompletedTagName).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
		mock.ExpectExec(`DELETE FROM task_tags WHERE task_id = \$1 AND tag_id = \$2`).
			WithArgs(int64(10), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.SetCompletion(context.Background(), 10, 1, false, true))

		assert.Equal(t, []int64{1}, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("manageTag false leaves the links alone", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 1, false)
		mock.ExpectExec(`UPDATE tasks SET is_completed = \$1 WHERE id = \$2`).
			WithArgs(true, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.SetCompletion(context.Background(), 10, 1, true, false))

		assert.Equal(t, []int64{1}, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner is rejected with state untouched", func(t *testing.T) {
		svc, mock, inv := newTestService(t)

		mock.ExpectBegin()
		expectTaskSelect(mock, 10, 7, false)
		mock.ExpectRollback()

		err := svc.SetCompletion(context.Background(), 10, 1, true, true)
		assert.ErrorIs(t, err, model.ErrPermission)

		assert.Empty(t, inv.owners)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("equal listings produce bit-identical snapshots", func(t *testing.T) {
		views := []model.TaskView{
			{ID: 1, Title: "Ship report", Tags: []string{"work"}, Completed: true, CreatedBy: "alice"},
		}

		a, err := Snapshot(views)
		require.NoError(t, err)
		b, err := Snapshot(views)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("nil listing encodes as an empty array", func(t *testing.T) {
		snap, err := Snapshot(nil)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(snap))
	})
}
