// Package tasks implements the task store: lifecycle operations, the
// completion/tag invariant, and cache invalidation on every mutation.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.trai.ch/zerr"

	"github.com/taskvault/taskvault/internal/logger"
	"github.com/taskvault/taskvault/internal/model"
	"github.com/taskvault/taskvault/internal/store"
)

// Invalidator receives the affected owner after every committed mutation.
type Invalidator interface {
	OnMutation(ownerID int64)
}

// Service orchestrates task mutations. Field changes and tag-link changes
// commit as one transaction; the invalidator runs only after commit and
// always before the operation returns.
type Service struct {
	db  *sqlx.DB
	tm  *store.TransactionManager
	inv Invalidator
	log logger.Logger
}

// NewService creates the task service.
func NewService(db *sqlx.DB, inv Invalidator) *Service {
	return &Service{
		db:  db,
		tm:  store.NewTransactionManager(db),
		inv: inv,
		log: logger.Tasks(),
	}
}

// CreateInput carries the typed fields for task creation.
type CreateInput struct {
	Title       string
	Description *string
	PriorityID  int64
	Tags        []string
}

// UpdateInput carries a partial update. Nil fields are left untouched. A
// non-nil Tags performs a replace-all relink.
type UpdateInput struct {
	Title       *string
	Description *string
	PriorityID  *int64
	Tags        []string
}

// Create validates the input, stores the task, and links its tags, all in one
// transaction.
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (*model.Task, error) {
	if in.Title == "" {
		return nil, model.Validation("title", "must be a non-empty string")
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		PriorityID:  &in.PriorityID,
		OwnerID:     ownerID,
	}

	err := s.tm.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := store.NewPriorities(tx).GetByID(ctx, in.PriorityID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Validation("priority_id", "invalid priority_id")
			}
			return err
		}

		if err := store.NewTasks(tx).Insert(ctx, task); err != nil {
			return err
		}

		tags := store.NewTagIndex(tx)
		seen := make(map[string]bool, len(in.Tags))
		for _, name := range in.Tags {
			if seen[name] {
				continue
			}
			seen[name] = true

			tag, err := tags.GetOrCreate(ctx, name)
			if err != nil {
				return err
			}
			if err := tags.AddTag(ctx, task.ID, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inv.OnMutation(ownerID)
	s.log.Info("task created", "task_id", task.ID, "owner_id", ownerID)
	return task, nil
}

// Update applies a partial update after the ownership check. When Tags is
// non-nil the existing links are replaced wholesale with the supplied set;
// this path trusts the caller's list and does not touch the completion flag,
// so omitting the "Completed" tag leaves the flag and the link in
// disagreement. SetCompletion is the path that keeps the two in sync.
func (s *Service) Update(ctx context.Context, taskID, callerID int64, in UpdateInput) (*model.Task, error) {
	var task *model.Task

	err := s.tm.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		repo := store.NewTasks(tx)

		var err error
		task, err = repo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task.OwnerID != callerID {
			return zerr.Wrap(model.ErrPermission, "caller does not own this task")
		}

		fields := make(map[string]any)
		if in.Title != nil {
			if *in.Title == "" {
				return model.Validation("title", "must be a non-empty string")
			}
			fields["title"] = *in.Title
			task.Title = *in.Title
		}
		if in.Description != nil {
			fields["description"] = *in.Description
			task.Description = in.Description
		}
		if in.PriorityID != nil {
			if _, err := store.NewPriorities(tx).GetByID(ctx, *in.PriorityID); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return model.Validation("priority_id", "invalid priority_id")
				}
				return err
			}
			fields["priority_id"] = *in.PriorityID
			task.PriorityID = in.PriorityID
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, taskID, fields); err != nil {
				return err
			}
		}

		if in.Tags != nil {
			if err := store.NewTagIndex(tx).ReplaceTags(ctx, taskID, in.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inv.OnMutation(task.OwnerID)
	s.log.Info("task updated", "task_id", taskID, "owner_id", task.OwnerID)
	return task, nil
}

// Delete removes the task and its tag links in one transaction after the
// ownership check.
func (s *Service) Delete(ctx context.Context, taskID, callerID int64) error {
	var ownerID int64

	err := s.tm.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		repo := store.NewTasks(tx)

		task, err := repo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task.OwnerID != callerID {
			return zerr.Wrap(model.ErrPermission, "caller does not own this task")
		}
		ownerID = task.OwnerID

		if err := store.NewTagIndex(tx).ClearTask(ctx, taskID); err != nil {
			return err
		}
		return repo.Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}

	s.inv.OnMutation(ownerID)
	s.log.Info("task deleted", "task_id", taskID, "owner_id", ownerID)
	return nil
}

// SetCompletion sets the completion flag. When manageTag is true it also
// adds or removes exactly the "Completed" link, leaving every other tag
// untouched (the targeted mutation path).
func (s *Service) SetCompletion(ctx context.Context, taskID, callerID int64, completed, manageTag bool) error {
	var ownerID int64

	err := s.tm.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		repo := store.NewTasks(tx)

		task, err := repo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task.OwnerID != callerID {
			return zerr.Wrap(model.ErrPermission, "caller does not own this task")
		}
		ownerID = task.OwnerID

		if err := repo.UpdateFields(ctx, taskID, map[string]any{"is_completed": completed}); err != nil {
			return err
		}

		if !manageTag {
			return nil
		}

		tags := store.NewTagIndex(tx)
		tag, err := tags.GetOrCreate(ctx, model.CompletedTagName)
		if err != nil {
			return err
		}
		if completed {
			return tags.AddTag(ctx, taskID, tag.ID)
		}
		return tags.RemoveTag(ctx, taskID, tag.ID)
	})
	if err != nil {
		return err
	}

	s.inv.OnMutation(ownerID)
	s.log.Info("task completion set", "task_id", taskID, "completed", completed)
	return nil
}

// ListAll returns every task as a hydrated view. Pure read.
func (s *Service) ListAll(ctx context.Context) ([]model.TaskView, error) {
	return store.NewTasks(s.db).ListAll(ctx)
}

// ListByOwner returns one owner's tasks as hydrated views. Pure read.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]model.TaskView, error) {
	return store.NewTasks(s.db).ListByOwner(ctx, ownerID)
}

// UserByUsername resolves an owner by exact username.
func (s *Service) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return store.NewUsers(s.db).GetByUsername(ctx, username)
}

// UserByID resolves an owner by id.
func (s *Service) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return store.NewUsers(s.db).GetByID(ctx, id)
}

// Priorities lists the available priorities, used to enrich validation
// failures on the HTTP boundary.
func (s *Service) Priorities(ctx context.Context) ([]model.Priority, error) {
	return store.NewPriorities(s.db).List(ctx)
}

// Snapshot serializes a listing into the immutable byte form stored in the
// read cache. Field order is fixed by the TaskView struct, so equal listings
// produce bit-identical snapshots.
func Snapshot(views []model.TaskView) ([]byte, error) {
	if views == nil {
		views = []model.TaskView{}
	}
	data, err := json.Marshal(views)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}
