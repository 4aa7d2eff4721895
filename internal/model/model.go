// Package model defines the taskvault domain types shared by the store,
// service, and HTTP layers.
package model

// User owns zero or more tasks. Usernames are unique.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// Task is the core entity. The owner never changes after creation.
type Task struct {
	ID          int64   `db:"id" json:"id"`
	Title       string  `db:"title" json:"title"`
	Description *string `db:"description" json:"description,omitempty"`
	PriorityID  *int64  `db:"priority_id" json:"priority_id,omitempty"`
	OwnerID     int64   `db:"user_id" json:"user_id"`
	Completed   bool    `db:"is_completed" json:"completed"`
}

// Priority is a small reference table (Low/Medium/High by default).
type Priority struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Tag names are unique with exact, case-sensitive matching. Tags are shared
// across all tasks and owners and are never deleted.
type Tag struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CompletedTagName is the tag whose membership must always agree with a
// task's Completed flag on the targeted completion path.
const CompletedTagName = "Completed"

// TaskView is the serialization shape used for task listings and cache
// snapshots. Priority is the resolved name, not the id.
type TaskView struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	Tags        []string `json:"tags"`
	Completed   bool     `json:"completed"`
	CreatedBy   string   `json:"created_by,omitempty"`
}
