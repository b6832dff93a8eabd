package store

import (
	"context"
	"errors"

	"github.com/imelnik/taskdesk/internal/models"
)

// ErrNotFound is returned when a user or task does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter specifies filters for listing tasks. Each set field adds one
// equality predicate; nil/empty fields leave that column unconstrained.
type TaskFilter struct {
	Priority   models.Priority
	AssignedTo *int64
	Archived   *bool
	Status     models.Status
}

// TaskPatch is a partial update over the mutable task fields. Status and
// archived are deliberately absent: those transitions go through CloseTask
// and ReopenTask so the two columns cannot diverge.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	AssignedTo  *int64
}

// Store defines the persistence interface for taskdesk.
type Store interface {
	// Users
	AddUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	CountUsers(ctx context.Context) (int, error)

	// Tasks
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch TaskPatch) error
	CloseTask(ctx context.Context, id int64) error
	ReopenTask(ctx context.Context, id int64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Int64 returns a pointer to v, for building TaskFilter values inline.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v, for building TaskFilter values inline.
func Bool(v bool) *bool { return &v }
