package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/imelnik/taskdesk/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors when the bot loop and the
	// reminder sweep write at the same time.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Users ---

// AddUser inserts a new user. The primary-key constraint on the external
// chat id is the only guard against duplicate registration.
func (s *SQLiteStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, role) VALUES (?, ?, ?)`,
		u.ID, u.Name, string(u.Role),
	)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, role FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = models.Role(role)
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, role FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// --- Tasks ---

// CreateTask inserts a task. New tasks always start incomplete and
// unarchived regardless of what the caller set on the struct.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.Status = models.StatusIncomplete
	task.Archived = false
	task.CreatedAt = now
	task.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, priority, status, archived, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, task.Description, string(task.Priority), string(task.Status),
		boolToInt(task.Archived), task.AssignedTo, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	task.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create task id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	task := &models.Task{}
	var priority, status string
	var archived int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, priority, status, archived, assigned_to, created_at, updated_at
		FROM tasks WHERE id = ?`, id,
	).Scan(&task.ID, &task.Title, &task.Description, &priority, &status,
		&archived, &task.AssignedTo, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	task.Priority = models.Priority(priority)
	task.Status = models.Status(status)
	task.Archived = archived != 0
	return task, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT id, title, description, priority, status, archived, assigned_to, created_at, updated_at FROM tasks`
	var conditions []string
	var args []any

	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, "assigned_to = ?")
		args = append(args, *filter.AssignedTo)
	}
	if filter.Archived != nil {
		conditions = append(conditions, "archived = ?")
		args = append(args, boolToInt(*filter.Archived))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY
		CASE priority WHEN 'Red' THEN 0 WHEN 'Orange' THEN 1 WHEN 'Yellow' THEN 2 WHEN 'Green' THEN 3 WHEN 'Blue' THEN 4 ELSE 5 END,
		id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var priority, status string
		var archived int

		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &priority, &status,
			&archived, &task.AssignedTo, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}

		task.Priority = models.Priority(priority)
		task.Status = models.Status(status)
		task.Archived = archived != 0
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial patch and stamps updated_at. There is no
// version check: concurrent updates to the same task last-write-win.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id int64, patch TaskPatch) error {
	var updates []string
	var args []any

	if patch.Title != nil {
		updates = append(updates, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		updates = append(updates, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Priority != nil {
		updates = append(updates, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	if patch.AssignedTo != nil {
		updates = append(updates, "assigned_to = ?")
		args = append(args, *patch.AssignedTo)
	}

	updates = append(updates, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(updates, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// CloseTask marks a task done and archived in a single statement.
func (s *SQLiteStore) CloseTask(ctx context.Context, id int64) error {
	return s.setLifecycle(ctx, id, models.StatusDone, true)
}

// ReopenTask returns an archived task to the active list, resetting both
// status and archived together.
func (s *SQLiteStore) ReopenTask(ctx context.Context, id int64) error {
	return s.setLifecycle(ctx, id, models.StatusIncomplete, false)
}

func (s *SQLiteStore) setLifecycle(ctx context.Context, id int64, status models.Status, archived bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, archived = ?, updated_at = ? WHERE id = ?`,
		string(status), boolToInt(archived), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set task lifecycle: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}
