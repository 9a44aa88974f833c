package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/BuzzLyutic/collab-board/internal/model"
)

// OpenSQLite opens (and creates if needed) a SQLite database and applies the schema.
// A single connection is used: SQLite has one writer, and it makes every
// transaction below serializable with respect to the others.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

type SQLiteTaskRepo struct {
	db *sql.DB
}

func NewSQLiteTaskRepo(db *sql.DB) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (model.Task, error) {
	var (
		t                model.Task
		status, priority string
		assignedTo       sql.NullString
		modifiedAt       int64
		createdAt        int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &assignedTo,
		&t.LastModifiedBy, &modifiedAt, &createdAt); err != nil {
		return t, err
	}
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	if assignedTo.Valid {
		id := assignedTo.String
		t.AssignedTo = &id
	}
	t.LastModifiedAt = fromMillis(modifiedAt)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func nullable(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.LastModifiedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, assigned_to,
			last_modified_by, last_modified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), nullable(t.AssignedTo),
		t.LastModifiedBy, toMillis(t.LastModifiedAt), toMillis(t.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return t, ErrorConflict
		}
		return t, fmt.Errorf("insert task: %w", err)
	}
	return r.Get(ctx, t.ID)
}

func (r *SQLiteTaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	t, err := scanSQLiteTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *SQLiteTaskRepo) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		marks := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			marks = append(marks, "?")
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.AssignedOnly {
		where = append(where, "assigned_to IS NOT NULL")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, id string, mutate MutateFunc) (model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := scanSQLiteTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrorNotFound
	}
	if err != nil {
		return t, fmt.Errorf("query task: %w", err)
	}

	if err := mutate(&t); err != nil {
		return t, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, assigned_to = ?,
			last_modified_by = ?, last_modified_at = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), nullable(t.AssignedTo),
		t.LastModifiedBy, toMillis(t.LastModifiedAt), id,
	)
	if err != nil {
		return t, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return t, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id string) (model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := scanSQLiteTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrorNotFound
	}
	if err != nil {
		return t, fmt.Errorf("query task: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return t, fmt.Errorf("delete task: %w", err)
	}
	return t, tx.Commit()
}

func (r *SQLiteTaskRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, resource_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO NOTHING`,
		key, resourceID, toMillis(time.Now()),
	)
	return err
}

func (r *SQLiteTaskRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT resource_id FROM idempotency_keys WHERE key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrorNotFound
	}
	return id, err
}

func (r *SQLiteTaskRepo) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: make(map[model.Status]int)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), SUM(CASE WHEN assigned_to IS NULL THEN 1 ELSE 0 END)
		FROM tasks
		GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status            string
			count, unassigned int
		)
		if err := rows.Scan(&status, &count, &unassigned); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[model.Status(status)] = count
		stats.Unassigned += unassigned
		stats.TotalTasks += count
	}
	return stats, rows.Err()
}

type SQLiteActionRepo struct {
	db *sql.DB
}

func NewSQLiteActionRepo(db *sql.DB) *SQLiteActionRepo {
	return &SQLiteActionRepo{db: db}
}

func (r *SQLiteActionRepo) Append(ctx context.Context, a model.Action) (model.Action, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Timestamp = a.Timestamp.UTC().Truncate(time.Millisecond)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actions (id, actor, action, task_title, timestamp) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.User, string(a.Action), a.TaskTitle, toMillis(a.Timestamp),
	)
	if err != nil {
		return a, fmt.Errorf("insert action: %w", err)
	}
	return a, nil
}

func (r *SQLiteActionRepo) Recent(ctx context.Context, limit int) ([]model.Action, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, task_title, timestamp
		FROM actions
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := make([]model.Action, 0, limit)
	for rows.Next() {
		var (
			a    model.Action
			kind string
			ts   int64
		)
		if err := rows.Scan(&a.ID, &a.User, &kind, &a.TaskTitle, &ts); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Action = model.ActionKind(kind)
		a.Timestamp = fromMillis(ts)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

type SQLiteUserRepo struct {
	db *sql.DB
}

func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

func (r *SQLiteUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, toMillis(u.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return u, ErrorConflict
		}
		return u, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *SQLiteUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var (
		u  model.User
		ts int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrorNotFound
	}
	u.CreatedAt = fromMillis(ts)
	return u, err
}

func (r *SQLiteUserRepo) GetMany(ctx context.Context, ids []string) (map[string]model.User, error) {
	users := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id IN (`+strings.Join(marks, ", ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u  model.User
			ts int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &ts); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = fromMillis(ts)
		users[u.ID] = u
	}
	return users, rows.Err()
}
