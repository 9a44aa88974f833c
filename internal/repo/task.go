package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/collab-board/internal/model"
)

const taskColumns = `id, title, description, status, priority, assigned_to,
	last_modified_by, last_modified_at, created_at`

type TaskRepo struct { // Репозиторий задач поверх Postgres
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t                model.Task
		status, priority string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority, &t.AssignedTo,
		&t.LastModifiedBy, &t.LastModifiedAt, &t.CreatedAt,
	)
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	t.LastModifiedAt = t.LastModifiedAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, err
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	created, err := scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, assigned_to,
			last_modified_by, last_modified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.AssignedTo,
		t.LastModifiedBy, t.LastModifiedAt,
	))
	return created, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1))
		  AND (NOT $2 OR assigned_to IS NOT NULL)
		ORDER BY created_at, id
	`, statuses, filter.AssignedOnly)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update держит блокировку строки (FOR UPDATE) от чтения до записи.
func (r *TaskRepo) Update(ctx context.Context, id string, mutate MutateFunc) (model.Task, error) {
	var updated model.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		t, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrorNotFound
		}
		if err != nil {
			return err
		}

		if err := mutate(&t); err != nil {
			return err
		}

		updated, err = scanTask(tx.QueryRow(ctx, `
			UPDATE tasks
			SET title = $2, description = $3, status = $4, priority = $5, assigned_to = $6,
				last_modified_by = $7, last_modified_at = $8
			WHERE id = $1
			RETURNING `+taskColumns,
			id, t.Title, t.Description, string(t.Status), string(t.Priority), t.AssignedTo,
			t.LastModifiedBy, t.LastModifiedAt,
		))
		return err
	})
	return updated, err
}

func (r *TaskRepo) Delete(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, resource_id) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, resourceID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE key = $1
	`, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: make(map[model.Status]int)}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COUNT(*) FILTER (WHERE assigned_to IS NULL)
		FROM tasks
		GROUP BY status
	`)
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

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // unique_violation
			return ErrorConflict
		}
	}
	return err
}
