package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/collab-board/internal/model"
)

type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

func (r *ActionRepo) Append(ctx context.Context, a model.Action) (model.Action, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO actions (id, actor, action, task_title, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.User, string(a.Action), a.TaskTitle, a.Timestamp)
	if err != nil {
		return a, fmt.Errorf("insert action: %w", err)
	}
	return a, nil
}

// Recent возвращает последние действия, новые первыми.
func (r *ActionRepo) Recent(ctx context.Context, limit int) ([]model.Action, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor, action, task_title, timestamp
		FROM actions
		ORDER BY timestamp DESC, seq DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := make([]model.Action, 0, limit)
	for rows.Next() {
		var (
			a    model.Action
			kind string
		)
		if err := rows.Scan(&a.ID, &a.User, &kind, &a.TaskTitle, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Action = model.ActionKind(kind)
		a.Timestamp = a.Timestamp.UTC()
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
