package repo

import (
	"context"

	"github.com/BuzzLyutic/collab-board/internal/model"
)

// MutateFunc изменяет задачу внутри атомарного обновления. Ошибка отменяет запись.
type MutateFunc func(t *model.Task) error

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	// Update reads the task under a write lock, calls mutate and persists the
	// result. Concurrent updates of the same id are serialized.
	Update(ctx context.Context, id string, mutate MutateFunc) (model.Task, error)
	// Delete removes the task and returns it as it was before removal.
	Delete(ctx context.Context, id string) (model.Task, error)
	SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	GetStats(ctx context.Context) (Stats, error)
}

// ActionRepository - журнал действий, только добавление
type ActionRepository interface {
	Append(ctx context.Context, a model.Action) (model.Action, error)
	Recent(ctx context.Context, limit int) ([]model.Action, error)
}

type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]model.User, error)
}

type Stats struct {
	ByStatus   map[model.Status]int `json:"byStatus"`
	Unassigned int                  `json:"unassigned"`
	TotalTasks int                  `json:"totalTasks"`
}
