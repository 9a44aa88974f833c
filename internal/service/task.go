package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/assign"
	"github.com/BuzzLyutic/collab-board/internal/model"
	"github.com/BuzzLyutic/collab-board/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

// ConflictError is returned when an update was based on a stale lastModifiedAt.
// Nothing was written; Current is the stored state the client must reconcile with.
type ConflictError struct {
	Current   model.Task
	Attempted model.TaskPatch
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: task %s was modified at %s by %s",
		e.Current.ID, e.Current.LastModifiedAt.Format(time.RFC3339Nano), e.Current.LastModifiedBy)
}

func (e *ConflictError) Unwrap() error { return repo.ErrorConflict }

type Stats struct {
	repo.Stats
	Load map[string]int `json:"load"`
}

type TaskService struct {
	tasks    repo.TaskRepository
	actions  repo.ActionRepository
	users    repo.UserRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*TaskService)

func WithNotifier(n Notifier) Option {
	return func(s *TaskService) { s.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *TaskService) { s.logger = l }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(tasks repo.TaskRepository, actions repo.ActionRepository, users repo.UserRepository, opts ...Option) *TaskService {
	s := &TaskService{
		tasks:    tasks,
		actions:  actions,
		users:    users,
		notifier: NopNotifier{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx, model.TaskFilter{})
	if err != nil {
		return nil, err
	}
	s.resolveAssignees(ctx, tasks)
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return t, err
	}
	return s.resolveOne(ctx, t), nil
}

func (s *TaskService) Create(ctx context.Context, in model.NewTask, actor string, idempKey string) (model.Task, error) {
	in.ApplyDefaults()
	if err := s.validateNew(in); err != nil { // Валидация введенных данных
		return model.Task{}, err
	}

	if idempKey != "" { // Повтор с тем же ключом возвращает уже созданную задачу
		if existingID, err := s.tasks.GetIdempotencyKey(ctx, idempKey); err == nil {
			t, err := s.tasks.Get(ctx, existingID)
			if err != nil {
				return t, err
			}
			return s.resolveOne(ctx, t), nil
		}
	}

	now := model.Stamp(s.now(), time.Time{})
	created, err := s.tasks.Create(ctx, model.Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		AssignedTo:     in.AssignedTo,
		LastModifiedBy: actor,
		LastModifiedAt: now,
		CreatedAt:      now,
	})
	if err != nil {
		return created, fmt.Errorf("create task: %w", err)
	}

	if idempKey != "" {
		if err := s.tasks.SaveIdempotencyKey(ctx, idempKey, created.ID); err != nil {
			s.logger.Warn("failed to save idempotency key", zap.String("key", idempKey), zap.Error(err))
		}
	}

	if err := s.publish(ctx, actor, model.ActionCreated, created.Title); err != nil {
		return created, err
	}
	return s.resolveOne(ctx, created), nil
}

// Update applies a partial change. When patch.LastModifiedAt is set and older
// than the stored stamp the write is rejected with *ConflictError. The check
// runs inside the repository's locked update, so it sees what gets persisted.
func (s *TaskService) Update(ctx context.Context, id string, patch model.TaskPatch, actor string) (model.Task, error) {
	if err := s.validatePatch(patch); err != nil {
		return model.Task{}, err
	}

	updated, err := s.tasks.Update(ctx, id, func(t *model.Task) error {
		if patch.StaleAgainst(t.LastModifiedAt) {
			return &ConflictError{Current: *t, Attempted: patch}
		}
		patch.Apply(t)
		t.LastModifiedBy = actor
		t.LastModifiedAt = model.Stamp(s.now(), t.LastModifiedAt)
		return nil
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			conflict.Current = s.resolveOne(ctx, conflict.Current)
			s.logger.Info("stale update rejected",
				zap.String("task_id", id),
				zap.String("actor", actor),
				zap.Time("stored_at", conflict.Current.LastModifiedAt),
				zap.Timep("observed_at", patch.LastModifiedAt),
			)
		}
		return updated, err
	}

	if err := s.publish(ctx, actor, model.ActionUpdated, updated.Title); err != nil {
		return updated, err
	}
	return s.resolveOne(ctx, updated), nil
}

// Delete is idempotent: a missing task is not an error and logs no action.
func (s *TaskService) Delete(ctx context.Context, id string, actor string) (bool, error) {
	deleted, err := s.tasks.Delete(ctx, id)
	if errors.Is(err, repo.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	return true, s.publish(ctx, actor, model.ActionDeleted, deleted.Title)
}

// SmartAssign gives the task to the assignee with the fewest active tasks,
// or leaves it unassigned when nobody carries any load. The write is made by
// the system actor and skips the conflict check.
func (s *TaskService) SmartAssign(ctx context.Context, id string) (model.Task, error) {
	active, err := s.tasks.List(ctx, model.ActiveAssigned())
	if err != nil {
		return model.Task{}, fmt.Errorf("load active tasks: %w", err)
	}

	var assignee *string
	if userID, ok := assign.LeastLoaded(assign.Load(active)); ok {
		assignee = &userID
	}

	updated, err := s.tasks.Update(ctx, id, func(t *model.Task) error {
		t.AssignedTo = assignee
		t.Assignee = nil
		t.LastModifiedBy = model.SystemActor
		t.LastModifiedAt = model.Stamp(s.now(), t.LastModifiedAt)
		return nil
	})
	if err != nil {
		return updated, err
	}

	s.logger.Debug("smart assigned",
		zap.String("task_id", id),
		zap.Stringp("assigned_to", assignee),
		zap.Int("active_tasks", len(active)),
	)

	if err := s.publish(ctx, model.SystemActor, model.ActionSmartAssigned, updated.Title); err != nil {
		return updated, err
	}
	return s.resolveOne(ctx, updated), nil
}

func (s *TaskService) GetStats(ctx context.Context) (Stats, error) {
	stats, err := s.tasks.GetStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	active, err := s.tasks.List(ctx, model.ActiveAssigned())
	if err != nil {
		return Stats{}, err
	}
	return Stats{Stats: stats, Load: assign.Load(active)}, nil
}

func (s *TaskService) record(ctx context.Context, actor string, kind model.ActionKind, title string) error {
	_, err := s.actions.Append(ctx, model.Action{
		User:      actor,
		Action:    kind,
		TaskTitle: title,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

// publish appends the action and then tells other clients to re-fetch, so
// they see the new entry. Clients are notified even when the append failed:
// the task write already stands.
func (s *TaskService) publish(ctx context.Context, actor string, kind model.ActionKind, title string) error {
	err := s.record(ctx, actor, kind, title)
	s.notify(ctx)
	return err
}

func (s *TaskService) notify(ctx context.Context) {
	s.notifier.Notify(OriginFrom(ctx))
}

func (s *TaskService) resolveOne(ctx context.Context, t model.Task) model.Task {
	tasks := []model.Task{t}
	s.resolveAssignees(ctx, tasks)
	return tasks[0]
}

// resolveAssignees fills Assignee for display. A failed lookup only costs the
// display names, so it is logged rather than returned.
func (s *TaskService) resolveAssignees(ctx context.Context, tasks []model.Task) {
	ids := make([]string, 0, len(tasks))
	seen := make(map[string]bool)
	for _, t := range tasks {
		if t.AssignedTo != nil && !seen[*t.AssignedTo] {
			seen[*t.AssignedTo] = true
			ids = append(ids, *t.AssignedTo)
		}
	}
	if len(ids) == 0 || s.users == nil {
		return
	}

	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve assignees", zap.Error(err))
		return
	}
	for i := range tasks {
		if tasks[i].AssignedTo == nil {
			continue
		}
		if u, ok := users[*tasks[i].AssignedTo]; ok {
			tasks[i].Assignee = u.Ref()
		}
	}
}

func (s *TaskService) validateNew(in model.NewTask) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	return nil
}

func (s *TaskService) validatePatch(p model.TaskPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, *p.Priority)
	}
	return nil
}
