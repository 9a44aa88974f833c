package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/collab-board/internal/model"
)

// Memory keeps the whole board in process memory. It backs the "memory"
// store driver and the service tests.
type Memory struct {
	mu      sync.RWMutex
	tasks   map[string]model.Task
	order   []string
	actions []model.Action
	users   map[string]model.User
	keys    map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		tasks: make(map[string]model.Task),
		users: make(map[string]model.User),
		keys:  make(map[string]string),
	}
}

func cloneTask(t model.Task) model.Task {
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		t.AssignedTo = &id
	}
	t.Assignee = nil
	return t
}

func (m *Memory) Tasks() TaskRepository     { return memoryTasks{m} }
func (m *Memory) Actions() ActionRepository { return memoryActions{m} }
func (m *Memory) Users() UserRepository     { return memoryUsers{m} }

type memoryTasks struct{ m *Memory }

func (r memoryTasks) Create(_ context.Context, t model.Task) (model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := r.m.tasks[t.ID]; ok {
		return t, ErrorConflict
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.LastModifiedAt
	}
	t = cloneTask(t)
	r.m.tasks[t.ID] = t
	r.m.order = append(r.m.order, t.ID)
	return cloneTask(t), nil
}

func (r memoryTasks) Get(_ context.Context, id string) (model.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	t, ok := r.m.tasks[id]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	return cloneTask(t), nil
}

func (r memoryTasks) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.m.order))
	for _, id := range r.m.order {
		t, ok := r.m.tasks[id]
		if !ok || !filter.Match(t) {
			continue
		}
		tasks = append(tasks, cloneTask(t))
	}
	return tasks, nil
}

func (r memoryTasks) Update(_ context.Context, id string, mutate MutateFunc) (model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.tasks[id]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	t := cloneTask(stored)
	if err := mutate(&t); err != nil {
		return cloneTask(stored), err
	}
	t.ID = id
	t = cloneTask(t)
	r.m.tasks[id] = t
	return cloneTask(t), nil
}

func (r memoryTasks) Delete(_ context.Context, id string) (model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.tasks[id]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	delete(r.m.tasks, id)
	for i, oid := range r.m.order {
		if oid == id {
			r.m.order = append(r.m.order[:i], r.m.order[i+1:]...)
			break
		}
	}
	return t, nil
}

func (r memoryTasks) SaveIdempotencyKey(_ context.Context, key string, resourceID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.keys[key]; !ok {
		r.m.keys[key] = resourceID
	}
	return nil
}

func (r memoryTasks) GetIdempotencyKey(_ context.Context, key string) (string, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	id, ok := r.m.keys[key]
	if !ok {
		return "", ErrorNotFound
	}
	return id, nil
}

func (r memoryTasks) GetStats(_ context.Context) (Stats, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	stats := Stats{ByStatus: make(map[model.Status]int)}
	for _, t := range r.m.tasks {
		stats.ByStatus[t.Status]++
		stats.TotalTasks++
		if t.AssignedTo == nil {
			stats.Unassigned++
		}
	}
	return stats, nil
}

type memoryActions struct{ m *Memory }

func (r memoryActions) Append(_ context.Context, a model.Action) (model.Action, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.m.actions = append(r.m.actions, a)
	return a, nil
}

func (r memoryActions) Recent(_ context.Context, limit int) ([]model.Action, error) {
	r.m.mu.RLock()
	actions := make([]model.Action, len(r.m.actions))
	copy(actions, r.m.actions)
	r.m.mu.RUnlock()

	// reverse first so equal timestamps keep newest-appended first
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Timestamp.After(actions[j].Timestamp)
	})
	if limit >= 0 && len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Create(_ context.Context, u model.User) (model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.users {
		if existing.Username == u.Username {
			return u, ErrorConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.m.users[u.ID] = u
	return u, nil
}

func (r memoryUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, u := range r.m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, ErrorNotFound
}

func (r memoryUsers) GetMany(_ context.Context, ids []string) (map[string]model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	users := make(map[string]model.User, len(ids))
	for _, id := range ids {
		if u, ok := r.m.users[id]; ok {
			users[id] = u
		}
	}
	return users, nil
}
