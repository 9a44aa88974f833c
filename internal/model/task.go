package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Active сообщает, учитывается ли задача в нагрузке пользователя.
func (s Status) Active() bool {
	return s == StatusTodo || s == StatusInProgress
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// SystemActor is the identity recorded for writes made by automated logic.
const SystemActor = "system"

type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	AssignedTo     *string   `json:"assignedTo"`
	Assignee       *UserRef  `json:"assignee,omitempty"`
	LastModifiedBy string    `json:"lastModifiedBy"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewTask is the input of a create request.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AssignedTo  *string  `json:"assignedTo"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	User        string   `json:"user"`
}

// ApplyDefaults fills status and priority and normalizes an empty assignee to nil.
func (n *NewTask) ApplyDefaults() {
	if n.Status == "" {
		n.Status = StatusTodo
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.AssignedTo != nil && strings.TrimSpace(*n.AssignedTo) == "" {
		n.AssignedTo = nil
	}
}

type TaskFilter struct {
	Statuses     []Status
	AssignedOnly bool
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t Task) bool {
	if f.AssignedOnly && t.AssignedTo == nil {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// ActiveAssigned selects the tasks that count toward assignment load.
func ActiveAssigned() TaskFilter {
	return TaskFilter{
		Statuses:     []Status{StatusTodo, StatusInProgress},
		AssignedOnly: true,
	}
}

// Stamp returns the next lastModifiedAt for a task whose current stamp is prev.
// Stamps are kept at millisecond precision and always move forward.
func Stamp(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(time.Millisecond)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}
