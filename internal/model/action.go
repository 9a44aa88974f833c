package model

import "time"

// ActionKind is an open set; new kinds may be added without schema changes.
type ActionKind string

const (
	ActionCreated       ActionKind = "created task"
	ActionUpdated       ActionKind = "updated task"
	ActionDeleted       ActionKind = "deleted task"
	ActionSmartAssigned ActionKind = "smart assigned"
)

// Action is an activity feed entry. TaskTitle is a snapshot and outlives the task.
type Action struct {
	ID        string     `json:"id"`
	User      string     `json:"user"`
	Action    ActionKind `json:"action"`
	TaskTitle string     `json:"taskTitle"`
	Timestamp time.Time  `json:"timestamp"`
}
