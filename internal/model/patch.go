package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// OptionalID distinguishes an absent field from an explicit null.
type OptionalID struct {
	Set   bool
	Value *string
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id string
	if len(data) > 0 && data[0] == '{' {
		// клиенты могут прислать назад развернутого исполнителя
		var ref UserRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		id = ref.ID
	} else if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == "" {
		o.Value = nil
		return nil
	}
	o.Value = &id
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// SetID returns a present OptionalID; nil means "unassign".
func SetID(id *string) OptionalID {
	return OptionalID{Set: true, Value: id}
}

// TaskPatch is a partial update. Nil pointers are fields the client did not send.
// LastModifiedAt is the stamp the client last observed, not a value to store.
type TaskPatch struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	AssignedTo     OptionalID `json:"assignedTo"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
}

// Apply overwrites the supplied fields of t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssignedTo.Set {
		t.AssignedTo = p.AssignedTo.Value
		t.Assignee = nil
	}
}

// StaleAgainst reports whether the client's observed stamp predates stored.
func (p TaskPatch) StaleAgainst(stored time.Time) bool {
	return p.LastModifiedAt != nil && p.LastModifiedAt.Before(stored)
}
