package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskPatch_AssignedToTriState(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		wantID  *string
	}{
		{"absent", `{"title":"x"}`, false, nil},
		{"null", `{"assignedTo":null}`, true, nil},
		{"empty string", `{"assignedTo":""}`, true, nil},
		{"id", `{"assignedTo":"u1"}`, true, strPtr("u1")},
		{"resolved user object", `{"assignedTo":{"id":"u2","username":"bob"}}`, true, strPtr("u2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p TaskPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.wantSet, p.AssignedTo.Set)
			assert.Equal(t, tt.wantID, p.AssignedTo.Value)
		})
	}
}

func TestTaskPatch_RejectsBadAssignee(t *testing.T) {
	var p TaskPatch
	assert.Error(t, json.Unmarshal([]byte(`{"assignedTo":42}`), &p))
}

func TestTaskPatch_Apply(t *testing.T) {
	task := Task{
		Title:      "old",
		Status:     StatusTodo,
		Priority:   PriorityLow,
		AssignedTo: strPtr("u1"),
		Assignee:   &UserRef{ID: "u1", Username: "alice"},
	}

	status := StatusDone
	TaskPatch{Status: &status}.Apply(&task)
	assert.Equal(t, StatusDone, task.Status)
	assert.Equal(t, "old", task.Title)
	require.NotNil(t, task.AssignedTo, "absent assignee is left alone")

	TaskPatch{AssignedTo: SetID(nil)}.Apply(&task)
	assert.Nil(t, task.AssignedTo)
	assert.Nil(t, task.Assignee)
}

func TestTaskPatch_StaleAgainst(t *testing.T) {
	stored := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	before := stored.Add(-time.Millisecond)
	after := stored.Add(time.Millisecond)

	assert.False(t, TaskPatch{}.StaleAgainst(stored), "no observed stamp")
	assert.True(t, TaskPatch{LastModifiedAt: &before}.StaleAgainst(stored))
	assert.False(t, TaskPatch{LastModifiedAt: &stored}.StaleAgainst(stored))
	assert.False(t, TaskPatch{LastModifiedAt: &after}.StaleAgainst(stored))
}

func TestStamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, base, Stamp(base.Add(300*time.Microsecond), time.Time{}), "truncated to ms")
	assert.Equal(t, base.Add(time.Second), Stamp(base.Add(time.Second), base))
	assert.Equal(t, base.Add(time.Millisecond), Stamp(base, base), "clock did not move")
	assert.Equal(t, base.Add(time.Millisecond), Stamp(base.Add(-time.Hour), base), "clock went back")
}

func TestTaskFilter_Match(t *testing.T) {
	assigned := Task{Status: StatusInProgress, AssignedTo: strPtr("u1")}
	done := Task{Status: StatusDone, AssignedTo: strPtr("u1")}
	unassigned := Task{Status: StatusTodo}

	f := ActiveAssigned()
	assert.True(t, f.Match(assigned))
	assert.False(t, f.Match(done))
	assert.False(t, f.Match(unassigned))
	assert.True(t, TaskFilter{}.Match(done))
}

func TestNewTask_ApplyDefaults(t *testing.T) {
	in := NewTask{Title: "x", AssignedTo: strPtr("  ")}
	in.ApplyDefaults()
	assert.Equal(t, StatusTodo, in.Status)
	assert.Equal(t, PriorityMedium, in.Priority)
	assert.Nil(t, in.AssignedTo)
}

func strPtr(s string) *string { return &s }
