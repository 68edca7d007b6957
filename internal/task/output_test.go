package task

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kiwidesk/kiwi/internal/models"
)

func TestView_JSONShape(t *testing.T) {
	parentID := int64(1)
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	tk := &models.Task{
		ID: 1, Title: "Plan trip", Priority: models.PriorityNormal, Status: models.StatusTodo,
		CreatedAt: created, UpdatedAt: created,
		Subtasks: []models.Task{
			{ID: 2, Title: "Book flights", Priority: models.PriorityHigh, Status: models.StatusTodo, ParentID: &parentID, CreatedAt: created, UpdatedAt: created},
		},
	}

	data, err := json.Marshal(View(tk))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{
		"id", "title", "description", "priority", "status", "due_date", "tags",
		"parent_id", "recurrence", "created_at", "updated_at", "completed_at", "subtasks",
	} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := got["next_due_date"]; ok {
		t.Errorf("next_due_date present for non-recurring task: %s", data)
	}

	subs, ok := got["subtasks"].([]any)
	if !ok || len(subs) != 1 {
		t.Fatalf("subtasks = %v", got["subtasks"])
	}
	child := subs[0].(map[string]any)
	if child["parent_id"].(float64) != 1 {
		t.Errorf("child parent_id = %v", child["parent_id"])
	}
	if inner, ok := child["subtasks"].([]any); !ok || len(inner) != 0 {
		t.Errorf("child subtasks = %v, want empty array", child["subtasks"])
	}
}

func TestView_EmptySubtasksIsArray(t *testing.T) {
	data, err := json.Marshal(View(&models.Task{ID: 3, Title: "solo"}))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"subtasks":[]`) {
		t.Errorf("subtasks not an empty array: %s", data)
	}
}

func TestView_NextDueDate(t *testing.T) {
	due := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	weekly := models.RecurrenceWeekly
	out := View(&models.Task{ID: 4, Title: "standup notes", DueDate: &due, Recurrence: &weekly})
	if out.NextDueDate == nil || !out.NextDueDate.Equal(due.AddDate(0, 0, 7)) {
		t.Errorf("NextDueDate = %v", out.NextDueDate)
	}
}
