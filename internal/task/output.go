package task

import (
	"time"

	"github.com/kiwidesk/kiwi/internal/models"
)

// Record is the JSON projection of one task without its children.
type Record struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	Priority    models.Priority    `json:"priority"`
	Status      models.Status      `json:"status"`
	DueDate     *time.Time         `json:"due_date"`
	Tags        *string            `json:"tags"`
	ParentID    *int64             `json:"parent_id"`
	Recurrence  *models.Recurrence `json:"recurrence"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at"`
	NextDueDate *time.Time         `json:"next_due_date,omitempty"`
}

// Out is a task with its direct subtasks.
type Out struct {
	Record
	Subtasks []Child `json:"subtasks"`
}

// Child is a subtask. Its subtasks array is always empty: the hierarchy is
// one level deep.
type Child struct {
	Record
	Subtasks [0]Record `json:"subtasks"`
}

func record(t *models.Task) Record {
	return Record{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Tags:        t.Tags,
		ParentID:    t.ParentID,
		Recurrence:  t.Recurrence,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
		NextDueDate: NextDue(t),
	}
}

// View shapes a task and its loaded subtasks for output.
func View(t *models.Task) Out {
	out := Out{Record: record(t), Subtasks: make([]Child, 0, len(t.Subtasks))}
	for i := range t.Subtasks {
		out.Subtasks = append(out.Subtasks, Child{Record: record(&t.Subtasks[i])})
	}
	return out
}

// Views shapes a list of tasks.
func Views(tasks []models.Task) []Out {
	out := make([]Out, 0, len(tasks))
	for i := range tasks {
		out = append(out, View(&tasks[i]))
	}
	return out
}
