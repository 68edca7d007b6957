package models

import "time"

// Task is a to-do item. Tasks with a nil ParentID are top-level; subtasks
// hang directly off a top-level task and never nest further.
type Task struct {
	ID          int64       `gorm:"primaryKey;autoIncrement"`
	Title       string      `gorm:"size:200;not null;index"`
	Description *string     `gorm:"type:text"`
	Priority    Priority    `gorm:"size:8;default:normal;index"`
	Status      Status      `gorm:"size:16;default:todo;index"`
	DueDate     *time.Time  `gorm:"index"`
	Tags        *string     `gorm:"size:500"`
	ParentID    *int64      `gorm:"index"`
	Recurrence  *Recurrence `gorm:"size:8;index"`
	CreatedAt   time.Time   `gorm:"index"`
	UpdatedAt   time.Time   `gorm:"index;autoUpdateTime:false"` // stamped by task.Update
	CompletedAt *time.Time

	Subtasks []Task `gorm:"foreignKey:ParentID"`
}

// IsTopLevel reports whether the task has no parent.
func (t *Task) IsTopLevel() bool {
	return t.ParentID == nil
}
