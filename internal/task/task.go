// Package task provides task lifecycle operations: creation, partial update,
// listing with one level of subtasks, cascade delete and summaries.
//
// Every function takes the *gorm.DB of the caller's unit of work; none of
// them opens its own transaction.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	Title       string
	Description *string
	Priority    string // low, normal, high; empty means normal
	DueDate     *time.Time
	Tags        *string
	ParentID    *int64
	Recurrence  string // daily, weekly, monthly; empty means none
}

// UpdateOpts holds a partial update. Nil fields are left unchanged.
type UpdateOpts struct {
	Title       *string
	Description *string // blank clears
	Priority    *string
	Status      *string
	DueDate     *time.Time // zero time clears
	Tags        *string    // blank clears
	ParentID    *int64     // 0 moves the task to top level
	Recurrence  *string    // blank clears
}

// Resource names carried by apperr.NotFoundError.
const (
	ResourceTask   = "task"
	ResourceParent = "parent task"
)

// nowFunc is replaced in tests.
var nowFunc = func() time.Time { return time.Now().UTC() }

// Create validates opts and inserts a new task with status todo.
func Create(db *gorm.DB, opts CreateOpts) (*models.Task, error) {
	title, err := normalizeTitle(opts.Title)
	if err != nil {
		return nil, err
	}
	desc, err := normalizeOptional("description", opts.Description, MaxDescriptionLen)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeOptional("tags", opts.Tags, MaxTagsLen)
	if err != nil {
		return nil, err
	}
	priority := models.PriorityNormal
	if opts.Priority != "" {
		if priority, err = ParsePriority(opts.Priority); err != nil {
			return nil, err
		}
	}
	recurrence, err := ParseRecurrence(opts.Recurrence)
	if err != nil {
		return nil, err
	}

	if opts.ParentID != nil {
		if err := checkParent(db, 0, *opts.ParentID); err != nil {
			return nil, err
		}
	}

	now := nowFunc()
	t := models.Task{
		Title:       title,
		Description: desc,
		Priority:    priority,
		Status:      models.StatusTodo,
		DueDate:     utcPtr(opts.DueDate),
		Tags:        tags,
		ParentID:    opts.ParentID,
		Recurrence:  recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&t).Error; err != nil {
		return nil, apperr.Store("create task", err)
	}
	t.Subtasks = []models.Task{}
	return &t, nil
}

// Get retrieves a task by ID with its direct subtasks attached.
func Get(db *gorm.DB, id int64) (*models.Task, error) {
	var t models.Task
	if err := db.Preload("Subtasks", orderSubtasks).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: ResourceTask, ID: id}
		}
		return nil, apperr.Store(fmt.Sprintf("get task %d", id), err)
	}
	return &t, nil
}

// Update applies the fields present in opts. Moving into done stamps
// CompletedAt; moving out of done clears it. UpdatedAt is always refreshed.
func Update(db *gorm.DB, id int64, opts UpdateOpts) (*models.Task, error) {
	var (
		title      string
		desc, tags *string
		priority   models.Priority
		status     models.Status
		recurrence *models.Recurrence
		err        error
	)
	if opts.Title != nil {
		if title, err = normalizeTitle(*opts.Title); err != nil {
			return nil, err
		}
	}
	if desc, err = normalizeOptional("description", opts.Description, MaxDescriptionLen); err != nil {
		return nil, err
	}
	if tags, err = normalizeOptional("tags", opts.Tags, MaxTagsLen); err != nil {
		return nil, err
	}
	if opts.Priority != nil {
		if priority, err = ParsePriority(*opts.Priority); err != nil {
			return nil, err
		}
	}
	if opts.Status != nil {
		if status, err = ParseStatus(*opts.Status); err != nil {
			return nil, err
		}
	}
	if opts.Recurrence != nil {
		if recurrence, err = ParseRecurrence(*opts.Recurrence); err != nil {
			return nil, err
		}
	}

	var t models.Task
	if err := db.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: ResourceTask, ID: id}
		}
		return nil, apperr.Store(fmt.Sprintf("get task %d for update", id), err)
	}

	if opts.ParentID != nil {
		if *opts.ParentID == 0 {
			t.ParentID = nil
		} else {
			if err := checkParent(db, id, *opts.ParentID); err != nil {
				return nil, err
			}
			parentID := *opts.ParentID
			t.ParentID = &parentID
		}
	}

	now := nowFunc()
	if opts.Title != nil {
		t.Title = title
	}
	if opts.Description != nil {
		t.Description = desc
	}
	if opts.Tags != nil {
		t.Tags = tags
	}
	if opts.Priority != nil {
		t.Priority = priority
	}
	if opts.DueDate != nil {
		if opts.DueDate.IsZero() {
			t.DueDate = nil
		} else {
			t.DueDate = utcPtr(opts.DueDate)
		}
	}
	if opts.Recurrence != nil {
		t.Recurrence = recurrence
	}
	if opts.Status != nil {
		switch {
		case status == models.StatusDone && t.Status != models.StatusDone:
			t.CompletedAt = &now
		case status != models.StatusDone && t.Status == models.StatusDone:
			t.CompletedAt = nil
		}
		t.Status = status
	}
	t.UpdatedAt = now

	if err := db.Save(&t).Error; err != nil {
		return nil, apperr.Store(fmt.Sprintf("update task %d", id), err)
	}
	return Get(db, id)
}

// Delete removes a task and its direct subtasks. It returns the number of
// rows removed.
func Delete(db *gorm.DB, id int64) (int64, error) {
	var t models.Task
	if err := db.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &apperr.NotFoundError{Resource: ResourceTask, ID: id}
		}
		return 0, apperr.Store(fmt.Sprintf("get task %d for delete", id), err)
	}

	var childIDs []int64
	if err := db.Model(&models.Task{}).Where("parent_id = ?", id).Pluck("id", &childIDs).Error; err != nil {
		return 0, apperr.Store(fmt.Sprintf("list subtasks of %d", id), err)
	}
	var removed int64
	if len(childIDs) > 0 {
		res := db.Where("id IN ?", childIDs).Delete(&models.Task{})
		if res.Error != nil {
			return 0, apperr.Store(fmt.Sprintf("delete subtasks of %d", id), res.Error)
		}
		removed = res.RowsAffected
	}
	if err := db.Delete(&t).Error; err != nil {
		return 0, apperr.Store(fmt.Sprintf("delete task %d", id), err)
	}
	return removed + 1, nil
}

// BulkDelete deletes every listed task that exists, each with its direct
// subtasks. Unknown ids are skipped. Ids are taken in order, so a listed
// subtask already removed with its listed parent, or a repeated id, is not
// counted again. It returns the number of tasks deleted by their own id.
func BulkDelete(db *gorm.DB, ids []int64) (int, error) {
	if err := validateIDs(ids); err != nil {
		return 0, err
	}

	var rows []struct {
		ID       int64
		ParentID *int64
	}
	if err := db.Model(&models.Task{}).Select("id, parent_id").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return 0, apperr.Store("bulk delete: match ids", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	parentOf := make(map[int64]int64, len(rows))
	matched := make([]int64, 0, len(rows))
	for _, r := range rows {
		var p int64
		if r.ParentID != nil {
			p = *r.ParentID
		}
		parentOf[r.ID] = p
		matched = append(matched, r.ID)
	}

	removed := make(map[int64]bool, len(rows))
	count := 0
	for _, id := range ids {
		if _, ok := parentOf[id]; !ok || removed[id] {
			continue
		}
		count++
		removed[id] = true
		for child, parent := range parentOf {
			if parent == id {
				removed[child] = true
			}
		}
	}

	if err := db.Where("parent_id IN ?", matched).Delete(&models.Task{}).Error; err != nil {
		return 0, apperr.Store("bulk delete: subtasks", err)
	}
	if err := db.Where("id IN ?", matched).Delete(&models.Task{}).Error; err != nil {
		return 0, apperr.Store("bulk delete: tasks", err)
	}
	return count, nil
}

// checkParent verifies that parentID may parent task id (0 for a task not
// yet created). Parents must exist and be top-level, a task cannot parent
// itself, and a task that has subtasks cannot become one. Together these
// keep the tree one level deep, so no cycle can form.
func checkParent(db *gorm.DB, id, parentID int64) error {
	if id != 0 && parentID == id {
		return apperr.Invalid("parent_id", "a task cannot be its own parent")
	}

	var parent models.Task
	if err := db.Where("id = ?", parentID).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperr.NotFoundError{Resource: ResourceParent, ID: parentID}
		}
		return apperr.Store(fmt.Sprintf("check parent %d", parentID), err)
	}
	if !parent.IsTopLevel() {
		return apperr.Invalid("parent_id", "task %d is a subtask and cannot have subtasks", parentID)
	}

	if id != 0 {
		var children int64
		if err := db.Model(&models.Task{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return apperr.Store(fmt.Sprintf("count subtasks of %d", id), err)
		}
		if children > 0 {
			return apperr.Invalid("parent_id", "task %d has subtasks and cannot become a subtask", id)
		}
	}
	return nil
}

// utcPtr stores timestamps in UTC so they compare correctly as text in SQLite.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func orderSubtasks(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}
