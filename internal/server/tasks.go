package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/db"
	"github.com/kiwidesk/kiwi/internal/models"
	"github.com/kiwidesk/kiwi/internal/task"
	"gorm.io/gorm"
)

type listTasksQuery struct {
	Q        string `form:"q"`
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Sort     string `form:"sort"`
	Limit    *int   `form:"limit"`
	Offset   int    `form:"offset"`
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        *string    `json:"tags"`
	ParentID    *int64     `json:"parent_id"`
	Recurrence  string     `json:"recurrence"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	Tags        *string    `json:"tags"`
	ParentID    *int64     `json:"parent_id"`
	Recurrence  *string    `json:"recurrence"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,max=100"`
}

func taskID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperr.Invalid("id", "must be an integer, got %q", c.Param("id"))
	}
	return id, nil
}

func (h *handler) handleListTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listTasksQuery
		if err := bindQuery(c, &q); err != nil {
			h.respondError(c, "tasks: list", http.StatusBadRequest, err)
			return
		}
		opts := task.ListOpts{
			Query:    q.Q,
			Status:   q.Status,
			Priority: q.Priority,
			Sort:     q.Sort,
			Limit:    task.DefaultLimit,
			Offset:   q.Offset,
		}
		if q.Limit != nil {
			opts.Limit = *q.Limit
		}

		var tasks []models.Task
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			tasks, err = task.List(tx, opts)
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: list", http.StatusBadRequest, err)
			return
		}
		h.log.Info("tasks: listed", "count", len(tasks), "q", q.Q, "status", q.Status, "priority", q.Priority)
		c.JSON(http.StatusOK, task.Views(tasks))
	}
}

func (h *handler) handleCreateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, "tasks: create", http.StatusUnprocessableEntity, err)
			return
		}

		var t *models.Task
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			t, err = task.Create(tx, task.CreateOpts{
				Title:       req.Title,
				Description: req.Description,
				Priority:    req.Priority,
				DueDate:     req.DueDate,
				Tags:        req.Tags,
				ParentID:    req.ParentID,
				Recurrence:  req.Recurrence,
			})
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: create", http.StatusUnprocessableEntity, err)
			return
		}
		h.log.Info("tasks: created", "id", t.ID, "title", t.Title)
		c.JSON(http.StatusCreated, task.View(t))
	}
}

func (h *handler) handleGetTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := taskID(c)
		if err != nil {
			h.respondError(c, "tasks: get", http.StatusUnprocessableEntity, err)
			return
		}

		var t *models.Task
		err = db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			t, err = task.Get(tx, id)
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: get", http.StatusUnprocessableEntity, err)
			return
		}
		c.JSON(http.StatusOK, task.View(t))
	}
}

func (h *handler) handleUpdateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := taskID(c)
		if err != nil {
			h.respondError(c, "tasks: update", http.StatusUnprocessableEntity, err)
			return
		}
		var req updateTaskRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, "tasks: update", http.StatusUnprocessableEntity, err)
			return
		}

		var t *models.Task
		err = db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			t, err = task.Update(tx, id, task.UpdateOpts{
				Title:       req.Title,
				Description: req.Description,
				Priority:    req.Priority,
				Status:      req.Status,
				DueDate:     req.DueDate,
				Tags:        req.Tags,
				ParentID:    req.ParentID,
				Recurrence:  req.Recurrence,
			})
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: update", http.StatusUnprocessableEntity, err)
			return
		}
		h.log.Info("tasks: updated", "id", id)
		c.JSON(http.StatusOK, task.View(t))
	}
}

func (h *handler) handleDeleteTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := taskID(c)
		if err != nil {
			h.respondError(c, "tasks: delete", http.StatusUnprocessableEntity, err)
			return
		}

		var removed int64
		err = db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			removed, err = task.Delete(tx, id)
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: delete", http.StatusUnprocessableEntity, err)
			return
		}
		h.log.Info("tasks: deleted", "id", id, "rows", removed)
		c.Status(http.StatusNoContent)
	}
}

func (h *handler) handleBulkDeleteTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkDeleteRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, "tasks: bulk delete", http.StatusUnprocessableEntity, err)
			return
		}

		var count int
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			count, err = task.BulkDelete(tx, req.IDs)
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: bulk delete", http.StatusUnprocessableEntity, err)
			return
		}
		h.log.Info("tasks: bulk deleted", "count", count, "requested", len(req.IDs))
		c.Status(http.StatusNoContent)
	}
}

func (h *handler) handleTaskStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats *task.Stats
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			stats, err = task.Summary(tx)
			return err
		})
		if err != nil {
			h.respondError(c, "tasks: stats", http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
