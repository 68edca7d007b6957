package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiwidesk/kiwi/internal/calendar"
	"github.com/kiwidesk/kiwi/internal/db"
	"github.com/kiwidesk/kiwi/internal/grade"
	"github.com/kiwidesk/kiwi/internal/models"
	"gorm.io/gorm"
)

const nextCoursesLimit = 5

var errNoFeed = errors.New("hyperplanning url not configured")

type importGradesRequest struct {
	Grades []grade.Input `json:"grades" binding:"required,min=1,max=100"`
}

func (h *handler) events(ctx context.Context) ([]calendar.Event, error) {
	if h.feed == nil {
		return nil, errNoFeed
	}
	return h.feed.Events(ctx)
}

// feedFailed answers a calendar failure with a fixed message.
func (h *handler) feedFailed(c *gin.Context, op, detail string, err error) {
	h.log.Error("hyperplanning: "+op+" failed", "err", err)
	c.JSON(http.StatusInternalServerError, errorBody{Detail: detail, Type: "HTTPException"})
}

func (h *handler) handleCourses() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := h.events(c.Request.Context())
		if err != nil {
			h.feedFailed(c, "courses", "Failed to fetch courses from Hyperplanning", err)
			return
		}
		day := calendar.Courses(events, h.now(), h.feed.Location())
		h.log.Info("hyperplanning: courses", "date", day.Date, "count", len(day.Courses))
		c.JSON(http.StatusOK, day)
	}
}

func (h *handler) handleNextCourses() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := h.events(c.Request.Context())
		if err != nil {
			h.feedFailed(c, "next courses", "Failed to fetch next courses", err)
			return
		}
		c.JSON(http.StatusOK, calendar.NextCourses(events, h.now(), nextCoursesLimit))
	}
}

func (h *handler) handleCourseStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := h.events(c.Request.Context())
		if err != nil {
			h.feedFailed(c, "stats", "Failed to fetch Hyperplanning statistics", err)
			return
		}
		c.JSON(http.StatusOK, calendar.Stats(events, h.now()))
	}
}

func (h *handler) handleListGrades() gin.HandlerFunc {
	return func(c *gin.Context) {
		var grades []models.Grade
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			grades, err = grade.List(tx)
			return err
		})
		if err != nil {
			h.respondError(c, "grades: list", http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, grade.Views(grades))
	}
}

func (h *handler) handleCreateGrade() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in grade.Input
		if err := bindJSON(c, &in); err != nil {
			h.respondError(c, "grades: create", http.StatusUnprocessableEntity, err)
			return
		}
		var g *models.Grade
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			g, err = grade.Create(tx, in)
			return err
		})
		if err != nil {
			h.respondError(c, "grades: create", http.StatusUnprocessableEntity, err)
			return
		}
		h.log.Info("grades: created", "id", g.ID, "subject", g.Subject)
		c.JSON(http.StatusCreated, grade.View(g))
	}
}

func (h *handler) handleImportGrades() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req importGradesRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, "grades: import", http.StatusUnprocessableEntity, err)
			return
		}
		var count int
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			count, err = grade.Replace(tx, req.Grades)
			return err
		})
		if err != nil {
			h.respondError(c, "grades: import", http.StatusUnprocessableEntity, err)
			return
		}
		h.log.Info("grades: imported", "count", count)
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("%d grade(s) imported successfully", count),
			"count":   count,
		})
	}
}

func (h *handler) handleClearGrades() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		err := db.Scope(c.Request.Context(), h.db, func(tx *gorm.DB) error {
			var err error
			count, err = grade.Clear(tx)
			return err
		})
		if err != nil {
			h.respondError(c, "grades: clear", http.StatusBadRequest, err)
			return
		}
		h.log.Info("grades: cleared", "count", count)
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("%d grade(s) deleted", count),
			"count":   count,
		})
	}
}
