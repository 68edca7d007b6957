// Package grade stores marks imported from the school portal.
package grade

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/models"
	"gorm.io/gorm"
)

// Limits on grade input.
const (
	MaxSubjectLen = 200
	MaxDateLen    = 50
	MinValue      = 0.0
	MaxValue      = 20.0
	MaxImport     = 100
)

// Input is one grade to store.
type Input struct {
	Subject string  `json:"subject" yaml:"subject"`
	Date    string  `json:"date" yaml:"date"`
	Value   float64 `json:"value" yaml:"value"`
}

func (in Input) normalize(prefix string) (models.Grade, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return models.Grade{}, apperr.Invalid(prefix+"subject", "must not be empty")
	}
	if n := utf8.RuneCountInString(subject); n > MaxSubjectLen {
		return models.Grade{}, apperr.Invalid(prefix+"subject", "must be at most %d characters, got %d", MaxSubjectLen, n)
	}
	date := strings.TrimSpace(in.Date)
	if n := utf8.RuneCountInString(date); n > MaxDateLen {
		return models.Grade{}, apperr.Invalid(prefix+"date", "must be at most %d characters, got %d", MaxDateLen, n)
	}
	if math.IsNaN(in.Value) || in.Value < MinValue || in.Value > MaxValue {
		return models.Grade{}, apperr.Invalid(prefix+"value", "must be between %g and %g, got %g", MinValue, MaxValue, in.Value)
	}
	return models.Grade{Subject: subject, Date: date, Value: in.Value}, nil
}

// Create validates in and stores it.
func Create(db *gorm.DB, in Input) (*models.Grade, error) {
	g, err := in.normalize("")
	if err != nil {
		return nil, err
	}
	if err := db.Create(&g).Error; err != nil {
		return nil, apperr.Store("create grade", err)
	}
	return &g, nil
}

// List returns every grade, newest first.
func List(db *gorm.DB) ([]models.Grade, error) {
	var grades []models.Grade
	if err := db.Order("created_at DESC, id DESC").Find(&grades).Error; err != nil {
		return nil, apperr.Store("list grades", err)
	}
	return grades, nil
}

// Replace deletes every stored grade and inserts items in their place. All
// items are validated before the store is touched; run it inside a unit of
// work so a failed insert restores the previous set.
func Replace(db *gorm.DB, items []Input) (int, error) {
	if len(items) == 0 {
		return 0, apperr.Invalid("grades", "at least one grade is required")
	}
	if len(items) > MaxImport {
		return 0, apperr.Invalid("grades", "at most %d grades allowed, got %d", MaxImport, len(items))
	}
	grades := make([]models.Grade, len(items))
	for i, in := range items {
		g, err := in.normalize(fmt.Sprintf("grades[%d].", i))
		if err != nil {
			return 0, err
		}
		grades[i] = g
	}

	if _, err := Clear(db); err != nil {
		return 0, err
	}
	if err := db.Create(&grades).Error; err != nil {
		return 0, apperr.Store("insert grades", err)
	}
	return len(grades), nil
}

// Clear deletes every grade and returns how many were removed.
func Clear(db *gorm.DB) (int64, error) {
	res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Grade{})
	if res.Error != nil {
		return 0, apperr.Store("clear grades", res.Error)
	}
	return res.RowsAffected, nil
}

// Record is the JSON projection of a grade.
type Record struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Date      string    `json:"date"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// View shapes g for output.
func View(g *models.Grade) Record {
	return Record{ID: g.ID, Subject: g.Subject, Date: g.Date, Value: g.Value, CreatedAt: g.CreatedAt}
}

// Views shapes a list of grades; the result is never nil.
func Views(grades []models.Grade) []Record {
	out := make([]Record, 0, len(grades))
	for i := range grades {
		out = append(out, View(&grades[i]))
	}
	return out
}
