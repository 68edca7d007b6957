package task

import (
	"strings"
	"unicode/utf8"

	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/models"
)

// Field limits.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
	MaxTagsLen        = 500
	MaxQueryLen       = 200
	DefaultLimit      = 50
	MaxLimit          = 100
	MaxBulkIDs        = 100
)

// ParseStatus converts s into a Status or returns a ValidationError naming
// the allowed set.
func ParseStatus(s string) (models.Status, error) {
	st := models.Status(s)
	if !st.Valid() {
		return "", apperr.NotInSet("status", s, models.Statuses)
	}
	return st, nil
}

// ParsePriority converts s into a Priority.
func ParsePriority(s string) (models.Priority, error) {
	p := models.Priority(s)
	if !p.Valid() {
		return "", apperr.NotInSet("priority", s, models.Priorities)
	}
	return p, nil
}

// ParseRecurrence converts s into a Recurrence. The empty string means
// "does not repeat" and yields nil.
func ParseRecurrence(s string) (*models.Recurrence, error) {
	if s == "" {
		return nil, nil
	}
	r := models.Recurrence(s)
	if !r.Valid() {
		return nil, apperr.NotInSet("recurrence", s, models.Recurrences)
	}
	return &r, nil
}

func normalizeTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Invalid("title", "must not be empty")
	}
	if n := utf8.RuneCountInString(s); n > MaxTitleLen {
		return "", apperr.Invalid("title", "must be at most %d characters, got %d", MaxTitleLen, n)
	}
	return s, nil
}

// normalizeOptional trims s and maps blank to nil.
func normalizeOptional(field string, s *string, max int) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if n := utf8.RuneCountInString(v); n > max {
		return nil, apperr.Invalid(field, "must be at most %d characters, got %d", max, n)
	}
	return &v, nil
}

func validateIDs(ids []int64) error {
	if len(ids) == 0 {
		return apperr.Invalid("ids", "at least one id is required")
	}
	if len(ids) > MaxBulkIDs {
		return apperr.Invalid("ids", "at most %d ids allowed, got %d", MaxBulkIDs, len(ids))
	}
	return nil
}
