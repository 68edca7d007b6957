package task

import (
	"testing"
	"time"

	"github.com/kiwidesk/kiwi/internal/models"
)

func TestNextOccurrence(t *testing.T) {
	at := func(y int, m time.Month, d, h, min int) time.Time {
		return time.Date(y, m, d, h, min, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		due  time.Time
		rec  models.Recurrence
		want time.Time
	}{
		{"daily", at(2026, 3, 10, 8, 30), models.RecurrenceDaily, at(2026, 3, 11, 8, 30)},
		{"daily across month", at(2026, 1, 31, 23, 0), models.RecurrenceDaily, at(2026, 2, 1, 23, 0)},
		{"weekly", at(2026, 3, 10, 8, 30), models.RecurrenceWeekly, at(2026, 3, 17, 8, 30)},
		{"monthly", at(2026, 3, 10, 8, 30), models.RecurrenceMonthly, at(2026, 4, 10, 8, 30)},
		{"monthly skips short months", at(2026, 1, 31, 9, 0), models.RecurrenceMonthly, at(2026, 3, 31, 9, 0)},
		{"monthly across year", at(2026, 12, 5, 0, 0), models.RecurrenceMonthly, at(2027, 1, 5, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.due, tt.rec)
			if err != nil {
				t.Fatalf("NextOccurrence: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_Unknown(t *testing.T) {
	if _, err := NextOccurrence(time.Now(), models.Recurrence("yearly")); err == nil {
		t.Fatal("expected error for unknown recurrence")
	}
}

func TestNextDue(t *testing.T) {
	due := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	daily := models.RecurrenceDaily

	if got := NextDue(&models.Task{DueDate: &due}); got != nil {
		t.Errorf("non-recurring NextDue = %v, want nil", got)
	}
	if got := NextDue(&models.Task{Recurrence: &daily}); got != nil {
		t.Errorf("undated NextDue = %v, want nil", got)
	}
	got := NextDue(&models.Task{DueDate: &due, Recurrence: &daily})
	if got == nil || !got.Equal(due.AddDate(0, 0, 1)) {
		t.Errorf("NextDue = %v, want %v", got, due.AddDate(0, 0, 1))
	}
}
