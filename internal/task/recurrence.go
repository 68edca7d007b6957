package task

import (
	"fmt"
	"time"

	"github.com/kiwidesk/kiwi/internal/models"
	"github.com/robfig/cron/v3"
)

var recurrenceParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// recurrenceExpr builds the cron expression that fires at due's time of day
// with the given period. Monthly schedules skip months too short for due's
// day of month.
func recurrenceExpr(due time.Time, r models.Recurrence) (string, error) {
	base := fmt.Sprintf("%d %d %d", due.Second(), due.Minute(), due.Hour())
	switch r {
	case models.RecurrenceDaily:
		return base + " * * *", nil
	case models.RecurrenceWeekly:
		return fmt.Sprintf("%s * * %d", base, int(due.Weekday())), nil
	case models.RecurrenceMonthly:
		return fmt.Sprintf("%s %d * *", base, due.Day()), nil
	}
	return "", fmt.Errorf("task: unknown recurrence %q", r)
}

// NextOccurrence returns the first occurrence of a task repeating with r
// strictly after due.
func NextOccurrence(due time.Time, r models.Recurrence) (time.Time, error) {
	expr, err := recurrenceExpr(due, r)
	if err != nil {
		return time.Time{}, err
	}
	sched, err := recurrenceParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("task: parse schedule %q: %w", expr, err)
	}
	next := sched.Next(due)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("task: no occurrence after %s", due.Format(time.RFC3339))
	}
	return next, nil
}

// NextDue returns the next due date of a recurring task, or nil when the task
// does not repeat or has no due date.
func NextDue(t *models.Task) *time.Time {
	if t.Recurrence == nil || t.DueDate == nil {
		return nil
	}
	next, err := NextOccurrence(*t.DueDate, *t.Recurrence)
	if err != nil {
		return nil
	}
	return &next
}
