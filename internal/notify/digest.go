package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/kiwidesk/kiwi/internal/calendar"
	"github.com/kiwidesk/kiwi/internal/models"
	"github.com/kiwidesk/kiwi/internal/task"
	"gorm.io/gorm"
)

// Digest is the morning summary: open tasks that are overdue or due today,
// and upcoming courses.
type Digest struct {
	Date     time.Time
	Overdue  []models.Task
	DueToday []models.Task
	Courses  []calendar.Course
}

// Empty reports whether there is nothing to announce.
func (d *Digest) Empty() bool {
	return len(d.Overdue) == 0 && len(d.DueToday) == 0 && len(d.Courses) == 0
}

// BuildDigest collects open tasks due before the end of now's day in loc.
// Tasks due before now are overdue. Courses are left for the caller.
func BuildDigest(db *gorm.DB, now time.Time, loc *time.Location) (*Digest, error) {
	local := now.In(loc)
	endOfDay := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)

	tasks, err := task.Agenda(db, endOfDay.Add(-time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("notify: digest: %w", err)
	}
	d := &Digest{Date: local}
	for _, t := range tasks {
		if t.DueDate.Before(now) {
			d.Overdue = append(d.Overdue, t)
		} else {
			d.DueToday = append(d.DueToday, t)
		}
	}
	return d, nil
}

// Format renders d as a chat message.
func (d *Digest) Format() Message {
	var lines []string
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, fmt.Sprintf("**%s** (%d):", title, len(items)))
		for _, it := range items {
			lines = append(lines, "  - "+it)
		}
	}

	var overdue, today, courses []string
	for _, t := range d.Overdue {
		overdue = append(overdue, fmt.Sprintf("%s (due %s)", t.Title, t.DueDate.In(d.Date.Location()).Format("Jan 2 15:04")))
	}
	for _, t := range d.DueToday {
		today = append(today, fmt.Sprintf("%s (%s, %s)", t.Title, t.DueDate.In(d.Date.Location()).Format("15:04"), t.Priority))
	}
	for _, c := range d.Courses {
		when := c.Start
		if c.RawStart != "" {
			if ts, err := time.Parse(time.RFC3339, c.RawStart); err == nil {
				when = ts.In(d.Date.Location()).Format("Mon 15:04")
			}
		}
		courses = append(courses, fmt.Sprintf("%s %s (%s)", when, c.Subject, c.Room))
	}
	section("Overdue", overdue)
	section("Due today", today)
	section("Next courses", courses)
	if len(lines) == 0 {
		lines = append(lines, "Nothing due today.")
	}

	color := ColorSuccess
	switch {
	case len(d.Overdue) > 0:
		color = ColorWarning
	case len(d.DueToday) > 0:
		color = ColorInfo
	}
	return Message{
		Title: "Kiwi digest for " + d.Date.Format("Mon Jan 2"),
		Body:  strings.Join(lines, "\n"),
		Color: color,
		Fields: []Field{
			{Name: "Overdue", Value: fmt.Sprintf("%d", len(d.Overdue)), Short: true},
			{Name: "Due today", Value: fmt.Sprintf("%d", len(d.DueToday)), Short: true},
		},
	}
}
