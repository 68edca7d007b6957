package calendar

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// AllDayLabel replaces the start time of all-day events.
const AllDayLabel = "Toute la journée"

// Defaults for fields the feed leaves out.
const (
	DefaultTeacher = "Inconnu"
	DefaultType    = "Cours"
)

// ScanDays is how far ahead Courses looks for a day with events.
const ScanDays = 7

var (
	frenchDays   = [...]string{"Dimanche", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"}
	frenchMonths = [...]string{"Jan", "Fév", "Mars", "Avr", "Mai", "Juin", "Juil", "Août", "Sept", "Oct", "Nov", "Déc"}
)

// Course is the client view of an event.
type Course struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Room     string `json:"room"`
	Teacher  string `json:"teacher"`
	Type     string `json:"type"`
	RawStart string `json:"raw_start"`
	RawEnd   string `json:"raw_end"`
}

// Day is the course list for one calendar day.
type Day struct {
	Date        string   `json:"date"`
	DisplayDate string   `json:"display_date"`
	Courses     []Course `json:"courses"`
}

// SubjectStats totals a subject's hours, rounded to one decimal.
type SubjectStats struct {
	Subject string  `json:"subject"`
	Done    float64 `json:"done"`
	Planned float64 `json:"planned"`
	Total   float64 `json:"total"`
}

// descriptionField returns the rest of the line following label, or "".
func descriptionField(desc, label string) string {
	_, rest, ok := strings.Cut(desc, label)
	if !ok {
		return ""
	}
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(line)
}

// Course shapes e for clients.
func (e Event) Course() Course {
	c := Course{
		ID:       e.UID,
		Subject:  e.Summary,
		Room:     e.Location,
		Teacher:  DefaultTeacher,
		Type:     DefaultType,
		RawStart: e.Start.Format(time.RFC3339),
		RawEnd:   e.End.Format(time.RFC3339),
	}
	if e.AllDay {
		c.Start = AllDayLabel
	} else {
		c.Start = e.Start.Format("15:04")
		c.End = e.End.Format("15:04")
	}
	if v := descriptionField(e.Description, "Enseignant :"); v != "" {
		c.Teacher = v
	}
	if v := descriptionField(e.Description, "Type :"); v != "" {
		c.Type = v
	}
	return c
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
}

// DisplayDate labels day relative to today in French.
func DisplayDate(day, today time.Time) string {
	if sameDay(day, today) {
		return "Aujourd'hui"
	}
	return fmt.Sprintf("%s %d %s", frenchDays[day.Weekday()], day.Day(), frenchMonths[day.Month()-1])
}

// Courses returns the courses of the first day, from now's date through
// ScanDays days later in loc, that has any. Without any, it returns an
// empty list for today.
func Courses(events []Event, now time.Time, loc *time.Location) Day {
	today := now.In(loc)
	for i := 0; i <= ScanDays; i++ {
		day := today.AddDate(0, 0, i)
		var matched []Event
		for _, e := range events {
			if sameDay(e.Start.In(loc), day) {
				matched = append(matched, e)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sortByStart(matched)
		courses := make([]Course, len(matched))
		for j, e := range matched {
			courses[j] = e.Course()
		}
		return Day{Date: day.Format("2006-01-02"), DisplayDate: DisplayDate(day, today), Courses: courses}
	}
	return Day{Date: today.Format("2006-01-02"), DisplayDate: DisplayDate(today, today), Courses: []Course{}}
}

// NextCourses returns up to n events starting after now, soonest first.
func NextCourses(events []Event, now time.Time, n int) []Course {
	var upcoming []Event
	for _, e := range events {
		if e.Start.After(now) {
			upcoming = append(upcoming, e)
		}
	}
	sortByStart(upcoming)
	if len(upcoming) > n {
		upcoming = upcoming[:n]
	}
	out := make([]Course, len(upcoming))
	for i, e := range upcoming {
		out[i] = e.Course()
	}
	return out
}

// Stats totals timed event hours per subject. Hours of events that ended
// before now count as done, the rest as planned. Subjects are sorted by
// total, largest first.
func Stats(events []Event, now time.Time) []SubjectStats {
	type acc struct{ done, planned float64 }
	bySubject := make(map[string]*acc)
	var order []string
	for _, e := range events {
		if e.AllDay {
			continue
		}
		a, ok := bySubject[e.Summary]
		if !ok {
			a = &acc{}
			bySubject[e.Summary] = a
			order = append(order, e.Summary)
		}
		hours := e.End.Sub(e.Start).Hours()
		if e.End.Before(now) {
			a.done += hours
		} else {
			a.planned += hours
		}
	}

	stats := make([]SubjectStats, 0, len(order))
	for _, name := range order {
		a := bySubject[name]
		stats = append(stats, SubjectStats{
			Subject: name,
			Done:    round1(a.done),
			Planned: round1(a.planned),
			Total:   round1(a.done + a.planned),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Total > stats[j].Total })
	return stats
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
