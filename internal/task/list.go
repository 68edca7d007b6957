package task

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/models"
	"gorm.io/gorm"
)

// DefaultSort lists the newest tasks first.
const DefaultSort = "-created_at"

// ListOpts holds filters, sort and pagination for listing top-level tasks.
type ListOpts struct {
	Query    string // case-insensitive substring of the title
	Status   string
	Priority string
	Sort     string // one of SortKeys, "-" prefix for descending; empty means DefaultSort
	Limit    int    // 1..MaxLimit
	Offset   int
}

// Stats summarizes top-level tasks.
type Stats struct {
	Total      int64                     `json:"total"`
	ByStatus   map[models.Status]int64   `json:"by_status"`
	ByPriority map[models.Priority]int64 `json:"by_priority"`
}

// sortColumns maps each sort key to its ORDER BY expression. Priority and
// status order by rank rather than alphabetically.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"priority":   rankCase("priority", models.Priorities, models.Priority.Rank),
	"status":     rankCase("status", models.Statuses, models.Status.Rank),
	"title":      "title",
}

// SortKeys returns every accepted sort value, ascending and descending.
func SortKeys() []string {
	keys := make([]string, 0, len(sortColumns)*2)
	for k := range sortColumns {
		keys = append(keys, k, "-"+k)
	}
	sort.Strings(keys)
	return keys
}

func rankCase[T ~string](column string, values []T, rank func(T) int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CASE %s", column)
	for _, v := range values {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", v, rank(v))
	}
	fmt.Fprintf(&b, " ELSE %d END", len(values))
	return b.String()
}

// orderClause validates a sort value and returns its ORDER BY clause, with
// id as a tie-breaker.
func orderClause(s string) (string, error) {
	if s == "" {
		s = DefaultSort
	}
	key, desc := strings.CutPrefix(s, "-")
	col, ok := sortColumns[key]
	if !ok {
		return "", &apperr.ValidationError{
			Field:   "sort",
			Allowed: SortKeys(),
			Message: fmt.Sprintf("invalid sort %q", s),
		}
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir), nil
}

// likeEscaper escapes LIKE wildcards with '!' so user input matches literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// List returns top-level tasks matching opts, each with its direct subtasks
// loaded in one batched query.
func List(db *gorm.DB, opts ListOpts) ([]models.Task, error) {
	order, err := orderClause(opts.Sort)
	if err != nil {
		return nil, err
	}
	if opts.Limit < 1 || opts.Limit > MaxLimit {
		return nil, apperr.Invalid("limit", "must be between 1 and %d, got %d", MaxLimit, opts.Limit)
	}
	if opts.Offset < 0 {
		return nil, apperr.Invalid("offset", "must be >= 0, got %d", opts.Offset)
	}
	if n := utf8.RuneCountInString(opts.Query); n > MaxQueryLen {
		return nil, apperr.Invalid("q", "must be at most %d characters, got %d", MaxQueryLen, n)
	}

	q := db.Model(&models.Task{}).Where("parent_id IS NULL")
	if opts.Status != "" {
		st, err := ParseStatus(opts.Status)
		if err != nil {
			return nil, err
		}
		q = q.Where("status = ?", st)
	}
	if opts.Priority != "" {
		p, err := ParsePriority(opts.Priority)
		if err != nil {
			return nil, err
		}
		q = q.Where("priority = ?", p)
	}
	if opts.Query != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(opts.Query)) + "%"
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!'", pattern)
	}

	var tasks []models.Task
	if err := q.Preload("Subtasks", orderSubtasks).
		Order(order).
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&tasks).Error; err != nil {
		return nil, apperr.Store("list tasks", err)
	}
	return tasks, nil
}

// Summary counts top-level tasks in total, per status and per priority.
// Every status and priority is present, zero when unused.
func Summary(db *gorm.DB) (*Stats, error) {
	type row struct {
		Value string
		Count int64
	}

	stats := &Stats{
		ByStatus:   make(map[models.Status]int64, len(models.Statuses)),
		ByPriority: make(map[models.Priority]int64, len(models.Priorities)),
	}
	for _, s := range models.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range models.Priorities {
		stats.ByPriority[p] = 0
	}

	var byStatus []row
	if err := db.Model(&models.Task{}).
		Select("status AS value, COUNT(*) AS count").
		Where("parent_id IS NULL").
		Group("status").
		Find(&byStatus).Error; err != nil {
		return nil, apperr.Store("summary by status", err)
	}
	for _, r := range byStatus {
		stats.Total += r.Count
		if s := models.Status(r.Value); s.Valid() {
			stats.ByStatus[s] = r.Count
		}
	}

	var byPriority []row
	if err := db.Model(&models.Task{}).
		Select("priority AS value, COUNT(*) AS count").
		Where("parent_id IS NULL").
		Group("priority").
		Find(&byPriority).Error; err != nil {
		return nil, apperr.Store("summary by priority", err)
	}
	for _, r := range byPriority {
		if p := models.Priority(r.Value); p.Valid() {
			stats.ByPriority[p] = r.Count
		}
	}
	return stats, nil
}

// Agenda returns open tasks (todo or doing), subtasks included, due on or
// before until, soonest first.
func Agenda(db *gorm.DB, until time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := db.Where("status IN ? AND due_date IS NOT NULL AND due_date <= ?",
		[]models.Status{models.StatusTodo, models.StatusDoing}, until.UTC()).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, apperr.Store("agenda", err)
	}
	return tasks, nil
}
