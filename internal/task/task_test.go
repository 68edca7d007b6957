package task

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/config"
	"github.com/kiwidesk/kiwi/internal/db"
	"github.com/kiwidesk/kiwi/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// fakeClock makes nowFunc advance one second per call.
func fakeClock(t *testing.T) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	orig := nowFunc
	nowFunc = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	t.Cleanup(func() { nowFunc = orig })
}

func strPtr(s string) *string { return &s }
func idPtr(id int64) *int64   { return &id }

func mustCreate(t *testing.T, gdb *gorm.DB, opts CreateOpts) *models.Task {
	t.Helper()
	tk, err := Create(gdb, opts)
	if err != nil {
		t.Fatalf("Create(%q): %v", opts.Title, err)
	}
	return tk
}

func countTasks(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&models.Task{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreate_Defaults(t *testing.T) {
	gdb := testDB(t)
	tk := mustCreate(t, gdb, CreateOpts{Title: "  Buy milk  "})

	if tk.ID == 0 {
		t.Error("ID not assigned")
	}
	if tk.Title != "Buy milk" {
		t.Errorf("Title = %q, want trimmed", tk.Title)
	}
	if tk.Status != models.StatusTodo {
		t.Errorf("Status = %q, want todo", tk.Status)
	}
	if tk.Priority != models.PriorityNormal {
		t.Errorf("Priority = %q, want normal", tk.Priority)
	}
	if tk.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", tk.CompletedAt)
	}
	if tk.CreatedAt.IsZero() || !tk.CreatedAt.Equal(tk.UpdatedAt) {
		t.Errorf("CreatedAt = %v, UpdatedAt = %v", tk.CreatedAt, tk.UpdatedAt)
	}
}

func TestCreate_AllFields(t *testing.T) {
	gdb := testDB(t)
	due := time.Date(2026, 4, 2, 18, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	tk := mustCreate(t, gdb, CreateOpts{
		Title:       "Report",
		Description: strPtr(" draft the quarterly report "),
		Priority:    "high",
		DueDate:     &due,
		Tags:        strPtr("work,writing"),
		Recurrence:  "weekly",
	})

	got, err := Get(gdb, tk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description == nil || *got.Description != "draft the quarterly report" {
		t.Errorf("Description = %v", got.Description)
	}
	if got.Priority != models.PriorityHigh {
		t.Errorf("Priority = %q", got.Priority)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.Tags == nil || *got.Tags != "work,writing" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.Recurrence == nil || *got.Recurrence != models.RecurrenceWeekly {
		t.Errorf("Recurrence = %v", got.Recurrence)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		opts  CreateOpts
		field string
	}{
		{"empty title", CreateOpts{Title: "   "}, "title"},
		{"long title", CreateOpts{Title: strings.Repeat("a", MaxTitleLen+1)}, "title"},
		{"long description", CreateOpts{Title: "ok", Description: strPtr(strings.Repeat("d", MaxDescriptionLen+1))}, "description"},
		{"long tags", CreateOpts{Title: "ok", Tags: strPtr(strings.Repeat("t", MaxTagsLen+1))}, "tags"},
		{"bad priority", CreateOpts{Title: "ok", Priority: "urgent"}, "priority"},
		{"bad recurrence", CreateOpts{Title: "ok", Recurrence: "yearly"}, "recurrence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb := testDB(t)
			_, err := Create(gdb, tt.opts)
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if n := countTasks(t, gdb); n != 0 {
				t.Errorf("%d rows persisted after validation failure", n)
			}
		})
	}
}

func TestCreate_BadPriorityNamesAllowedSet(t *testing.T) {
	gdb := testDB(t)
	_, err := Create(gdb, CreateOpts{Title: "x", Priority: "urgent"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	want := []string{"low", "normal", "high"}
	if strings.Join(ve.Allowed, ",") != strings.Join(want, ",") {
		t.Errorf("Allowed = %v, want %v", ve.Allowed, want)
	}
}

func TestCreate_TitleLengthCountsCharacters(t *testing.T) {
	gdb := testDB(t)
	if _, err := Create(gdb, CreateOpts{Title: strings.Repeat("é", MaxTitleLen)}); err != nil {
		t.Errorf("title of %d multi-byte characters rejected: %v", MaxTitleLen, err)
	}
}

func TestCreate_ParentNotFound(t *testing.T) {
	gdb := testDB(t)
	_, err := Create(gdb, CreateOpts{Title: "child", ParentID: idPtr(99)})
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if nf.Resource != ResourceParent || nf.ID != 99 {
		t.Errorf("NotFoundError = %+v", nf)
	}
	if n := countTasks(t, gdb); n != 0 {
		t.Errorf("%d rows persisted", n)
	}
}

func TestCreate_ParentMustBeTopLevel(t *testing.T) {
	gdb := testDB(t)
	parent := mustCreate(t, gdb, CreateOpts{Title: "parent"})
	child := mustCreate(t, gdb, CreateOpts{Title: "child", ParentID: &parent.ID})

	_, err := Create(gdb, CreateOpts{Title: "grandchild", ParentID: &child.ID})
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	gdb := testDB(t)
	_, err := Get(gdb, 42)
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if nf.Resource != ResourceTask || nf.ID != 42 {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestGet_AttachesSubtasksInCreationOrder(t *testing.T) {
	fakeClock(t)
	gdb := testDB(t)
	parent := mustCreate(t, gdb, CreateOpts{Title: "Plan trip"})
	a := mustCreate(t, gdb, CreateOpts{Title: "Book flights", ParentID: &parent.ID})
	b := mustCreate(t, gdb, CreateOpts{Title: "Book hotel", ParentID: &parent.ID})

	got, err := Get(gdb, parent.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("len(Subtasks) = %d, want 2", len(got.Subtasks))
	}
	if got.Subtasks[0].ID != a.ID || got.Subtasks[1].ID != b.ID {
		t.Errorf("subtask order = [%d %d], want [%d %d]",
			got.Subtasks[0].ID, got.Subtasks[1].ID, a.ID, b.ID)
	}
}

func TestUpdate_Partial(t *testing.T) {
	fakeClock(t)
	gdb := testDB(t)
	tk := mustCreate(t, gdb, CreateOpts{Title: "Original", Description: strPtr("keep me"), Priority: "low"})

	got, err := Update(gdb, tk.ID, UpdateOpts{Title: strPtr("Renamed")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Description == nil || *got.Description != "keep me" {
		t.Errorf("Description changed: %v", got.Description)
	}
	if got.Priority != models.PriorityLow {
		t.Errorf("Priority changed: %q", got.Priority)
	}
	if !got.UpdatedAt.After(tk.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", got.UpdatedAt, tk.UpdatedAt)
	}
	if !got.CreatedAt.Equal(tk.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", tk.CreatedAt, got.CreatedAt)
	}
}

func TestUpdate_BlankClearsOptionalFields(t *testing.T) {
	gdb := testDB(t)
	tk := mustCreate(t, gdb, CreateOpts{Title: "x", Description: strPtr("d"), Tags: strPtr("t"), Recurrence: "daily"})

	got, err := Update(gdb, tk.ID, UpdateOpts{Description: strPtr(""), Tags: strPtr("  "), Recurrence: strPtr("")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Description != nil || got.Tags != nil || got.Recurrence != nil {
		t.Errorf("fields not cleared: desc=%v tags=%v rec=%v", got.Description, got.Tags, got.Recurrence)
	}
}

func TestUpdate_ZeroDueDateClears(t *testing.T) {
	gdb := testDB(t)
	due := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	tk := mustCreate(t, gdb, CreateOpts{Title: "x", DueDate: &due})

	later := due.Add(24 * time.Hour)
	got, err := Update(gdb, tk.ID, UpdateOpts{DueDate: &later})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(later) {
		t.Fatalf("DueDate = %v, want %v", got.DueDate, later)
	}

	got, err = Update(gdb, tk.ID, UpdateOpts{DueDate: &time.Time{}})
	if err != nil {
		t.Fatalf("Update zero: %v", err)
	}
	if got.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", got.DueDate)
	}
	stored, err := Get(gdb, tk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.DueDate != nil {
		t.Errorf("stored DueDate = %v, want nil", stored.DueDate)
	}
}

func TestUpdate_CompletedAtTransitions(t *testing.T) {
	fakeClock(t)
	gdb := testDB(t)
	tk := mustCreate(t, gdb, CreateOpts{Title: "x"})

	done, err := Update(gdb, tk.ID, UpdateOpts{Status: strPtr("done")})
	if err != nil {
		t.Fatalf("Update done: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("CompletedAt nil after done")
	}
	first := *done.CompletedAt

	again, err := Update(gdb, tk.ID, UpdateOpts{Status: strPtr("done")})
	if err != nil {
		t.Fatalf("Update done again: %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(first) {
		t.Errorf("CompletedAt = %v after repeat, want %v", again.CompletedAt, first)
	}

	reopened, err := Update(gdb, tk.ID, UpdateOpts{Status: strPtr("doing")})
	if err != nil {
		t.Fatalf("Update doing: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Errorf("CompletedAt = %v after leaving done, want nil", reopened.CompletedAt)
	}
}

func TestUpdate_InvalidLeavesRowUnchanged(t *testing.T) {
	gdb := testDB(t)
	tk := mustCreate(t, gdb, CreateOpts{Title: "x"})

	_, err := Update(gdb, tk.ID, UpdateOpts{Title: strPtr("new"), Status: strPtr("finished")})
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	got, _ := Get(gdb, tk.ID)
	if got.Title != "x" || got.Status != models.StatusTodo {
		t.Errorf("row changed: %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	gdb := testDB(t)
	_, err := Update(gdb, 7, UpdateOpts{Title: strPtr("x")})
	if !apperr.IsNotFound(err) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestUpdate_Reparent(t *testing.T) {
	gdb := testDB(t)
	a := mustCreate(t, gdb, CreateOpts{Title: "a"})
	b := mustCreate(t, gdb, CreateOpts{Title: "b"})

	got, err := Update(gdb, b.ID, UpdateOpts{ParentID: &a.ID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ParentID == nil || *got.ParentID != a.ID {
		t.Fatalf("ParentID = %v, want %d", got.ParentID, a.ID)
	}

	got, err = Update(gdb, b.ID, UpdateOpts{ParentID: idPtr(0)})
	if err != nil {
		t.Fatalf("Update detach: %v", err)
	}
	if got.ParentID != nil {
		t.Errorf("ParentID = %v after detach, want nil", got.ParentID)
	}
}

func TestUpdate_HierarchyGuard(t *testing.T) {
	gdb := testDB(t)
	parent := mustCreate(t, gdb, CreateOpts{Title: "parent"})
	child := mustCreate(t, gdb, CreateOpts{Title: "child", ParentID: &parent.ID})
	other := mustCreate(t, gdb, CreateOpts{Title: "other"})

	tests := []struct {
		name     string
		id       int64
		parentID int64
	}{
		{"self", parent.ID, parent.ID},
		{"parent under its own child", parent.ID, child.ID},
		{"task with subtasks becomes subtask", parent.ID, other.ID},
		{"under a subtask", other.ID, child.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Update(gdb, tt.id, UpdateOpts{ParentID: idPtr(tt.parentID)})
			if !apperr.IsValidation(err) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestDelete_CascadesToChildren(t *testing.T) {
	gdb := testDB(t)
	parent := mustCreate(t, gdb, CreateOpts{Title: "Plan trip"})
	a := mustCreate(t, gdb, CreateOpts{Title: "flights", ParentID: &parent.ID})
	b := mustCreate(t, gdb, CreateOpts{Title: "hotel", ParentID: &parent.ID})
	keep := mustCreate(t, gdb, CreateOpts{Title: "unrelated"})

	removed, err := Delete(gdb, parent.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	for _, id := range []int64{parent.ID, a.ID, b.ID} {
		if _, err := Get(gdb, id); !apperr.IsNotFound(err) {
			t.Errorf("Get(%d) error = %v, want NotFoundError", id, err)
		}
	}
	if _, err := Get(gdb, keep.ID); err != nil {
		t.Errorf("unrelated task removed: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	gdb := testDB(t)
	if _, err := Delete(gdb, 1); !apperr.IsNotFound(err) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestBulkDelete_SkipsUnknownIDs(t *testing.T) {
	gdb := testDB(t)
	a := mustCreate(t, gdb, CreateOpts{Title: "a"})
	mustCreate(t, gdb, CreateOpts{Title: "a1", ParentID: &a.ID})
	keep := mustCreate(t, gdb, CreateOpts{Title: "keep"})

	n, err := BulkDelete(gdb, []int64{a.ID, 9999})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if c := countTasks(t, gdb); c != 1 {
		t.Errorf("%d rows left, want 1", c)
	}
	if _, err := Get(gdb, keep.ID); err != nil {
		t.Errorf("Get(keep): %v", err)
	}
}

func TestBulkDelete_CountsCascadedSubtaskOnce(t *testing.T) {
	tests := []struct {
		name  string
		order func(parent, child int64) []int64
		want  int
	}{
		{"parent first", func(p, c int64) []int64 { return []int64{p, c} }, 1},
		{"child first", func(p, c int64) []int64 { return []int64{c, p} }, 2},
		{"repeated parent", func(p, c int64) []int64 { return []int64{p, p} }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb := testDB(t)
			p := mustCreate(t, gdb, CreateOpts{Title: "p"})
			c := mustCreate(t, gdb, CreateOpts{Title: "c", ParentID: &p.ID})
			mustCreate(t, gdb, CreateOpts{Title: "keep"})

			n, err := BulkDelete(gdb, tt.order(p.ID, c.ID))
			if err != nil {
				t.Fatalf("BulkDelete: %v", err)
			}
			if n != tt.want {
				t.Errorf("count = %d, want %d", n, tt.want)
			}
			if left := countTasks(t, gdb); left != 1 {
				t.Errorf("%d rows left, want 1", left)
			}
		})
	}
}

func TestBulkDelete_IDCount(t *testing.T) {
	gdb := testDB(t)
	tooMany := make([]int64, MaxBulkIDs+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}
	for _, ids := range [][]int64{nil, tooMany} {
		if _, err := BulkDelete(gdb, ids); !apperr.IsValidation(err) {
			t.Errorf("BulkDelete(%d ids) error = %v, want ValidationError", len(ids), err)
		}
	}
}
