package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tsuitodo/tasklist-backend/internal/domain"
	"github.com/tsuitodo/tasklist-backend/internal/repository"

	"gorm.io/gorm"
)

type todoFixture struct {
	svc     TodoService
	db      *gorm.DB
	ownerID uint
	otherID uint
}

func newTodoFixture(t *testing.T) *todoFixture {
	t.Helper()
	db := setupTestDB(t)

	owner := &domain.User{Email: "owner@x.com", PasswordHash: "hash"}
	other := &domain.User{Email: "other@x.com", PasswordHash: "hash"}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("creating owner: %v", err)
	}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("creating other user: %v", err)
	}

	svc := NewTodoService(
		repository.NewGormTodoRepository(db),
		repository.NewGormTaskRepository(db),
	)
	return &todoFixture{svc: svc, db: db, ownerID: owner.ID, otherID: other.ID}
}

func (f *todoFixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return count
}

func TestCreateTodoWithFirstTask(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Groceries",
		FirstTask: "Buy milk",
		Due:       "",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}

	got, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID)
	if err != nil {
		t.Fatalf("GetTodoView() error = %v", err)
	}
	if got.Title != "Groceries" {
		t.Errorf("Title = %q, want %q", got.Title, "Groceries")
	}
	if len(got.Tasks) != 1 || len(got.Starred) != 0 {
		t.Fatalf("partition = %d regular / %d starred, want 1/0", len(got.Tasks), len(got.Starred))
	}
	task := got.Tasks[0]
	if task.Info != "Buy milk" {
		t.Errorf("Info = %q, want %q", task.Info, "Buy milk")
	}
	if task.Due != "" {
		t.Errorf("Due = %q, want none", task.Due)
	}
	if task.Important {
		t.Error("Important = true, want false")
	}
}

func TestCreateTodoInvalidDateIsAtomic(t *testing.T) {
	f := newTodoFixture(t)

	tests := []struct {
		name string
		due  string
	}{
		{"wrong order", "10-03-2025"},
		{"not a date", "soon"},
		{"out of range", "2025-13-40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTodoWithFirstTask(context.Background(), f.ownerID, CreateTodoRequest{
				Title:     "Doomed",
				FirstTask: "Never persisted",
				Due:       tt.due,
			})
			if !errors.Is(err, domain.ErrInvalidDate) {
				t.Fatalf("CreateTodoWithFirstTask() error = %v, want ErrInvalidDate", err)
			}
		})
	}

	if n := f.countRows(t, &domain.Todo{}); n != 0 {
		t.Errorf("todo rows = %d after failed creates, want 0", n)
	}
	if n := f.countRows(t, &domain.Task{}); n != 0 {
		t.Errorf("task rows = %d after failed creates, want 0", n)
	}
}

func TestAddTaskWithDueDateAndStar(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Errands",
		FirstTask: "Buy milk",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}

	added, err := f.svc.AddTask(ctx, f.ownerID, view.ID, TaskRequest{
		Info: "Call dentist",
		Due:  "2025-03-10",
	})
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	if _, err := f.svc.ToggleStar(ctx, f.ownerID, added.ID); err != nil {
		t.Fatalf("ToggleStar() error = %v", err)
	}

	got, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID)
	if err != nil {
		t.Fatalf("GetTodoView() error = %v", err)
	}
	if len(got.Starred) != 1 {
		t.Fatalf("starred tasks = %d, want 1", len(got.Starred))
	}
	starred := got.Starred[0]
	if starred.ID != added.ID {
		t.Errorf("starred task ID = %d, want %d", starred.ID, added.ID)
	}
	if starred.Due != "2025-03-10" {
		t.Errorf("starred task Due = %q, want %q", starred.Due, "2025-03-10")
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Info != "Buy milk" {
		t.Errorf("regular partition changed unexpectedly: %+v", got.Tasks)
	}
}

func TestToggleStarIsItsOwnInverse(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "List",
		FirstTask: "Task",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}
	taskID := view.Tasks[0].ID

	once, err := f.svc.ToggleStar(ctx, f.ownerID, taskID)
	if err != nil {
		t.Fatalf("ToggleStar() error = %v", err)
	}
	if !once.Important {
		t.Error("first toggle: Important = false, want true")
	}

	twice, err := f.svc.ToggleStar(ctx, f.ownerID, taskID)
	if err != nil {
		t.Fatalf("ToggleStar() error = %v", err)
	}
	if twice.Important {
		t.Error("second toggle: Important = true, want the original false")
	}
}

func TestGetTodoViewPartition(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Mixed",
		FirstTask: "first",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}

	all := map[uint]bool{view.Tasks[0].ID: true}
	for i, info := range []string{"second", "third", "fourth"} {
		task, err := f.svc.AddTask(ctx, f.ownerID, view.ID, TaskRequest{Info: info})
		if err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
		all[task.ID] = true
		// Star every other task.
		if i%2 == 0 {
			if _, err := f.svc.ToggleStar(ctx, f.ownerID, task.ID); err != nil {
				t.Fatalf("ToggleStar() error = %v", err)
			}
		}
	}

	got, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID)
	if err != nil {
		t.Fatalf("GetTodoView() error = %v", err)
	}

	seen := make(map[uint]bool)
	for _, task := range got.Tasks {
		if task.Important {
			t.Errorf("task %d is starred but appears in the regular group", task.ID)
		}
		if seen[task.ID] {
			t.Errorf("task %d appears twice", task.ID)
		}
		seen[task.ID] = true
	}
	for _, task := range got.Starred {
		if !task.Important {
			t.Errorf("task %d is not starred but appears in the starred group", task.ID)
		}
		if seen[task.ID] {
			t.Errorf("task %d appears in both groups", task.ID)
		}
		seen[task.ID] = true
	}
	if len(seen) != len(all) {
		t.Errorf("partition covers %d tasks, want %d", len(seen), len(all))
	}
	for id := range all {
		if !seen[id] {
			t.Errorf("task %d missing from the partition", id)
		}
	}
}

func TestEditTask(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "List",
		FirstTask: "original",
		Due:       "2025-01-15",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}
	taskID := view.Tasks[0].ID

	// Empty due text edits the info but leaves the date alone.
	edited, err := f.svc.EditTask(ctx, f.ownerID, taskID, TaskRequest{Info: "updated"})
	if err != nil {
		t.Fatalf("EditTask() error = %v", err)
	}
	if edited.Info != "updated" {
		t.Errorf("Info = %q, want %q", edited.Info, "updated")
	}
	if edited.Due != "2025-01-15" {
		t.Errorf("Due = %q after empty-date edit, want unchanged %q", edited.Due, "2025-01-15")
	}

	// A supplied due text replaces the date.
	edited, err = f.svc.EditTask(ctx, f.ownerID, taskID, TaskRequest{Info: "updated again", Due: "2025-06-01"})
	if err != nil {
		t.Fatalf("EditTask() error = %v", err)
	}
	if edited.Due != "2025-06-01" {
		t.Errorf("Due = %q, want %q", edited.Due, "2025-06-01")
	}

	// A malformed due text aborts without touching the task.
	if _, err := f.svc.EditTask(ctx, f.ownerID, taskID, TaskRequest{Info: "never applied", Due: "bad"}); !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("EditTask() error = %v, want ErrInvalidDate", err)
	}
	got, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID)
	if err != nil {
		t.Fatalf("GetTodoView() error = %v", err)
	}
	if got.Tasks[0].Info != "updated again" {
		t.Errorf("Info = %q after failed edit, want %q", got.Tasks[0].Info, "updated again")
	}
}

func TestRenameTodo(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Old name",
		FirstTask: "task",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}

	renamed, err := f.svc.RenameTodo(ctx, f.ownerID, view.ID, "New name")
	if err != nil {
		t.Fatalf("RenameTodo() error = %v", err)
	}
	if renamed.Title != "New name" {
		t.Errorf("Title = %q, want %q", renamed.Title, "New name")
	}
}

func TestDeleteTodoCascadesToTasks(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Short lived",
		FirstTask: "one",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}
	for _, info := range []string{"two", "three"} {
		if _, err := f.svc.AddTask(ctx, f.ownerID, view.ID, TaskRequest{Info: info}); err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
	}

	if err := f.svc.DeleteTodo(ctx, f.ownerID, view.ID); err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}

	if _, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTodoView() after delete error = %v, want ErrNotFound", err)
	}

	var orphans int64
	if err := f.db.Model(&domain.Task{}).Where("title_id = ?", view.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("counting orphan tasks: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphan tasks = %d after cascade delete, want 0", orphans)
	}
}

func TestDeleteOnlyTaskLeavesTodo(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Keeps going",
		FirstTask: "only task",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}

	if err := f.svc.DeleteTask(ctx, f.ownerID, view.Tasks[0].ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}

	got, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID)
	if err != nil {
		t.Fatalf("GetTodoView() error = %v, want the todo to survive", err)
	}
	if len(got.Tasks) != 0 || len(got.Starred) != 0 {
		t.Errorf("partition = %d/%d after deleting the only task, want 0/0", len(got.Tasks), len(got.Starred))
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateTodoWithFirstTask(ctx, f.ownerID, CreateTodoRequest{
		Title:     "Private",
		FirstTask: "secret task",
	})
	if err != nil {
		t.Fatalf("CreateTodoWithFirstTask() error = %v", err)
	}
	taskID := view.Tasks[0].ID

	tests := []struct {
		name string
		call func() error
	}{
		{"GetTodoView", func() error { _, err := f.svc.GetTodoView(ctx, f.otherID, view.ID); return err }},
		{"RenameTodo", func() error { _, err := f.svc.RenameTodo(ctx, f.otherID, view.ID, "stolen"); return err }},
		{"AddTask", func() error { _, err := f.svc.AddTask(ctx, f.otherID, view.ID, TaskRequest{Info: "x"}); return err }},
		{"EditTask", func() error { _, err := f.svc.EditTask(ctx, f.otherID, taskID, TaskRequest{Info: "x"}); return err }},
		{"ToggleStar", func() error { _, err := f.svc.ToggleStar(ctx, f.otherID, taskID); return err }},
		{"DeleteTask", func() error { return f.svc.DeleteTask(ctx, f.otherID, taskID) }},
		{"DeleteTodo", func() error { return f.svc.DeleteTodo(ctx, f.otherID, view.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, domain.ErrForbidden) {
				t.Errorf("%s as non-owner error = %v, want ErrForbidden", tt.name, err)
			}
		})
	}

	// Nothing changed.
	got, err := f.svc.GetTodoView(ctx, f.ownerID, view.ID)
	if err != nil {
		t.Fatalf("GetTodoView() error = %v", err)
	}
	if got.Title != "Private" || len(got.Tasks) != 1 || got.Tasks[0].Info != "secret task" {
		t.Errorf("todo mutated by forbidden calls: %+v", got)
	}
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GetTodoView(ctx, f.ownerID, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTodoView() error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.AddTask(ctx, f.ownerID, 9999, TaskRequest{Info: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddTask() error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.EditTask(ctx, f.ownerID, 9999, TaskRequest{Info: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("EditTask() error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.ToggleStar(ctx, f.ownerID, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ToggleStar() error = %v, want ErrNotFound", err)
	}
	if err := f.svc.DeleteTodo(ctx, f.ownerID, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteTodo() error = %v, want ErrNotFound", err)
	}
	if err := f.svc.DeleteTask(ctx, f.ownerID, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteTask() error = %v, want ErrNotFound", err)
	}
}
