package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/task-tracker/internal/model"
)

func newMock(t *testing.T) (*TaskRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewTaskRepo(db), mock
}

// taskRow builds a row matching the taskColumns select list.
func taskRow(id, userID uint64, status string, categoryID any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "title", "description", "status", "priority",
		"due_date", "category_id", "tags", "estimated_hours", "shared_with",
		"created_at", "updated_at",
	}).AddRow(id, userID, "write report", nil, status, "medium",
		nil, categoryID, []byte(`[]`), nil, []byte(`[]`), now, now)
}

func TestCreateIncrementsCategoryCounter(t *testing.T) {
	repo, mock := newMock(t)
	catID := uint64(5)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM categories").
		WithArgs(catID, uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(catID))
	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE categories SET task_count").
		WithArgs(1, catID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT created_at, updated_at FROM tasks").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	mock.ExpectCommit()

	task := model.Task{
		UserID: 1, Title: "write report", Status: model.StatusTodo,
		Priority: model.PriorityMedium, CategoryID: &catID,
		Tags: []string{}, SharedWith: []uint64{},
	}
	if err := repo.Create(context.Background(), &task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID != 11 {
		t.Errorf("task id = %d, want 11", task.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateSurfacesCommitFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT created_at, updated_at FROM tasks").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	mock.ExpectCommit().WillReturnError(errors.New("commit: lost connection"))

	task := model.Task{
		UserID: 1, Title: "write report", Status: model.StatusTodo,
		Priority: model.PriorityMedium, Tags: []string{}, SharedWith: []uint64{},
	}
	if err := repo.Create(context.Background(), &task); err == nil {
		t.Fatal("Create reported success although the commit failed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteDecrementsCategoryCounter(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(taskRow(3, 1, model.StatusTodo, 5))
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE categories SET task_count").
		WithArgs(-1, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), 3, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateMovesCounterBetweenCategories(t *testing.T) {
	repo, mock := newMock(t)
	newCat := uint64(9)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(taskRow(3, 1, model.StatusTodo, 5))
	mock.ExpectExec("UPDATE categories SET task_count").
		WithArgs(-1, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM categories").
		WithArgs(newCat, uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(newCat))
	mock.ExpectExec("UPDATE categories SET task_count").
		WithArgs(1, newCat).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT updated_at FROM tasks").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	out, err := repo.Update(context.Background(), 3, 1, TaskUpdate{Category: &newCat})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if out.CategoryID == nil || *out.CategoryID != newCat {
		t.Errorf("category = %v, want %d", out.CategoryID, newCat)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateCannotLeaveArchived(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(taskRow(3, 1, model.StatusArchived, nil))
	mock.ExpectRollback()

	todo := model.StatusTodo
	_, err := repo.Update(context.Background(), 3, 1, TaskUpdate{Status: &todo})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSetStatusReturnsFreshTimestamp(t *testing.T) {
	repo, mock := newMock(t)
	stale := time.Now().Add(-time.Hour)
	fresh := time.Now()

	row := sqlmock.NewRows([]string{
		"id", "user_id", "title", "description", "status", "priority",
		"due_date", "category_id", "tags", "estimated_hours", "shared_with",
		"created_at", "updated_at", "name", "color",
	}).AddRow(3, 1, "write report", nil, "todo", "medium",
		nil, nil, []byte(`[]`), nil, []byte(`[]`), stale, stale, nil, nil)

	mock.ExpectQuery("LEFT JOIN categories").
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(row)
	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs(model.StatusCompleted, uint64(3), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT updated_at FROM tasks").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(fresh))

	out, err := repo.SetStatus(context.Background(), 3, 1, model.StatusCompleted)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if out.Status != model.StatusCompleted {
		t.Errorf("status = %q", out.Status)
	}
	if !out.UpdatedAt.After(stale) {
		t.Errorf("updatedAt = %v, still the pre-update value", out.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestShareRejectsDuplicateGrant(t *testing.T) {
	repo, mock := newMock(t)

	row := sqlmock.NewRows([]string{
		"id", "user_id", "title", "description", "status", "priority",
		"due_date", "category_id", "tags", "estimated_hours", "shared_with",
		"created_at", "updated_at",
	}).AddRow(3, 1, "write report", nil, "todo", "medium",
		nil, nil, []byte(`[]`), nil, []byte(`[8]`), time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(row)
	mock.ExpectRollback()

	_, err := repo.Share(context.Background(), 3, 1, 8)
	if !errors.Is(err, ErrAlreadyShared) {
		t.Fatalf("err = %v, want ErrAlreadyShared", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
