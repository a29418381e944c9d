package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/query"
)

// TaskRepo provides persistence for tasks. Every operation that links or
// unlinks a task and a category adjusts the category's denormalized
// task_count inside the same transaction as the task write, so a partial
// failure can never leave the counter out of step.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

// TaskUpdate is the allow-listed set of fields a caller may overwrite on
// an existing task. Nil means "leave unchanged". Category is special: a
// non-nil zero clears the reference, any other value re-links the task.
// The id and owner of a task can never be written through this struct.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	DueDate        *time.Time
	Category       *uint64
	Tags           *[]string
	EstimatedHours *float64
}

const taskColumns = `t.id, t.user_id, t.title, t.description, t.status, t.priority,
	t.due_date, t.category_id, t.tags, t.estimated_hours, t.shared_with,
	t.created_at, t.updated_at`

// List returns one page of the owner's tasks per the supplied query,
// together with the total number of matching rows before paging and the
// per-status counts over the owner's whole task set.
func (r *TaskRepo) List(ctx context.Context, ownerID uint64, q query.TaskQuery) ([]model.Task, int64, model.StatusCounts, error) {
	cond, args := q.Where(ownerID)

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks t WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, model.StatusCounts{}, err
	}

	dataSQL := `SELECT ` + taskColumns + `, c.name, c.color
		FROM tasks t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + cond + `
		ORDER BY ` + q.OrderBy() + `
		LIMIT ? OFFSET ?`
	dataArgs := append(append([]any{}, args...), q.Limit, q.Offset())

	rows, err := r.DB.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, model.StatusCounts{}, err
	}
	defer rows.Close()

	out := make([]model.Task, 0, q.Limit)
	for rows.Next() {
		t, err := scanTaskWithCategory(rows)
		if err != nil {
			return nil, 0, model.StatusCounts{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, model.StatusCounts{}, err
	}

	counts, err := r.statusCounts(ctx, ownerID)
	if err != nil {
		return nil, 0, model.StatusCounts{}, err
	}
	return out, total, counts, nil
}

// statusCounts groups the owner's entire task set by status. Buckets with
// no rows stay zero.
func (r *TaskRepo) statusCounts(ctx context.Context, ownerID uint64) (model.StatusCounts, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM tasks WHERE user_id=? GROUP BY status", ownerID)
	if err != nil {
		return model.StatusCounts{}, err
	}
	defer rows.Close()

	var counts model.StatusCounts
	for rows.Next() {
		var status string
		var n uint64
		if err := rows.Scan(&status, &n); err != nil {
			return model.StatusCounts{}, err
		}
		switch status {
		case model.StatusTodo:
			counts.Todo = n
		case model.StatusInProgress:
			counts.InProgress = n
		case model.StatusCompleted:
			counts.Completed = n
		case model.StatusArchived:
			counts.Archived = n
		}
	}
	return counts, rows.Err()
}

// GetByIDAndOwner fetches one task with its category summary, scoped to
// the owner.
func (r *TaskRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+`, c.name, c.color
		FROM tasks t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id=? AND t.user_id=?`, id, ownerID)
	t, err := scanTaskWithCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrTaskNotFound
	}
	return t, err
}

// Create inserts a task. When a category is supplied it must belong to
// the same owner; its counter is incremented in the same transaction.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) (err error) {
	// The commit in the deferred closure must write through the named
	// return: a failed commit is a failed create.
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if t.CategoryID != nil {
		if err = lockCategory(ctx, tx, *t.CategoryID, t.UserID); err != nil {
			return err
		}
	}

	tags, shared := mustJSON(t.Tags), mustJSON(t.SharedWith)
	var res sql.Result
	res, err = tx.ExecContext(ctx, `INSERT INTO tasks
		(user_id, title, description, status, priority, due_date, category_id, tags, estimated_hours, shared_with)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.UserID, t.Title, nullString(t.Description), t.Status, t.Priority,
		t.DueDate, t.CategoryID, tags, t.EstimatedHours, shared)
	if err != nil {
		return err
	}
	id, err2 := res.LastInsertId()
	if err2 != nil {
		err = err2
		return err
	}
	t.ID = uint64(id)

	if t.CategoryID != nil {
		if err = bumpTaskCount(ctx, tx, *t.CategoryID, +1); err != nil {
			return err
		}
	}
	err = tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM tasks WHERE id=?", t.ID).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	return err
}

// Update applies an allow-listed field update. A category change
// decrements the old counter, validates the new category's ownership and
// increments the new counter, all in one transaction with the task write.
func (r *TaskRepo) Update(ctx context.Context, id, ownerID uint64, upd TaskUpdate) (out model.Task, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	cur, err := lockTask(ctx, tx, id, ownerID)
	if err != nil {
		return model.Task{}, err
	}

	if upd.Title != nil {
		cur.Title = *upd.Title
	}
	if upd.Description != nil {
		cur.Description = *upd.Description
	}
	if upd.Status != nil {
		if !model.CanTransition(cur.Status, *upd.Status) {
			err = ErrInvalidTransition
			return model.Task{}, err
		}
		cur.Status = *upd.Status
	}
	if upd.Priority != nil {
		cur.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		cur.DueDate = upd.DueDate
	}
	if upd.Tags != nil {
		cur.Tags = *upd.Tags
	}
	if upd.EstimatedHours != nil {
		cur.EstimatedHours = upd.EstimatedHours
	}

	if upd.Category != nil {
		var newCat *uint64
		if *upd.Category != 0 {
			newCat = upd.Category
		}
		if err = relinkCategory(ctx, tx, cur.CategoryID, newCat, ownerID); err != nil {
			return model.Task{}, err
		}
		cur.CategoryID = newCat
	}

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET
		title=?, description=?, status=?, priority=?, due_date=?, category_id=?,
		tags=?, estimated_hours=? WHERE id=? AND user_id=?`,
		cur.Title, nullString(cur.Description), cur.Status, cur.Priority,
		cur.DueDate, cur.CategoryID, mustJSON(cur.Tags), cur.EstimatedHours,
		id, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	err = tx.QueryRowContext(ctx,
		"SELECT updated_at FROM tasks WHERE id=?", id).Scan(&cur.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	return cur, nil
}

// Delete removes a task and decrements its category counter, if any, in
// the same transaction.
func (r *TaskRepo) Delete(ctx context.Context, id, ownerID uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	cur, err := lockTask(ctx, tx, id, ownerID)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id); err != nil {
		return err
	}
	if cur.CategoryID != nil {
		err = bumpTaskCount(ctx, tx, *cur.CategoryID, -1)
	}
	return err
}

// SetStatus applies the one transition rule: an archived task may only be
// re-set to archived (a no-op), never moved elsewhere.
func (r *TaskRepo) SetStatus(ctx context.Context, id, ownerID uint64, status string) (model.Task, error) {
	cur, err := r.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	if !model.CanTransition(cur.Status, status) {
		return model.Task{}, ErrInvalidTransition
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE tasks SET status=? WHERE id=? AND user_id=?", status, id, ownerID); err != nil {
		return model.Task{}, err
	}
	cur.Status = status
	if err := r.DB.QueryRowContext(ctx,
		"SELECT updated_at FROM tasks WHERE id=?", id).Scan(&cur.UpdatedAt); err != nil {
		return model.Task{}, err
	}
	return cur, nil
}

// SetPriority overwrites the priority unconditionally.
func (r *TaskRepo) SetPriority(ctx context.Context, id, ownerID uint64, priority string) (model.Task, error) {
	cur, err := r.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE tasks SET priority=? WHERE id=? AND user_id=?", priority, id, ownerID); err != nil {
		return model.Task{}, err
	}
	cur.Priority = priority
	if err := r.DB.QueryRowContext(ctx,
		"SELECT updated_at FROM tasks WHERE id=?", id).Scan(&cur.UpdatedAt); err != nil {
		return model.Task{}, err
	}
	return cur, nil
}

// Share appends targetID to the task's share set. The caller must own the
// task; a target already in the set yields ErrAlreadyShared. The grant
// confers read visibility only.
func (r *TaskRepo) Share(ctx context.Context, id, ownerID, targetID uint64) (out model.Task, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	cur, err := lockTask(ctx, tx, id, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	for _, uid := range cur.SharedWith {
		if uid == targetID {
			err = ErrAlreadyShared
			return model.Task{}, err
		}
	}
	cur.SharedWith = append(cur.SharedWith, targetID)
	_, err = tx.ExecContext(ctx,
		"UPDATE tasks SET shared_with=? WHERE id=?", mustJSON(cur.SharedWith), id)
	if err != nil {
		return model.Task{}, err
	}
	return cur, nil
}

// SharedWithRow is a task visible to the caller through a share grant,
// carrying the owner's public identity alongside the task.
type SharedWithRow struct {
	model.Task
	OwnerUsername string `json:"ownerUsername"`
	OwnerEmail    string `json:"ownerEmail"`
}

// ListSharedWith returns every task whose share set contains userID,
// regardless of the task's owner.
func (r *TaskRepo) ListSharedWith(ctx context.Context, userID uint64) ([]SharedWithRow, error) {
	// JSON_CONTAINS needs the candidate as a JSON document; a bare
	// decimal string parses as a JSON number.
	candidate := strconv.FormatUint(userID, 10)
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+`, c.name, c.color, u.username, u.email
		FROM tasks t
		LEFT JOIN categories c ON c.id = t.category_id
		JOIN users u ON u.id = t.user_id
		WHERE JSON_CONTAINS(t.shared_with, ?)
		ORDER BY t.updated_at DESC`, candidate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SharedWithRow, 0)
	for rows.Next() {
		var row SharedWithRow
		var st taskScanState
		var catName, catColor sql.NullString
		if err := rows.Scan(st.dest(&row.Task, &catName, &catColor, &row.OwnerUsername, &row.OwnerEmail)...); err != nil {
			return nil, err
		}
		st.finish(&row.Task)
		row.CategoryName = catName.String
		row.CategoryColor = catColor.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// ----- shared scanning / tx helpers -----

// lockTask reads a task row FOR UPDATE inside tx, owner-scoped.
func lockTask(ctx context.Context, tx *sql.Tx, id, ownerID uint64) (model.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+`
		FROM tasks t WHERE t.id=? AND t.user_id=? FOR UPDATE`, id, ownerID)
	var t model.Task
	var st taskScanState
	if err := row.Scan(st.dest(&t)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, err
	}
	st.finish(&t)
	return t, nil
}

// lockCategory verifies ownership of a category and locks its row so the
// counter update cannot race a concurrent delete.
func lockCategory(ctx context.Context, tx *sql.Tx, id, ownerID uint64) error {
	var found uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM categories WHERE id=? AND user_id=? FOR UPDATE", id, ownerID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	return err
}

// bumpTaskCount atomically adjusts a category's denormalized counter.
func bumpTaskCount(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE categories SET task_count = GREATEST(0, CAST(task_count AS SIGNED) + ?) WHERE id=?",
		delta, id)
	return err
}

// relinkCategory moves a task from oldCat to newCat: decrement the old
// counter, validate and lock the new category, increment its counter.
// Either side may be nil.
func relinkCategory(ctx context.Context, tx *sql.Tx, oldCat, newCat *uint64, ownerID uint64) error {
	if oldCat != nil && newCat != nil && *oldCat == *newCat {
		return nil
	}
	if oldCat != nil {
		if err := bumpTaskCount(ctx, tx, *oldCat, -1); err != nil {
			return err
		}
	}
	if newCat != nil {
		if err := lockCategory(ctx, tx, *newCat, ownerID); err != nil {
			return err
		}
		if err := bumpTaskCount(ctx, tx, *newCat, +1); err != nil {
			return err
		}
	}
	return nil
}

// taskScanState carries the nullable column targets used while scanning a
// task row; finish folds them back into the model.
type taskScanState struct {
	desc   sql.NullString
	due    sql.NullTime
	catID  sql.NullInt64
	hours  sql.NullFloat64
	tags   []byte
	shared []byte
}

// dest returns the scan destinations for the taskColumns select list,
// followed by any extra columns.
func (st *taskScanState) dest(t *model.Task, extra ...any) []any {
	d := []any{
		&t.ID, &t.UserID, &t.Title, &st.desc, &t.Status, &t.Priority,
		&st.due, &st.catID, &st.tags, &st.hours, &st.shared,
		&t.CreatedAt, &t.UpdatedAt,
	}
	return append(d, extra...)
}

func (st *taskScanState) finish(t *model.Task) {
	if st.desc.Valid {
		t.Description = st.desc.String
	}
	if st.due.Valid {
		d := st.due.Time
		t.DueDate = &d
	}
	if st.catID.Valid {
		id := uint64(st.catID.Int64)
		t.CategoryID = &id
	}
	if st.hours.Valid {
		h := st.hours.Float64
		t.EstimatedHours = &h
	}
	t.Tags = decodeStrings(st.tags)
	t.SharedWith = decodeIDs(st.shared)
}

// scanTaskWithCategory scans a task row followed by the joined category
// name/color pair.
func scanTaskWithCategory(row interface{ Scan(...any) error }) (model.Task, error) {
	var t model.Task
	var st taskScanState
	var catName, catColor sql.NullString
	if err := row.Scan(st.dest(&t, &catName, &catColor)...); err != nil {
		return model.Task{}, err
	}
	st.finish(&t)
	t.CategoryName = catName.String
	t.CategoryColor = catColor.String
	return t, nil
}

func decodeStrings(raw []byte) []string {
	out := []string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func decodeIDs(raw []byte) []uint64 {
	out := []uint64{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// mustJSON marshals slices destined for JSON columns; the inputs are
// always marshalable slices, never user-controlled structures.
func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
