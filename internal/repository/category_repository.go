package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/task-tracker/internal/model"
)

// CategoryRepo provides persistence for categories and owns the cascade
// that runs when a category is deleted.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

const categoryColumns = "id, user_id, name, color, task_count, created_at, updated_at"

// Create inserts a category for the owner. The (user_id, name) unique
// index makes name uniqueness per-owner; a violation yields
// ErrCategoryExists. On success the struct is re-read so callers receive
// the DB-populated id, counter and timestamps.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (user_id, name, color) VALUES (?,?,?)",
		c.UserID, c.Name, c.Color)
	if err != nil {
		if isDuplicate(err) {
			return ErrCategoryExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id=?", c.ID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.TaskCount, &c.CreatedAt, &c.UpdatedAt)
}

// ListByOwner returns all of the owner's categories ordered by name.
func (r *CategoryRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id=? ORDER BY name", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.TaskCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByIDAndOwner fetches a category only if it belongs to the owner;
// absence and foreign ownership are indistinguishable.
func (r *CategoryRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Category, error) {
	var c model.Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id=? AND user_id=?", id, ownerID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.TaskCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrCategoryNotFound
	}
	return c, err
}

// DeleteByIDAndOwner removes a category and, in the same transaction,
// clears the category reference on every task of the same owner that
// pointed at it. The task_count invariant holds trivially afterwards
// because the counter row is gone along with the references.
func (r *CategoryRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) (err error) {
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

	var found uint64
	if err = tx.QueryRowContext(ctx,
		"SELECT id FROM categories WHERE id=? AND user_id=?", id, ownerID).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrCategoryNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE tasks SET category_id=NULL WHERE category_id=? AND user_id=?", id, ownerID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	return err
}
