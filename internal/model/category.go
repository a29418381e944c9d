package model

import "time"

// DefaultCategoryColor is applied when a category is created without an
// explicit color.
const DefaultCategoryColor = "#3b82f6"

// Category mirrors the `categories` table. TaskCount is a denormalized
// counter of non-deleted tasks referencing this category; it is adjusted
// in the same transaction as every task/category linkage change.
type Category struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"-"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	TaskCount uint64    `json:"taskCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
