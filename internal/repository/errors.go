// Package repository contains the data access layer. Sentinel errors let
// handlers map storage outcomes onto the API error taxonomy without
// inspecting driver errors themselves. Ownership failures surface as the
// same not-found sentinels as true absence so handlers cannot leak
// whether a foreign resource exists.
package repository

import (
	"errors"
	"strings"
)

var (
	// ErrUserExists is returned when a registration collides with an
	// existing username or email unique index.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when a user lookup matches no row.
	ErrUserNotFound = errors.New("user not found")

	// ErrCategoryExists is returned when a category name collides with the
	// per-owner (user_id, name) unique index.
	ErrCategoryExists = errors.New("category already exists")

	// ErrCategoryNotFound is returned when a category does not exist or is
	// owned by someone else.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrTaskNotFound is returned when a task does not exist or is owned
	// by someone else.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAlreadyShared is returned when the share target is already
	// present in a task's share set.
	ErrAlreadyShared = errors.New("task already shared with user")

	// ErrInvalidTransition is returned when a status change would leave
	// the terminal archived state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062). Unique indexes enforce the domain uniqueness rules, so
// this is how *Exists errors are detected.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
