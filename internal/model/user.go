package model

import "time"

// Roles stored in users.role and carried in the JWT "role" claim.
const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// User mirrors the `users` table. PasswordHash and RefreshTokenHash are
// internal columns and must never be serialized into a response; handlers
// build their own public DTOs from the remaining fields.
//
// RefreshTokenHash holds the SHA-256 digest of the single live refresh
// token. Rotation overwrites it, so presenting an already rotated token
// can never match again.
type User struct {
	ID               uint64
	Username         string
	Email            string
	PasswordHash     string
	Role             string
	RefreshTokenHash string // empty when logged out
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
