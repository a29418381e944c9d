package database

import (
	"context"
	"database/sql"
)

// The unique indexes below carry domain rules: users are unique by both
// username and email, and category names are unique per owner, not
// globally. Duplicate-key violations on these indexes surface as the
// corresponding *Exists errors in the repository layer.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username           VARCHAR(50)  NOT NULL,
		email              VARCHAR(255) NOT NULL,
		password_hash      VARCHAR(100) NOT NULL,
		role               VARCHAR(20)  NOT NULL DEFAULT 'standard',
		refresh_token_hash CHAR(64)     NULL,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS categories (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		name       VARCHAR(50) NOT NULL,
		color      VARCHAR(7)  NOT NULL DEFAULT '#3b82f6',
		task_count INT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_categories_owner_name (user_id, name),
		KEY idx_categories_owner (user_id),
		CONSTRAINT fk_categories_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id         BIGINT UNSIGNED NOT NULL,
		title           VARCHAR(200) NOT NULL,
		description     TEXT NULL,
		status          VARCHAR(20) NOT NULL DEFAULT 'todo',
		priority        VARCHAR(10) NOT NULL DEFAULT 'medium',
		due_date        DATETIME NULL,
		category_id     BIGINT UNSIGNED NULL,
		tags            JSON NOT NULL,
		estimated_hours DOUBLE NULL,
		shared_with     JSON NOT NULL,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tasks_owner_status (user_id, status),
		KEY idx_tasks_owner_due (user_id, due_date),
		KEY idx_tasks_category (category_id),
		CONSTRAINT fk_tasks_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_tasks_category FOREIGN KEY (category_id) REFERENCES categories (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables if they do not exist yet. Statements
// are idempotent so repeated startups are safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
