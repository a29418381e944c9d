package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

const refreshTestSecret = "refresh-secret"

func newRefreshHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Config{
		AccessSecret:   "access-secret",
		RefreshSecret:  refreshTestSecret,
		AccessTTLMin:   60,
		RefreshTTLDays: 7,
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db)), mock
}

func userRow(storedHash string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role",
		"refresh_token_hash", "created_at", "updated_at",
	}).AddRow(1, "alice", "a@b.com", "$2a$04$notchecked", "standard",
		storedHash, now, now)
}

// A token that verifies but was already rotated out must be rejected:
// only the hash of the most recently issued refresh token is live.
func TestRefreshRejectsRotatedOutToken(t *testing.T) {
	h, mock := newRefreshHandler(t)

	old, err := utils.NewRefreshToken(refreshTestSecret, 1, 7)
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(userRow(utils.HashToken("a-newer-token")))

	c, rec := newTestContext(t, http.MethodPost, "/auth/refresh",
		`{"refresh_token":"`+old.Token+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeInvalidToken {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRefreshRotatesStoredHash(t *testing.T) {
	h, mock := newRefreshHandler(t)

	live, err := utils.NewRefreshToken(refreshTestSecret, 1, 7)
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(userRow(utils.HashToken(live.Token)))
	// Issuing the new pair overwrites the stored hash in one UPDATE.
	mock.ExpectExec("UPDATE users SET refresh_token_hash").
		WithArgs(sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newTestContext(t, http.MethodPost, "/auth/refresh",
		`{"refresh_token":"`+live.Token+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if env := decodeEnvelope(t, rec); !env.Success || env.Error != nil {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
