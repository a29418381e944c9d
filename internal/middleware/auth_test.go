package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/utils"
)

// runAuthenticated sends a request through Authenticate with a next
// handler that must never be reached. The repository is nil because
// every case here fails before the user lookup.
func runAuthenticated(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Authenticate("access-secret", nil)
	handler := mw(func(c echo.Context) error {
		t.Fatal("next handler reached with invalid credentials")
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestAuthenticateRejectionsAreUniform(t *testing.T) {
	expired, err := utils.NewAccessToken("access-secret", 7, "standard", -1)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := utils.NewAccessToken("some-other-secret", 7, "standard", 60)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"bearer garbage", "Bearer not.a.token"},
		{"expired token", "Bearer " + expired.Token},
		{"wrong signing key", "Bearer " + wrongKey.Token},
	}

	var first string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runAuthenticated(t, tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error.Code != "UNAUTHORIZED" {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
			if first == "" {
				first = rec.Body.String()
			} else if rec.Body.String() != first {
				t.Errorf("responses differ between failure modes:\n%s\n%s", first, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole("admin")
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	run := func(role string, set bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if set {
			c.Set(CtxUserRole, role)
		}
		if err := mw(next)(c); err != nil {
			t.Fatal(err)
		}
		return rec
	}

	if rec := run("admin", true); rec.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", rec.Code)
	}
	if rec := run("standard", true); rec.Code != http.StatusForbidden {
		t.Errorf("standard: status = %d, want 403", rec.Code)
	}
	if rec := run("", false); rec.Code != http.StatusForbidden {
		t.Errorf("no role: status = %d, want 403", rec.Code)
	}
}

func TestCurrentUserIDFallsBackToAnon(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if got := currentUserID(c); got != "anon" {
		t.Errorf("currentUserID = %q, want anon", got)
	}
	c.Set(CtxUserID, uint64(42))
	if got := currentUserID(c); got != "42" {
		t.Errorf("currentUserID = %q, want 42", got)
	}
}
