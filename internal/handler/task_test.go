package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/middleware"
)

func newIdentifiedContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := newTestContext(t, method, target, body)
	c.Set(middleware.CtxUserID, uint64(1))
	c.Set(middleware.CtxUserRole, "standard")
	return c, rec
}

func TestTaskEndpointsRequireIdentity(t *testing.T) {
	h := NewTaskHandler(config.Config{}, nil, nil, nil)

	cases := []struct {
		name string
		call func(echo.Context) error
	}{
		{"list", h.List},
		{"get", h.Get},
		{"create", h.Create},
		{"update", h.Update},
		{"delete", h.Delete},
		{"status", h.SetStatus},
		{"priority", h.SetPriority},
		{"share", h.Share},
		{"shared-with-me", h.SharedWithMe},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t, http.MethodGet, "/tasks", "")
			if err := tc.call(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeUnauthorized {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestTaskIDMustBeNumeric(t *testing.T) {
	h := NewTaskHandler(config.Config{}, nil, nil, nil)

	cases := []struct {
		name string
		call func(echo.Context) error
	}{
		{"get", h.Get},
		{"update", h.Update},
		{"delete", h.Delete},
		{"status", h.SetStatus},
		{"priority", h.SetPriority},
		{"share", h.Share},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newIdentifiedContext(t, http.MethodGet, "/tasks/abc", "")
			c.SetParamNames("id")
			c.SetParamValues("abc")
			if err := tc.call(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeInvalidID {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestCreateTaskValidation(t *testing.T) {
	h := NewTaskHandler(config.Config{}, nil, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{}`},
		{"whitespace title", `{"title":"   "}`},
		{"bad status", `{"title":"write report","status":"someday"}`},
		{"bad priority", `{"title":"write report","priority":"urgent"}`},
		{"negative hours", `{"title":"write report","estimatedHours":-2}`},
		{"past due date", `{"title":"write report","dueDate":"2001-01-01T00:00:00Z"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newIdentifiedContext(t, http.MethodPost, "/tasks", tc.body)
			if err := h.Create(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeValidation {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestSetStatusValidation(t *testing.T) {
	h := NewTaskHandler(config.Config{}, nil, nil, nil)
	for _, body := range []string{`{}`, `{"status":"done"}`} {
		c, rec := newIdentifiedContext(t, http.MethodPatch, "/tasks/1/status", body)
		c.SetParamNames("id")
		c.SetParamValues("1")
		if err := h.SetStatus(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400 for body %s", rec.Code, body)
		}
		if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeValidation {
			t.Errorf("unexpected envelope for body %s: %+v", body, env)
		}
	}
}

func TestShareRequiresTarget(t *testing.T) {
	h := NewTaskHandler(config.Config{}, nil, nil, nil)
	c, rec := newIdentifiedContext(t, http.MethodPost, "/tasks/1/share", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Share(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeValidation {
		t.Errorf("unexpected envelope: %+v", env)
	}
}
