package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/iliyamo/task-tracker/internal/config"
)

func TestCreateCategoryValidation(t *testing.T) {
	h := NewCategoryHandler(config.Config{}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{}`},
		{"whitespace name", `{"name":"  "}`},
		{"name too long", `{"name":"` + strings.Repeat("a", 51) + `"}`},
		{"bad color", `{"name":"work","color":"blue"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newIdentifiedContext(t, http.MethodPost, "/categories", tc.body)
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

func TestDeleteCategoryIDMustBeNumeric(t *testing.T) {
	h := NewCategoryHandler(config.Config{}, nil)
	c, rec := newIdentifiedContext(t, http.MethodDelete, "/categories/xyz", "")
	c.SetParamNames("id")
	c.SetParamValues("xyz")
	if err := h.Delete(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != CodeInvalidID {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestCategoryEndpointsRequireIdentity(t *testing.T) {
	h := NewCategoryHandler(config.Config{}, nil)

	c, rec := newTestContext(t, http.MethodGet, "/categories", "")
	if err := h.List(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("List status = %d, want 401", rec.Code)
	}

	c, rec = newTestContext(t, http.MethodPost, "/categories", `{"name":"work"}`)
	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Create status = %d, want 401", rec.Code)
	}
}
