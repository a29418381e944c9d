// Package query translates request-supplied filter, sort and pagination
// parameters into SQL fragments. It is a pure translation layer: nothing
// here touches the database, and every produced predicate is implicitly
// combined with an owner equality filter by the repository.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/task-tracker/internal/model"
)

// Pagination defaults. Limit is deliberately uncapped to match the
// observed behavior of the API; callers should treat this as a known
// hardening gap rather than a guarantee.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Sortable request fields mapped to their column names. Anything not in
// this map falls back to the default sort.
var sortColumns = map[string]string{
	"dueDate":   "t.due_date",
	"createdAt": "t.created_at",
	"updatedAt": "t.updated_at",
	"title":     "t.title",
	"status":    "t.status",
	"priority":  "t.priority",
}

// TaskQuery holds the parsed filter/sort/pagination parameters of a task
// list request.
type TaskQuery struct {
	Statuses   []string   // status=a,b -> status IN (a,b); unknown values dropped
	Priority   string     // exact match
	CategoryID uint64     // exact match, 0 means unset
	DueFrom    *time.Time // inclusive lower bound
	DueTo      *time.Time // inclusive upper bound
	Search     string     // substring over title OR description OR tags
	SortColumn string     // resolved column name
	SortDesc   bool
	Page       int // 1-indexed
	Limit      int
}

// Parse builds a TaskQuery from raw query string values. Defaults:
// page=1, limit=10, sort=dueDate:asc. A sort direction other than "desc"
// is treated as ascending.
func Parse(values url.Values) TaskQuery {
	q := TaskQuery{
		SortColumn: sortColumns["dueDate"],
		Page:       DefaultPage,
		Limit:      DefaultLimit,
	}

	if raw := values.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if model.ValidStatus(s) {
				q.Statuses = append(q.Statuses, s)
			}
		}
	}
	if p := strings.TrimSpace(values.Get("priority")); model.ValidPriority(p) {
		q.Priority = p
	}
	if raw := values.Get("category"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			q.CategoryID = id
		}
	}
	if t, ok := parseDate(values.Get("dueFrom")); ok {
		q.DueFrom = &t
	}
	if t, ok := parseDate(values.Get("dueTo")); ok {
		q.DueTo = &t
	}
	q.Search = strings.TrimSpace(values.Get("search"))

	if raw := values.Get("sort"); raw != "" {
		field, dir, _ := strings.Cut(raw, ":")
		if col, ok := sortColumns[strings.TrimSpace(field)]; ok {
			q.SortColumn = col
			q.SortDesc = strings.EqualFold(strings.TrimSpace(dir), "desc")
		}
	}

	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n > 0 {
		q.Limit = n
	}
	return q
}

// Where returns the SQL condition and bind args for this query, always
// starting from the owner scope. The condition references the tasks
// table via the alias `t`.
func (q TaskQuery) Where(ownerID uint64) (string, []any) {
	where := []string{"t.user_id = ?"}
	args := []any{ownerID}

	if len(q.Statuses) > 0 {
		ph := strings.Repeat("?,", len(q.Statuses))
		where = append(where, "t.status IN ("+ph[:len(ph)-1]+")")
		for _, s := range q.Statuses {
			args = append(args, s)
		}
	}
	if q.Priority != "" {
		where = append(where, "t.priority = ?")
		args = append(args, q.Priority)
	}
	if q.CategoryID != 0 {
		where = append(where, "t.category_id = ?")
		args = append(args, q.CategoryID)
	}
	if q.DueFrom != nil {
		where = append(where, "t.due_date >= ?")
		args = append(args, *q.DueFrom)
	}
	if q.DueTo != nil {
		where = append(where, "t.due_date <= ?")
		args = append(args, *q.DueTo)
	}
	if q.Search != "" {
		needle := "%" + strings.ToLower(q.Search) + "%"
		where = append(where, "(LOWER(t.title) LIKE ? OR LOWER(COALESCE(t.description, '')) LIKE ? OR LOWER(t.tags) LIKE ?)")
		args = append(args, needle, needle, needle)
	}
	return strings.Join(where, " AND "), args
}

// OrderBy returns the ORDER BY clause body, e.g. "t.due_date ASC".
func (q TaskQuery) OrderBy() string {
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	return q.SortColumn + " " + dir
}

// Offset returns the row offset for the current page.
func (q TaskQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// parseDate accepts either RFC 3339 or a bare YYYY-MM-DD date.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
