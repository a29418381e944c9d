package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/query"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/service"
)

// TaskHandler serves the owner-scoped task CRUD plus status, priority and
// sharing operations. Events is optional; task activity is published
// best-effort and never fails a request.
type TaskHandler struct {
	Cfg    config.Config
	Tasks  *repository.TaskRepo
	Users  *repository.UserRepo
	Events *service.ActivityPublisher
}

func NewTaskHandler(cfg config.Config, tasks *repository.TaskRepo, users *repository.UserRepo, events *service.ActivityPublisher) *TaskHandler {
	return &TaskHandler{Cfg: cfg, Tasks: tasks, Users: users, Events: events}
}

// ----- DTOs -----

type createTaskReq struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    string     `json:"description" validate:"max=1000"`
	Status         string     `json:"status" validate:"omitempty,oneof=todo in-progress completed archived"`
	Priority       string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate        *time.Time `json:"dueDate" validate:"omitempty,gt"`
	Category       *uint64    `json:"category"`
	Tags           []string   `json:"tags"`
	EstimatedHours *float64   `json:"estimatedHours" validate:"omitempty,gte=0"`
}

// updateTaskReq is the allow-listed update payload: only these named
// fields can change, and a field left out of the body stays untouched.
// Sending "category": 0 clears the category reference.
type updateTaskReq struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=1000"`
	Status         *string    `json:"status" validate:"omitempty,oneof=todo in-progress completed archived"`
	Priority       *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate        *time.Time `json:"dueDate" validate:"omitempty,gt"`
	Category       *uint64    `json:"category"`
	Tags           *[]string  `json:"tags"`
	EstimatedHours *float64   `json:"estimatedHours" validate:"omitempty,gte=0"`
}

type setStatusReq struct {
	Status string `json:"status" validate:"required,oneof=todo in-progress completed archived"`
}

type setPriorityReq struct {
	Priority string `json:"priority" validate:"required,oneof=low medium high"`
}

type shareReq struct {
	UserID uint64 `json:"userId" validate:"required"`
}

type paginationPart struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// List applies the request's filter/sort/pagination parameters, always
// scoped to the caller. statusCounts covers the caller's entire task set
// rather than the filtered subset; clients rely on it as a dashboard
// figure, so it is kept that way even though pagination.total reflects
// only the filtered rows.
func (h *TaskHandler) List(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	q := query.Parse(c.QueryParams())

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, total, counts, err := h.Tasks.List(ctx, userID, q)
	if err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	pages := int64(math.Ceil(float64(total) / float64(q.Limit)))
	return ok(c, http.StatusOK, echo.Map{
		"tasks":        tasks,
		"pagination":   paginationPart{Page: q.Page, Limit: q.Limit, Total: total, Pages: pages},
		"statusCounts": counts,
	})
}

// Get returns one task owned by the caller.
func (h *TaskHandler) Get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid task id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tasks.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		return h.taskError(c, err)
	}
	return ok(c, http.StatusOK, t)
}

// Create inserts a task for the caller. A supplied category must belong
// to the caller; its task counter moves with the insert atomically.
func (h *TaskHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	if req.Status == "" {
		req.Status = model.StatusTodo
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	t := model.Task{
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		CategoryID:     req.Category,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		SharedWith:     []uint64{},
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.Create(ctx, &t); err != nil {
		return h.taskError(c, err)
	}
	h.publish(queue.ActionTaskCreated, t, userID, 0)
	return ok(c, http.StatusCreated, t)
}

// Update applies an allow-listed partial update. The task id and owner
// can never be overwritten by the payload.
func (h *TaskHandler) Update(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid task id")
	}
	var req updateTaskReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tasks.Update(ctx, id, userID, repository.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		Category:       req.Category,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		return h.taskError(c, err)
	}
	return ok(c, http.StatusOK, t)
}

// Delete removes a task; its category counter, if any, moves with it.
func (h *TaskHandler) Delete(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid task id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.Delete(ctx, id, userID); err != nil {
		return h.taskError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "task deleted"})
}

// SetStatus changes a task's status. Archived is terminal: any attempt to
// move an archived task elsewhere fails with INVALID_TRANSITION, while
// re-archiving succeeds as a no-op.
func (h *TaskHandler) SetStatus(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid task id")
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tasks.SetStatus(ctx, id, userID, req.Status)
	if err != nil {
		return h.taskError(c, err)
	}
	h.publish(queue.ActionStatusChanged, t, userID, 0)
	return ok(c, http.StatusOK, t)
}

// SetPriority overwrites a task's priority unconditionally.
func (h *TaskHandler) SetPriority(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid task id")
	}
	var req setPriorityReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tasks.SetPriority(ctx, id, userID, req.Priority)
	if err != nil {
		return h.taskError(c, err)
	}
	return ok(c, http.StatusOK, t)
}

// Share grants another user read visibility on a task the caller owns.
func (h *TaskHandler) Share(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid task id")
	}
	var req shareReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The share target must be a real account.
	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, CodeUserNotFound, "user not found")
		}
		return serverError(c, h.Cfg.Production(), err)
	}

	t, err := h.Tasks.Share(ctx, id, userID, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyShared) {
			return fail(c, http.StatusConflict, CodeAlreadyShared, "task already shared with this user")
		}
		return h.taskError(c, err)
	}
	h.publish(queue.ActionTaskShared, t, userID, req.UserID)
	return ok(c, http.StatusOK, t)
}

// SharedWithMe lists every task shared with the caller, whoever owns it.
func (h *TaskHandler) SharedWithMe(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Tasks.ListSharedWith(ctx, userID)
	if err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, echo.Map{"tasks": items})
}

// taskError maps repository sentinels to taxonomy responses. Ownership
// failures and true absence share a NOT_FOUND response deliberately.
func (h *TaskHandler) taskError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound):
		return fail(c, http.StatusNotFound, CodeNotFound, "task not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		return fail(c, http.StatusNotFound, CodeNotFound, "category not found")
	case errors.Is(err, repository.ErrInvalidTransition):
		return fail(c, http.StatusBadRequest, CodeInvalidTransition, "archived tasks cannot change status")
	}
	return serverError(c, h.Cfg.Production(), err)
}

// publish emits a task activity event. Failures are swallowed: the event
// stream is an observer of the API, never a participant.
func (h *TaskHandler) publish(action string, t model.Task, actorID, targetID uint64) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = h.Events.Publish(ctx, queue.TaskActivityEvent{
		Action:     action,
		TaskID:     t.ID,
		Title:      t.Title,
		Status:     t.Status,
		ActorID:    actorID,
		TargetID:   targetID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
