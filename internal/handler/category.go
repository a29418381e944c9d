package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
)

// CategoryHandler serves the owner-scoped category CRUD.
type CategoryHandler struct {
	Cfg        config.Config
	Categories *repository.CategoryRepo
}

func NewCategoryHandler(cfg config.Config, categories *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Cfg: cfg, Categories: categories}
}

type createCategoryReq struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// List returns all categories owned by the caller.
func (h *CategoryHandler) List(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Categories.ListByOwner(ctx, userID)
	if err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, echo.Map{"categories": items})
}

// Create adds a category. Name uniqueness is per caller; a second
// category of the same name for the same user fails with
// CATEGORY_EXISTS while other users remain free to reuse the name.
func (h *CategoryHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	var req createCategoryReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	if req.Color == "" {
		req.Color = model.DefaultCategoryColor
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cat := model.Category{UserID: userID, Name: req.Name, Color: req.Color}
	if err := h.Categories.Create(ctx, &cat); err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return fail(c, http.StatusConflict, CodeCategoryExists, "category name already exists")
		}
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusCreated, cat)
}

// Delete removes a category and clears the reference on every task of
// the caller that pointed at it, as one operation.
func (h *CategoryHandler) Delete(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid category id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.DeleteByIDAndOwner(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fail(c, http.StatusNotFound, CodeNotFound, "category not found")
		}
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "category deleted"})
}
