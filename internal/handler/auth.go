package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// userPart carries the public user fields; password and refresh token
// never appear in a response.
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func publicUser(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// issueTokens signs a fresh access/refresh pair and persists the refresh
// token hash on the user row, rotating out whatever was stored before.
func (h *AuthHandler) issueTokens(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Users.SetRefreshToken(ctx, u.ID, utils.HashToken(refresh.Token)); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    publicUser(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Token, Expires: refresh.Exp},
	}, nil
}

// Register creates the user and returns a token pair immediately. A
// username or email already in use fails with USER_EXISTS regardless of
// which one collided.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return fail(c, http.StatusConflict, CodeUserExists, "username or email already in use")
		}
		return serverError(c, h.Cfg.Production(), err)
	}

	resp, err := h.issueTokens(ctx, model.User{
		ID: uid, Username: req.Username, Email: req.Email, Role: model.RoleStandard,
	})
	if err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusCreated, resp)
}

// Login verifies credentials and rotates the token pair. An unknown email
// and a wrong password produce byte-identical responses so the endpoint
// cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
		}
		return serverError(c, h.Cfg.Production(), err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
	}

	resp, err := h.issueTokens(ctx, u)
	if err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, resp)
}

// Refresh exchanges a live refresh token for a new pair. The presented
// token must verify against the refresh secret AND match the single hash
// stored for its subject; a token that was already rotated out therefore
// always fails, which is what makes rotation single-use.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return fail(c, http.StatusBadRequest, CodeNoToken, "refresh token required")
	}

	userID, _, err := utils.VerifyToken(h.Cfg.RefreshSecret, raw)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeInvalidToken, "invalid refresh token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusUnauthorized, CodeInvalidToken, "invalid refresh token")
		}
		return serverError(c, h.Cfg.Production(), err)
	}
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != utils.HashToken(raw) {
		return fail(c, http.StatusUnauthorized, CodeInvalidToken, "invalid refresh token")
	}

	resp, err := h.issueTokens(ctx, u)
	if err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, resp)
}

// Logout clears the stored refresh token for the authenticated user.
// Idempotent: logging out twice is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.ClearRefreshToken(ctx, userID); err != nil {
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's public profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
		}
		return serverError(c, h.Cfg.Production(), err)
	}
	return ok(c, http.StatusOK, publicUser(u))
}

// currentUser extracts the authenticated user id placed in the context by
// the auth middleware.
func currentUser(c echo.Context) (uint64, error) {
	if v, ok := c.Get(middleware.CtxUserID).(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errors.New("no authenticated user in context")
}
