package middleware // middleware contains reusable HTTP middleware for protected routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// Context keys populated by Authenticate for downstream handlers.
const (
	CtxUserID   = "user_id"
	CtxUserRole = "role"
)

// Authenticate resolves the bearer access token to a live user on every
// protected request. The token signature and expiry are verified and the
// user row is loaded, so a deleted account fails even with a valid token.
// Every failure mode (missing header, malformed header, bad signature,
// expiry, vanished user) yields the same response on purpose: callers
// must not be able to probe which part failed.
func Authenticate(accessSecret string, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			userID, _, err := utils.VerifyToken(accessSecret, raw)
			if err != nil {
				return unauthorized(c)
			}
			u, err := users.GetByID(c.Request().Context(), userID)
			if err != nil {
				return unauthorized(c)
			}

			c.Set(CtxUserID, u.ID)
			c.Set(CtxUserRole, u.Role)
			return next(c)
		}
	}
}

// RequireRole enforces that the authenticated user's role is in the
// allowed set. It assumes Authenticate ran earlier in the chain.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"error":   echo.Map{"code": "FORBIDDEN", "message": "forbidden"},
				})
			}
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"success": false,
		"error":   echo.Map{"code": "UNAUTHORIZED", "message": "unauthorized"},
	})
}

// currentUserID renders the authenticated user id for cache and rate
// limit keys; unauthenticated requests share the "anon" bucket.
func currentUserID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(uint64); ok && v != 0 {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
