// Package router wires handlers, middleware and routes onto the Echo
// instance. Every /tasks and /categories route sits behind the
// authentication gate; /auth/me and /auth/logout require a session too.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/repository"
)

// Register sets up global middleware and all application routes. rdb may
// be nil; rate limiting and response caching then disable themselves.
func Register(
	e *echo.Echo,
	cfg config.Config,
	log *zap.SugaredLogger,
	auth *handler.AuthHandler,
	tasks *handler.TaskHandler,
	categories *handler.CategoryHandler,
	users *repository.UserRepo,
	rdb *redis.Client,
) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			log.Infow("request", fields...)
			return nil
		},
	}))
	// Rate limiting runs after Authenticate on protected groups so the
	// bucket key carries the resolved user id; public routes bucket by
	// IP alone (the key's user component is "anon" there).
	rateLimited := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Session management. Register/login/refresh mint tokens and need no
	// existing session; me/logout resolve the caller first.
	authenticated := middleware.Authenticate(cfg.AccessSecret, users)

	a := e.Group("/auth", rateLimited)
	a.POST("/register", auth.Register)
	a.POST("/login", auth.Login)
	a.POST("/refresh", auth.Refresh)
	a.GET("/me", auth.Me, authenticated)
	a.POST("/logout", auth.Logout, authenticated)

	anyRole := middleware.RequireRole("standard", "admin")

	t := e.Group("/tasks", authenticated, anyRole, rateLimited)
	t.GET("", tasks.List)
	t.POST("", tasks.Create)
	// Shared listings change rarely and tolerate a short TTL of
	// staleness, so they sit behind the user-scoped response cache.
	t.GET("/shared/me", tasks.SharedWithMe, middleware.CacheResponse(config.LoadCacheConfig(), rdb))
	t.GET("/:id", tasks.Get)
	t.PUT("/:id", tasks.Update)
	t.DELETE("/:id", tasks.Delete)
	t.PATCH("/:id/status", tasks.SetStatus)
	t.PATCH("/:id/priority", tasks.SetPriority)
	t.POST("/:id/share", tasks.Share)

	cg := e.Group("/categories", authenticated, anyRole, rateLimited)
	cg.GET("", categories.List)
	cg.POST("", categories.Create)
	cg.DELETE("/:id", categories.Delete)
}
