package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/database"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/logger"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/router"
	"github.com/iliyamo/task-tracker/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		zlog.Fatalw("database open failed", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		zlog.Fatalw("schema bootstrap failed", "error", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		zlog.Warn("redis unreachable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tasks := repository.NewTaskRepo(db)
	categories := repository.NewCategoryRepo(db)

	events := service.NewActivityPublisher(cfg.AMQPURL)
	if events == nil {
		zlog.Info("RABBITMQ_URL not set; task activity events disabled")
	} else {
		go queue.StartActivityConsumer(cfg.AMQPURL)
	}

	e := echo.New()
	router.Register(e, cfg, zlog,
		handler.NewAuthHandler(cfg, users),
		handler.NewTaskHandler(cfg, tasks, users, events),
		handler.NewCategoryHandler(cfg, categories),
		users, rdb)

	addr := ":" + cfg.Port
	zlog.Infow("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		zlog.Fatalw("server stopped", "error", err)
	}
}
