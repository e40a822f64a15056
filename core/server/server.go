package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetsync-api/core/cache"
	"meetsync-api/core/config"
	"meetsync-api/core/constants"
	"meetsync-api/core/database"
	"meetsync-api/core/logger"
	"meetsync-api/core/middleware"
	"meetsync-api/core/queue"
	"meetsync-api/modules/availability"
	"meetsync-api/modules/calendar"
	"meetsync-api/modules/meeting"
	"meetsync-api/modules/notification"
	"meetsync-api/modules/proposal"
	proposalService "meetsync-api/modules/proposal/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// Run wires every layer and blocks until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Server.LogLevel)

	db, err := database.InitDB(database.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
	})
	if err != nil {
		return err
	}

	cacheClient, err := cache.InitCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}

	q := queue.New(queue.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer q.Shutdown()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())

	mw := middleware.NewMiddleware()

	// Module wiring. The proposal engine comes first so the modules that
	// invalidate its cache can take it as a dependency.
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	notifSvc := notification.Init(privateRoutes, db, mw)
	propSvc, scheduler := proposal.Init(e, db, cacheClient, q, notifSvc, mw)
	meeting.Init(e, db, propSvc, mw)
	availability.Init(e, db, propSvc, mw)
	calendar.Init(e, db, propSvc, mw)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Background workers
	mux := asynq.NewServeMux()
	mux.HandleFunc(constants.TaskRegenerateBatch, scheduler.HandleBatchTask)
	mux.HandleFunc(constants.TaskRegenerateEvent, scheduler.HandleRegenerateEventTask)
	q.StartWorker(mux)

	batchTask, err := proposalService.NewBatchTask(cfg.Scheduler.MaxEvents, cfg.Scheduler.InterCallDelay)
	if err != nil {
		return fmt.Errorf("build batch task: %w", err)
	}
	if err := q.RegisterPeriodic(cfg.Scheduler.BatchCron, batchTask); err != nil {
		return fmt.Errorf("register periodic batch: %w", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Run:Start", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server:Run:ShuttingDown")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
