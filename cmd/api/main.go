package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httpapi "github.com/spec-kit/support-workflow/internal/api/http"
	"github.com/spec-kit/support-workflow/internal/api/http/handlers"
	"github.com/spec-kit/support-workflow/internal/auth"
	"github.com/spec-kit/support-workflow/internal/config"
	"github.com/spec-kit/support-workflow/internal/events"
	"github.com/spec-kit/support-workflow/internal/observability"
	"github.com/spec-kit/support-workflow/internal/persistence"
	"github.com/spec-kit/support-workflow/internal/repository"
	"github.com/spec-kit/support-workflow/internal/service"
	"github.com/spec-kit/support-workflow/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := postgres.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	txManager := repository.NewTxManager(pool)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotifier(dispatcher, logger)

	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		TimelineRepo:   timelineRepo,
		UserRepo:       userRepo,
		TxManager:      txManager,
		Dispatcher:     dispatcher,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		Workflow:       workflowService,
		TxManager:      txManager,
		Dispatcher:     dispatcher,
	})
	assignmentService := service.NewAssignmentService(workflowService)
	statsService := service.NewStatsService(statsRepo, redis, cfg.Stats.CacheTTL(), logger)

	if age := cfg.Worker.AutoCloseAge(); age > 0 {
		closer := worker.NewAutoCloser(ticketRepo, workflowService, age, cfg.Worker.AutoCloseInterval(), logger)
		go closer.Run(ctx)
		logger.Info("auto-close job started",
			zap.Duration("age", age),
			zap.Duration("interval", cfg.Worker.AutoCloseInterval()),
		)
	}

	tokens := auth.NewTokenManager(cfg.Auth)
	authMiddleware := auth.NewMiddleware(tokens, userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httpapi.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httpapi.RegisterRoutes(app, httpapi.RouteConfig{
		Health:         handlers.NewHealthHandler(postgres, redis),
		Tickets:        handlers.NewTicketsHandler(workflowService, messageService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
