package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/soportec/helpdesk-core/internal/api/http"
	"github.com/soportec/helpdesk-core/internal/api/http/handlers"
	"github.com/soportec/helpdesk-core/internal/auth"
	"github.com/soportec/helpdesk-core/internal/config"
	"github.com/soportec/helpdesk-core/internal/events"
	"github.com/soportec/helpdesk-core/internal/observability"
	"github.com/soportec/helpdesk-core/internal/persistence"
	"github.com/soportec/helpdesk-core/internal/presence"
	"github.com/soportec/helpdesk-core/internal/repository"
	"github.com/soportec/helpdesk-core/internal/service"
	"github.com/soportec/helpdesk-core/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	uow := repository.NewUnitOfWork(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	branchRepo := repository.NewBranchRepository(pool)

	presenceStore := presence.NewStore(redis.Client, cfg.Presence.TTL())
	dispatcher := events.NewInMemoryDispatcher()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	metrics := observability.NewMetrics()

	auditService := service.NewAuditService(auditRepo, logger, dispatcher)
	guardService := service.NewWorkGuardService(ticketRepo)
	lifecycleService := service.NewLifecycleService(uow, dispatcher)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		UnitOfWork: uow,
		UserRepo:   userRepo,
		Presence:   presenceStore,
		Dispatcher: dispatcher,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		UnitOfWork: uow,
		TicketRepo: ticketRepo,
		BranchRepo: branchRepo,
		Dispatcher: dispatcher,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:  userRepo,
		Tokens:    tokens,
		Presence:  presenceStore,
		WorkGuard: guardService,
		Audit:     auditService,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, presenceStore)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:   handlers.NewAuthHandler(authService),
		Tickets: handlers.NewTicketsHandler(handlers.TicketsHandlerDependencies{
			Tickets:     ticketService,
			Lifecycle:   lifecycleService,
			Assignments: assignmentService,
			WorkGuard:   guardService,
			Audit:       auditService,
		}),
		Audit:          handlers.NewAuditHandler(auditService),
		Users:          handlers.NewUsersHandler(assignmentService, branchRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
