package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/juicebox/backoffice/api/handler"
	"github.com/juicebox/backoffice/internal/config"
	"github.com/juicebox/backoffice/internal/infrastructure/deadletter"
	"github.com/juicebox/backoffice/internal/infrastructure/monitor"
	pgInfra "github.com/juicebox/backoffice/internal/infrastructure/postgres"
	redisInfra "github.com/juicebox/backoffice/internal/infrastructure/redis"
	"github.com/juicebox/backoffice/internal/middleware"
	"github.com/juicebox/backoffice/internal/router"
	"github.com/juicebox/backoffice/internal/services"
	"github.com/juicebox/backoffice/internal/services/billing"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/internal/services/email"
	shutdown "github.com/juicebox/backoffice/internal/services/lifecycle"
	"github.com/juicebox/backoffice/internal/services/storage"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	"github.com/juicebox/backoffice/pkg/logger"
	"github.com/juicebox/backoffice/repository/postgres"
	redisRepo "github.com/juicebox/backoffice/repository/redis"
	authUC "github.com/juicebox/backoffice/usecase/auth"
	handoffUC "github.com/juicebox/backoffice/usecase/handoff"
	lifecycleUC "github.com/juicebox/backoffice/usecase/lifecycle"
	notificationsUC "github.com/juicebox/backoffice/usecase/notifications"
	overrideUC "github.com/juicebox/backoffice/usecase/override"
	projectUC "github.com/juicebox/backoffice/usecase/project"
	reconcilerUC "github.com/juicebox/backoffice/usecase/reconciler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := shutdown.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	journal, err := deadletter.Open(cfg.DeadLetter.Path, "events")
	if err != nil {
		zapLogger.Fatal("failed to open dead-letter journal", zap.Error(err))
	}
	manager.Register("dead_letter", func(ctx context.Context) error {
		return journal.Close()
	})

	mon := monitor.New(pool, redisClient, journal, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	eventBus := bus.New(cfg.Bus.MaxSubscribers, zapLogger)
	manager.Register("bus", func(ctx context.Context) error {
		eventBus.Close()
		return nil
	})

	projectRepo := postgres.NewProjectRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	activityRepo := postgres.NewActivityRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	handoffRepo := postgres.NewHandoffRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)

	sender := email.NewLogSender(zapLogger)
	billingClient := billing.NewClient(cfg.Billing.APIKey, cfg.Billing.BaseURL, zapLogger)
	uploadSigner := storage.NewSigner(cfg.Storage.SigningSecret, cfg.Storage.BaseURL, cfg.Storage.URLTTL)

	lifecycleSvc := lifecycleUC.New(projectRepo, activityRepo, notificationRepo, eventBus, zapLogger)
	reconcilerSvc := reconcilerUC.New(projectRepo, paymentRepo, activityRepo, notificationRepo, userRepo,
		lifecycleSvc, eventBus, sender, billingClient, zapLogger)
	projectSvc := projectUC.New(projectRepo, paymentRepo, activityRepo, zapLogger)
	overrideSvc := overrideUC.New(projectRepo, paymentRepo, activityRepo, lifecycleSvc, eventBus, zapLogger)
	handoffSvc := handoffUC.New(handoffRepo, projectRepo, activityRepo, notificationRepo, userRepo,
		lifecycleSvc, eventBus, sender, zapLogger)
	notificationSvc := notificationsUC.New(notificationRepo)
	authUseCase := authUC.New(userRepo, sessionRepo, cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)

	redelivery := services.NewRedeliveryProcessor(journal, mon, reconcilerSvc, zapLogger, services.RedeliveryConfig{
		Interval:   cfg.DeadLetter.DrainInterval,
		BatchSize:  50,
		MaxRetries: cfg.DeadLetter.MaxRetry,
	})
	redelivery.Start()
	manager.Register("redelivery", func(ctx context.Context) error {
		redelivery.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, 12*time.Hour),
		Project:      apiHandler.NewProjectHandler(projectSvc, ctxAdapter, zapLogger),
		Override:     apiHandler.NewOverrideHandler(overrideSvc, ctxAdapter, zapLogger),
		Handoff:      apiHandler.NewHandoffHandler(handoffSvc, ctxAdapter, zapLogger),
		Notification: apiHandler.NewNotificationHandler(notificationSvc, ctxAdapter, zapLogger),
		Events:       apiHandler.NewEventsHandler(eventBus, ctxAdapter, zapLogger),
		Upload:       apiHandler.NewUploadHandler(projectSvc, uploadSigner, ctxAdapter, zapLogger),
		Webhook: apiHandler.NewWebhookHandler(reconcilerSvc, journal,
			cfg.Webhook.PaymentSecret, cfg.Webhook.Tolerance, ctxAdapter, zapLogger),
		Identity: apiHandler.NewIdentityHandler(userRepo,
			cfg.Webhook.IdentitySecret, cfg.Webhook.Tolerance, ctxAdapter, zapLogger),
		DeadLetter: apiHandler.NewDeadLetterHandler(journal, redelivery, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:           r.Handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		Name:              cfg.AppName,
		StreamRequestBody: true,
		CloseOnShutdown:   true,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
