package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/internal/config"
	pgInfra "github.com/juicebox/backoffice/internal/infrastructure/postgres"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/pkg/logger"
	"github.com/juicebox/backoffice/repository/postgres"
	jobsUC "github.com/juicebox/backoffice/usecase/jobs"
	lifecycleUC "github.com/juicebox/backoffice/usecase/lifecycle"
)

// Runs the billing scheduler jobs. One-shot by default so it slots into an
// external scheduler; -schedule turns it into a resident daemon driven by
// cron expressions.
func main() {
	var (
		jobName  = flag.String("job", "all", "job to run: grace-expiry, grace-warning, payment-reminder or all")
		schedule = flag.String("schedule", "", "cron expression; when set, run the job on this schedule instead of once")
		timeout  = flag.Duration("timeout", 5*time.Minute, "per-run timeout")
	)
	flag.Parse()

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

	pool, err := pgInfra.NewPool(context.Background(), cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	projectRepo := postgres.NewProjectRepository(pool)
	activityRepo := postgres.NewActivityRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Scheduler jobs write audit and notification rows but have no live
	// subscribers of their own, so they run without a bus.
	lifecycleSvc := lifecycleUC.New(projectRepo, activityRepo, notificationRepo, nil, zapLogger)
	svc := jobsUC.New(projectRepo, notificationRepo, userRepo, lifecycleSvc, email.NewLogSender(zapLogger), zapLogger)

	run := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		return runJobs(ctx, svc, *jobName, zapLogger)
	}

	if *schedule == "" {
		if err := run(); err != nil {
			zapLogger.Error("job run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		if err := run(); err != nil {
			zapLogger.Error("scheduled run failed", zap.Error(err))
		}
	}); err != nil {
		zapLogger.Fatal("invalid cron expression", zap.String("schedule", *schedule), zap.Error(err))
	}
	c.Start()
	zapLogger.Info("job scheduler started", zap.String("job", *jobName), zap.String("schedule", *schedule))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
	zapLogger.Info("job scheduler stopped")
}

func runJobs(ctx context.Context, svc *jobsUC.Service, jobName string, zapLogger *zap.Logger) error {
	type job struct {
		name string
		fn   func(context.Context) (int, error)
	}

	var jobs []job
	switch jobName {
	case "grace-expiry":
		jobs = []job{{"grace-expiry", svc.RunGraceExpiry}}
	case "grace-warning":
		jobs = []job{{"grace-warning", svc.RunGraceWarning}}
	case "payment-reminder":
		jobs = []job{{"payment-reminder", svc.RunPaymentReminder}}
	case "all":
		jobs = []job{
			{"grace-expiry", svc.RunGraceExpiry},
			{"grace-warning", svc.RunGraceWarning},
			{"payment-reminder", svc.RunPaymentReminder},
		}
	default:
		return fmt.Errorf("unknown job %q", jobName)
	}

	for _, j := range jobs {
		count, err := j.fn(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", j.name, err)
		}
		zapLogger.Info("job completed", zap.String("job", j.name), zap.Int("affected", count))
	}
	return nil
}
