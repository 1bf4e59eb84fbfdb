package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/supplyledger-backend/api/routes"
	"github.com/angelmondragon/supplyledger-backend/internal/cron"
	"github.com/angelmondragon/supplyledger-backend/internal/inventory"
	"github.com/angelmondragon/supplyledger-backend/internal/purchaseorders"
	"github.com/angelmondragon/supplyledger-backend/pkg/config"
	"github.com/angelmondragon/supplyledger-backend/pkg/db"
	"github.com/angelmondragon/supplyledger-backend/pkg/instance"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
	"github.com/angelmondragon/supplyledger-backend/pkg/metrics"
	"github.com/angelmondragon/supplyledger-backend/pkg/migrate"
	"github.com/angelmondragon/supplyledger-backend/pkg/outbox"
	"github.com/angelmondragon/supplyledger-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Instance:    instance.ID(),
		Format:      cfg.App.LogFormat,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	service, err := buildService(cfg, logg, dbClient, redisClient, ledgerMetrics, metrics.NewCronJobMetrics(reg))
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	server := &http.Server{
		Addr:              ":" + cfg.Ops.Port,
		Handler:           routes.NewOpsRouter(cfg, logg, dbClient, redisClient, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(logg.WithField(groupCtx, "addr", server.Addr), "ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		logg.Info(groupCtx, "starting cron worker")
		return service.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildService(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	ledgerMetrics *metrics.LedgerMetrics,
	cronMetrics *metrics.CronJobMetrics,
) (*cron.Service, error) {
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	auditJob, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:     logg,
		Locations:  inventoryRepo,
		Reconciler: inventory.NewAuditor(inventoryRepo),
		Metrics:    ledgerMetrics,
	})
	if err != nil {
		return nil, err
	}

	overdueJob, err := cron.NewPaymentOverdueJob(cron.PaymentOverdueJobParams{
		Logger: logg,
		DB:     dbClient,
		Orders: purchaseorders.NewRepository(dbClient.DB()),
		Outbox: outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
	})
	if err != nil {
		return nil, err
	}

	registry, err := cron.NewRegistry(auditJob, overdueJob)
	if err != nil {
		return nil, err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
}
