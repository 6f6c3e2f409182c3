package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paypadi/wallet-backend/internal/cron"
	"github.com/paypadi/wallet-backend/internal/ledger"
	"github.com/paypadi/wallet-backend/internal/locker"
	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/internal/wallet"
	"github.com/paypadi/wallet-backend/pkg/config"
	"github.com/paypadi/wallet-backend/pkg/db"
	"github.com/paypadi/wallet-backend/pkg/enums"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/metrics"
	"github.com/paypadi/wallet-backend/pkg/migrate"
	"github.com/paypadi/wallet-backend/pkg/outbox"
	"github.com/paypadi/wallet-backend/pkg/paystack"
	"github.com/paypadi/wallet-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(cfg.Paystack.SecretKey,
		paystack.WithBaseURL(cfg.Paystack.BaseURL),
		paystack.WithTimeout(cfg.Paystack.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	walletService, err := wallet.NewService(wallet.ServiceParams{
		Repo:            wallet.NewRepository(dbClient.DB()),
		Tx:              dbClient,
		Outbox:          outboxService,
		Cache:           redisClient,
		CacheTTL:        cfg.Ledger.BalanceCacheTTL,
		DefaultCurrency: enums.Currency(cfg.Ledger.DefaultCurrency),
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	reservationRepo := transfer.NewReservationRepository(dbClient.DB())
	coordinator, err := transfer.NewCoordinator(transfer.CoordinatorParams{
		Wallets:      wallet.NewRepository(dbClient.DB()),
		Ledger:       ledgerService,
		Reservations: reservationRepo,
		Locks:        locker.New(cfg.Ledger.LockWaitTimeout),
		Tx:           dbClient,
		Outbox:       outboxService,
		Gateway:      paystackClient,
		Invalidator:  walletService,
		Metrics:      metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
		Config:       cfg.Ledger,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer coordinator", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewPendingEntrySweepJob(cron.PendingEntrySweepJobParams{
		Logger:       logg,
		Entries:      ledgerRepo,
		Reservations: reservationRepo,
		Coordinator:  coordinator,
		TopUpExpiry:  cfg.Ledger.TopUpExpiryWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending entry sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  int(cfg.Outbox.Retention / (24 * time.Hour)),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", cfg.Cron.LockKey, env)
}
