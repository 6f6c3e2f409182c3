package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paypadi/wallet-backend/api/routes"
	"github.com/paypadi/wallet-backend/internal/ledger"
	"github.com/paypadi/wallet-backend/internal/locker"
	"github.com/paypadi/wallet-backend/internal/reconciliation"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
		paystack.WithWebhookSecret(cfg.Paystack.WebhookSecret),
		paystack.WithCallbackURL(cfg.Paystack.CallbackURL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	coordinator, err := transfer.NewCoordinator(transfer.CoordinatorParams{
		Wallets:      wallet.NewRepository(dbClient.DB()),
		Ledger:       ledgerService,
		Reservations: transfer.NewReservationRepository(dbClient.DB()),
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

	unmatchedRepo := reconciliation.NewRepository(dbClient.DB())
	gateway, err := reconciliation.NewGateway(coordinator, unmatchedRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation gateway", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Wallets:        walletService,
			Entries:        ledgerService,
			Coordinator:    coordinator,
			Reconciliation: gateway,
			Unmatched:      unmatchedRepo,
			Paystack:       paystackClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
