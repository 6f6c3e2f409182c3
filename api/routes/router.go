package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paypadi/wallet-backend/api/controllers"
	webhookcontrollers "github.com/paypadi/wallet-backend/api/controllers/webhooks"
	"github.com/paypadi/wallet-backend/api/middleware"
	"github.com/paypadi/wallet-backend/internal/ledger"
	"github.com/paypadi/wallet-backend/internal/reconciliation"
	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/internal/wallet"
	"github.com/paypadi/wallet-backend/pkg/config"
	"github.com/paypadi/wallet-backend/pkg/db"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/paystack"
	"github.com/paypadi/wallet-backend/pkg/redis"
)

// RouterParams collects the services the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Wallets        *wallet.Service
	Entries        *ledger.Service
	Coordinator    *transfer.Coordinator
	Reconciliation *reconciliation.Gateway
	Unmatched      reconciliation.Repository
	Paystack       *paystack.Client
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(params.Reconciliation, params.Paystack, logg))
	})

	r.Route("/api/v1/wallet", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/accounts", controllers.ProvisionAccount(params.Wallets, logg))
		r.Get("/balance", controllers.GetBalance(params.Wallets, logg))
		r.Get("/entries", controllers.ListEntries(params.Wallets, params.Entries, logg))
		r.Get("/entries/{entryID}", controllers.GetEntry(params.Wallets, params.Entries, logg))
		r.Post("/entries/{entryID}/cancel", controllers.CancelEntry(params.Coordinator, params.Wallets, logg))

		r.Post("/transfers", controllers.CreateTransfer(params.Coordinator, params.Wallets, logg))
		r.Post("/topups", controllers.CreateTopUp(params.Coordinator, params.Wallets, logg))
		r.Post("/withdrawals", controllers.CreateWithdrawal(params.Coordinator, params.Wallets, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Get("/accounts/{accountID}", controllers.AdminGetAccount(params.Wallets, logg))
		r.Post("/accounts/{accountID}/status", controllers.SetAccountStatus(params.Wallets, logg))
		r.Get("/unmatched-events", controllers.ListUnmatchedEvents(params.Unmatched, logg))
		r.Post("/unmatched-events/{eventID}/review", controllers.ReviewUnmatchedEvent(params.Unmatched, logg))
	})

	return r
}
