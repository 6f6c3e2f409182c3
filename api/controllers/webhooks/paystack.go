package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/paypadi/wallet-backend/api/responses"
	"github.com/paypadi/wallet-backend/internal/reconciliation"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/paystack"
)

type eventIngester interface {
	Ingest(ctx context.Context, event *reconciliation.ProviderEvent) (reconciliation.Outcome, error)
}

type signingSecretSource interface {
	WebhookSecret() string
}

// PaystackWebhook verifies and dispatches Paystack event deliveries. Paystack
// redelivers until it sees a 200, so every accepted event must be safe to
// process more than once.
func PaystackWebhook(gateway eventIngester, secrets signingSecretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if gateway == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation gateway unavailable"))
			return
		}
		if secrets == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(paystack.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature missing"))
			return
		}
		if !paystack.VerifyWebhookSignature(secrets.WebhookSecret(), payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid paystack signature"))
			return
		}

		event, err := reconciliation.ParseWebhook(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := gateway.Ingest(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			fields := map[string]any{
				"event_kind": string(event.Kind),
				"reference":  event.Reference,
				"outcome":    string(outcome),
			}
			logg.Info(logg.WithFields(ctx, fields), "paystack event processed")
		}
		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
