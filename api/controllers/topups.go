package controllers

import (
	"net/http"

	"github.com/paypadi/wallet-backend/api/responses"
	"github.com/paypadi/wallet-backend/api/validators"
	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/internal/wallet"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/money"
)

type topUpRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Reference string `json:"reference" validate:"required,min=8,max=64"`
	Email     string `json:"email" validate:"required,email"`
}

type topUpResponse struct {
	Entry            EntryResponse `json:"entry"`
	AuthorizationURL string        `json:"authorization_url,omitempty"`
	Duplicate        bool          `json:"duplicate"`
}

// CreateTopUp starts a provider checkout that funds the caller's wallet once
// the charge is confirmed by webhook.
func CreateTopUp(coordinator *transfer.Coordinator, wallets *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coordinator == nil || wallets == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}

		account, err := resolveAccount(r, wallets)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req topUpRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := wallets.GetAccount(r.Context(), account.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amountMinor, err := money.ParseAmount(req.Amount, source.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		result, err := coordinator.TopUp(r.Context(), transfer.TopUpInput{
			AccountID:       account.ID,
			AmountMinor:     amountMinor,
			ClientReference: validators.SanitizeString(req.Reference, 64),
			Email:           validators.SanitizeString(req.Email, 254),
			ActorUserID:     account.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, topUpResponse{
			Entry:            renderEntry(result.Entry),
			AuthorizationURL: result.AuthorizationURL,
			Duplicate:        result.Duplicate,
		})
	}
}
