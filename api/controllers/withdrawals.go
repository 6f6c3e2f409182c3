package controllers

import (
	"net/http"
	"time"

	"github.com/paypadi/wallet-backend/api/responses"
	"github.com/paypadi/wallet-backend/api/validators"
	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/internal/wallet"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/money"
)

type withdrawRequest struct {
	Amount        string `json:"amount" validate:"required"`
	Reference     string `json:"reference" validate:"required,min=8,max=64"`
	RecipientCode string `json:"recipient_code" validate:"required,max=64"`
	Narration     string `json:"narration,omitempty" validate:"max=140"`
}

type withdrawResponse struct {
	Entry     EntryResponse `json:"entry"`
	ExpiresAt string        `json:"hold_expires_at,omitempty"`
	Duplicate bool          `json:"duplicate"`
}

// CreateWithdrawal places a payout hold and initiates the provider transfer.
func CreateWithdrawal(coordinator *transfer.Coordinator, wallets *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coordinator == nil || wallets == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		account, err := resolveAccount(r, wallets)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req withdrawRequest
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

		result, err := coordinator.Withdraw(r.Context(), transfer.WithdrawInput{
			AccountID:       account.ID,
			AmountMinor:     amountMinor,
			ClientReference: validators.SanitizeString(req.Reference, 64),
			RecipientCode:   validators.SanitizeString(req.RecipientCode, 64),
			Narration:       validators.SanitizeString(req.Narration, 140),
			ActorUserID:     account.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := withdrawResponse{
			Entry:     renderEntry(result.Entry),
			Duplicate: result.Duplicate,
		}
		if result.Reservation != nil {
			resp.ExpiresAt = result.Reservation.ExpiresAt.UTC().Format(time.RFC3339)
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}

// CancelEntry abandons a pending top-up or payout owned by the caller.
func CancelEntry(coordinator *transfer.Coordinator, wallets *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coordinator == nil || wallets == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancel service unavailable"))
			return
		}

		entryID, err := pathUUID(r, "entryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := resolveAccount(r, wallets)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := coordinator.Cancel(r.Context(), entryID, account.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderEntry(entry))
	}
}
