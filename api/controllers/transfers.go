package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/api/responses"
	"github.com/paypadi/wallet-backend/api/validators"
	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/internal/wallet"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/money"
)

type transferRequest struct {
	ToAccountID string `json:"to_account_id" validate:"required,uuid"`
	Amount      string `json:"amount" validate:"required"`
	Reference   string `json:"reference" validate:"required,min=8,max=64"`
	Narration   string `json:"narration,omitempty" validate:"max=140"`
}

type transferResponse struct {
	DebitEntry  EntryResponse  `json:"debit_entry"`
	CreditEntry *EntryResponse `json:"credit_entry,omitempty"`
	Duplicate   bool           `json:"duplicate"`
}

// CreateTransfer moves funds between two wallet accounts.
func CreateTransfer(coordinator *transfer.Coordinator, wallets *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coordinator == nil || wallets == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		account, err := resolveAccount(r, wallets)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toAccountID, err := uuid.Parse(req.ToAccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient account id"))
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

		result, err := coordinator.Transfer(r.Context(), transfer.TransferInput{
			FromAccountID:   account.ID,
			ToAccountID:     toAccountID,
			AmountMinor:     amountMinor,
			ClientReference: validators.SanitizeString(req.Reference, 64),
			Narration:       validators.SanitizeString(req.Narration, 140),
			ActorUserID:     account.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := transferResponse{
			DebitEntry: renderEntry(result.DebitEntry),
			Duplicate:  result.Duplicate,
		}
		if result.CreditEntry != nil {
			credit := renderEntry(result.CreditEntry)
			resp.CreditEntry = &credit
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}
