package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/api/responses"
	"github.com/paypadi/wallet-backend/api/validators"
	"github.com/paypadi/wallet-backend/internal/reconciliation"
	"github.com/paypadi/wallet-backend/internal/wallet"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
)

type accountStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetAccountStatus freezes or reactivates a wallet account.
func SetAccountStatus(svc *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		accountID, err := pathUUID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req accountStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetStatus(r.Context(), accountID, enums.AccountStatus(req.Status)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderAccount(account))
	}
}

// AdminGetAccount returns any wallet account by id for operators.
func AdminGetAccount(svc *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		accountID, err := pathUUID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderAccount(account))
	}
}

// UnmatchedEventResponse is the operator view of a parked provider event.
type UnmatchedEventResponse struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Reference  string          `json:"reference"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// ListUnmatchedEvents surfaces provider events that matched no journal entry.
func ListUnmatchedEvents(repo reconciliation.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := repo.ListUnreviewed(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]UnmatchedEventResponse, 0, len(events))
		for _, event := range events {
			resp = append(resp, UnmatchedEventResponse{
				ID:         event.ID,
				Kind:       string(event.Kind),
				Reference:  event.Reference,
				Payload:    event.Payload,
				ReceivedAt: event.ReceivedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// ReviewUnmatchedEvent marks a parked event as handled by an operator.
func ReviewUnmatchedEvent(repo reconciliation.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation repository unavailable"))
			return
		}

		eventID, err := pathUUID(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.MarkReviewed(r.Context(), eventID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reviewed"})
	}
}
