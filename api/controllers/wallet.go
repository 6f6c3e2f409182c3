package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/api/middleware"
	"github.com/paypadi/wallet-backend/api/responses"
	"github.com/paypadi/wallet-backend/api/validators"
	"github.com/paypadi/wallet-backend/internal/ledger"
	"github.com/paypadi/wallet-backend/internal/wallet"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/pagination"
)

type provisionRequest struct {
	Currency string `json:"currency,omitempty"`
}

// ProvisionAccount creates (or returns) the caller's wallet account.
func ProvisionAccount(svc *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req provisionRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		currency := enums.Currency(strings.ToUpper(validators.SanitizeString(req.Currency, 3)))
		account, err := svc.Provision(r.Context(), userID, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderAccount(account))
	}
}

// GetBalance returns the caller's available and reserved balances.
func GetBalance(svc *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		account, err := resolveAccount(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), account.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderBalance(balance))
	}
}

// ListEntries pages through the caller's journal newest-first.
func ListEntries(wallets *wallet.Service, entries *ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wallets == nil || entries == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		account, err := resolveAccount(r, wallets)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := buildListQuery(r, account.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, nextCursor, err := entries.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderEntries(results, nextCursor))
	}
}

// GetEntry returns a single journal entry owned by the caller.
func GetEntry(wallets *wallet.Service, entries *ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wallets == nil || entries == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		entry, err := entries.GetEntry(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entry.AccountID != account.ID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "entry not found"))
			return
		}
		responses.WriteSuccess(w, renderEntry(entry))
	}
}

func buildListQuery(r *http.Request, accountID uuid.UUID) (ledger.ListQuery, error) {
	query := ledger.ListQuery{AccountID: accountID}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
	if err != nil {
		return query, err
	}
	query.Pagination.Limit = limit

	if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
		if _, err := pagination.ParseCursor(cursor); err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Pagination.Cursor = cursor
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category := enums.EntryCategory(raw)
		if !category.IsValid() {
			return query, pkgerrors.New(pkgerrors.CodeValidation, "unknown entry category")
		}
		query.Filter.Category = &category
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.EntryStatus(raw)
		if !status.IsValid() {
			return query, pkgerrors.New(pkgerrors.CodeValidation, "unknown entry status")
		}
		query.Filter.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("direction")); raw != "" {
		direction := enums.EntryDirection(raw)
		if !direction.IsValid() {
			return query, pkgerrors.New(pkgerrors.CodeValidation, "unknown entry direction")
		}
		query.Filter.Direction = &direction
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		query.Filter.From = &from
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		query.Filter.To = &to
	}

	return query, nil
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}

// resolveAccount prefers the account id carried in the token and falls back
// to a lookup by the authenticated user.
func resolveAccount(r *http.Request, wallets *wallet.Service) (*walletAccount, error) {
	if raw := middleware.AccountIDFromContext(r.Context()); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account id")
		}
		account, err := wallets.GetAccount(r.Context(), accountID)
		if err != nil {
			return nil, err
		}
		return &walletAccount{ID: account.ID, UserID: account.UserID}, nil
	}

	userID, err := requireUserID(r)
	if err != nil {
		return nil, err
	}
	account, err := wallets.GetAccountByUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return &walletAccount{ID: account.ID, UserID: account.UserID}, nil
}

type walletAccount struct {
	ID     uuid.UUID
	UserID uuid.UUID
}
