package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/internal/wallet"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/money"
)

// AccountResponse is the public shape of a wallet account.
type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceResponse carries both minor units and display amounts.
type BalanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Currency  string    `json:"currency"`
	Available string    `json:"available"`
	Reserved  string    `json:"reserved"`

	AvailableMinor int64 `json:"available_minor"`
	ReservedMinor  int64 `json:"reserved_minor"`
	Version        int64 `json:"version"`
}

// EntryResponse is the public shape of one journal line.
type EntryResponse struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       uuid.UUID  `json:"account_id"`
	Direction       string     `json:"direction"`
	Category        string     `json:"category"`
	Amount          string     `json:"amount"`
	AmountMinor     int64      `json:"amount_minor"`
	Currency        string     `json:"currency"`
	CounterpartyID  *uuid.UUID `json:"counterparty_account_id,omitempty"`
	CorrelationID   *uuid.UUID `json:"correlation_id,omitempty"`
	Status          string     `json:"status"`
	FailureReason   *string    `json:"failure_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EntryListResponse pages through the journal newest-first.
type EntryListResponse struct {
	Entries    []EntryResponse `json:"entries"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func renderAccount(account *models.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		UserID:    account.UserID,
		Currency:  string(account.Currency),
		Status:    string(account.Status),
		CreatedAt: account.CreatedAt,
	}
}

func renderBalance(balance *wallet.Balance) BalanceResponse {
	return BalanceResponse{
		AccountID:      balance.AccountID,
		Currency:       string(balance.Currency),
		Available:      money.FromMinorUnits(balance.AvailableMinor, balance.Currency).String(),
		Reserved:       money.FromMinorUnits(balance.ReservedMinor, balance.Currency).String(),
		AvailableMinor: balance.AvailableMinor,
		ReservedMinor:  balance.ReservedMinor,
		Version:        balance.Version,
	}
}

func renderEntry(entry *models.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		ID:             entry.ID,
		AccountID:      entry.AccountID,
		Direction:      string(entry.Direction),
		Category:       string(entry.Category),
		Amount:         money.FromMinorUnits(entry.AmountMinor, entry.Currency).String(),
		AmountMinor:    entry.AmountMinor,
		Currency:       string(entry.Currency),
		CounterpartyID: entry.CounterpartyAccountID,
		CorrelationID:  entry.CorrelationID,
		Status:         string(entry.Status),
		FailureReason:  entry.FailureReason,
		CreatedAt:      entry.CreatedAt,
	}
	return resp
}

func renderEntries(entries []models.LedgerEntry, nextCursor string) EntryListResponse {
	resp := EntryListResponse{Entries: make([]EntryResponse, 0, len(entries)), NextCursor: nextCursor}
	for i := range entries {
		resp.Entries = append(resp.Entries, renderEntry(&entries[i]))
	}
	return resp
}
