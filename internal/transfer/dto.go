package transfer

import (
	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/db/models"
)

// TransferInput describes an internal wallet-to-wallet move.
type TransferInput struct {
	FromAccountID   uuid.UUID
	ToAccountID     uuid.UUID
	AmountMinor     int64
	ClientReference string
	Narration       string
	ActorUserID     uuid.UUID
}

// TransferResult reports both halves of the journal pair. Duplicate is true
// when the client reference had already been processed and the stored outcome
// is being replayed.
type TransferResult struct {
	DebitEntry  *models.LedgerEntry
	CreditEntry *models.LedgerEntry
	Duplicate   bool
}

// TopUpInput describes a card top-up started through the payment provider.
type TopUpInput struct {
	AccountID       uuid.UUID
	AmountMinor     int64
	ClientReference string
	Email           string
	ActorUserID     uuid.UUID
}

// TopUpResult carries the pending journal entry and the provider checkout URL.
type TopUpResult struct {
	Entry            *models.LedgerEntry
	AuthorizationURL string
	Duplicate        bool
}

// WithdrawInput describes a payout to an external bank account.
type WithdrawInput struct {
	AccountID       uuid.UUID
	AmountMinor     int64
	ClientReference string
	RecipientCode   string
	Narration       string
	ActorUserID     uuid.UUID
}

// WithdrawResult carries the pending payout entry and its hold.
type WithdrawResult struct {
	Entry       *models.LedgerEntry
	Reservation *models.Reservation
	Duplicate   bool
}

// SettlementResult reports what a provider-confirmed settlement did. Applied
// is false when the entry was already terminal and the event was a replay.
type SettlementResult struct {
	Entry   *models.LedgerEntry
	Applied bool
}

// Event payloads published through the outbox.

// TransferEvent describes a completed or rejected internal transfer.
type TransferEvent struct {
	DebitEntryID  uuid.UUID  `json:"debit_entry_id"`
	CreditEntryID *uuid.UUID `json:"credit_entry_id,omitempty"`
	FromAccountID uuid.UUID  `json:"from_account_id"`
	ToAccountID   uuid.UUID  `json:"to_account_id"`
	AmountMinor   int64      `json:"amount_minor"`
	Reason        string     `json:"reason,omitempty"`
}

// SettlementEvent describes a provider-settled top-up or payout.
type SettlementEvent struct {
	EntryID     uuid.UUID `json:"entry_id"`
	AccountID   uuid.UUID `json:"account_id"`
	AmountMinor int64     `json:"amount_minor"`
	Reason      string    `json:"reason,omitempty"`
}
