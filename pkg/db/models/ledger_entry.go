package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/enums"
)

// LedgerEntry records one atomic money movement against an account. Entries
// are immutable once terminal; a completed entry is only ever undone by a new
// compensating entry, never edited in place. The two halves of a transfer
// share a CorrelationID. IdempotencyKey is unique when present and is the
// dedupe point for retried requests and re-delivered provider events.
type LedgerEntry struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID            uuid.UUID            `gorm:"column:account_id;type:uuid;not null;index"`
	Direction            enums.EntryDirection `gorm:"column:direction;type:entry_direction_enum;not null"`
	Category             enums.EntryCategory  `gorm:"column:category;type:entry_category_enum;not null"`
	AmountMinor          int64                `gorm:"column:amount_minor;not null"`
	Currency             enums.Currency       `gorm:"column:currency;type:currency_enum;not null"`
	CounterpartyAccountID *uuid.UUID          `gorm:"column:counterparty_account_id;type:uuid"`
	CorrelationID        *uuid.UUID           `gorm:"column:correlation_id;type:uuid;index"`
	IdempotencyKey       *string              `gorm:"column:idempotency_key;uniqueIndex:ux_ledger_entries_idempotency_key"`
	Status               enums.EntryStatus    `gorm:"column:status;type:entry_status_enum;not null;default:'pending'"`
	FailureReason        *string              `gorm:"column:failure_reason"`
	Metadata             json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// SignedAmount returns the entry's effect on the owning account's available
// balance: positive for credits, negative for debits.
func (e *LedgerEntry) SignedAmount() int64 {
	if e.Direction == enums.EntryDirectionDebit {
		return -e.AmountMinor
	}
	return e.AmountMinor
}
