package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/enums"
)

// Reservation links a pending payout entry to the hold placed on an account's
// reserved balance. It is released back to available on provider failure or
// expiry, and captured on provider success.
type Reservation struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID   uuid.UUID               `gorm:"column:account_id;type:uuid;not null;index"`
	EntryID     uuid.UUID               `gorm:"column:entry_id;type:uuid;not null;uniqueIndex"`
	AmountMinor int64                   `gorm:"column:amount_minor;not null"`
	Status      enums.ReservationStatus `gorm:"column:status;type:reservation_status_enum;not null;default:'held'"`
	ExpiresAt   time.Time               `gorm:"column:expires_at;not null;index"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
