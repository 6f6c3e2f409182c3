package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/enums"
)

// Account holds the materialized balance state for one user's wallet. The
// journal is ground truth; available/reserved here are a recomputable cache of
// it. Balances are integer minor units (kobo, cents) and must never go
// negative. Version increases on every balance mutation and backs the
// optimistic check in ApplyDelta.
type Account struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;unique"`
	AvailableMinor int64               `gorm:"column:available_minor;not null;default:0"`
	ReservedMinor  int64               `gorm:"column:reserved_minor;not null;default:0"`
	Currency       enums.Currency      `gorm:"column:currency;type:currency_enum;not null;default:'NGN'"`
	Status         enums.AccountStatus `gorm:"column:status;type:account_status_enum;not null;default:'active'"`
	Version        int64               `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the account may participate in money movement.
func (a *Account) IsActive() bool {
	return a != nil && a.Status == enums.AccountStatusActive
}
