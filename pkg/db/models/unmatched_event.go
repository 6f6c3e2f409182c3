package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/enums"
)

// UnmatchedEvent retains a provider confirmation that matched no pending
// ledger entry. Such events never mutate balances; they are parked here for
// manual investigation.
type UnmatchedEvent struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind       enums.ProviderEventKind `gorm:"column:kind;type:provider_event_kind_enum;not null"`
	Reference  string                  `gorm:"column:reference;not null;index"`
	Payload    json.RawMessage         `gorm:"column:payload;type:jsonb"`
	ReceivedAt time.Time               `gorm:"column:received_at;autoCreateTime"`
	ReviewedAt *time.Time              `gorm:"column:reviewed_at"`
}
