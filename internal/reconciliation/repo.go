package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/internal/repo"
	"github.com/paypadi/wallet-backend/pkg/db/models"
)

// Repository manages persistence for unmatched provider events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.UnmatchedEvent) error
	ListUnreviewed(ctx context.Context, limit int) ([]models.UnmatchedEvent, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns an unmatched-event repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, event *models.UnmatchedEvent) error {
	return r.base.DB(ctx).Create(event).Error
}

func (r *repository) ListUnreviewed(ctx context.Context, limit int) ([]models.UnmatchedEvent, error) {
	var events []models.UnmatchedEvent
	if err := r.base.DB(ctx).
		Where("reviewed_at IS NULL").
		Order("received_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) MarkReviewed(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.UnmatchedEvent{}).
		Where("id = ?", id).
		Update("reviewed_at", time.Now()).Error
}
