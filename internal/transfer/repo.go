package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/internal/repo"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
)

// ReservationRepository manages holds backing pending payouts.
type ReservationRepository interface {
	WithTx(tx *gorm.DB) ReservationRepository
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByEntryID(ctx context.Context, entryID uuid.UUID) (*models.Reservation, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error)
	ListExpiredHeld(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error)
}

type reservationRepository struct {
	base repo.Base
}

// NewReservationRepository returns a reservation repository bound to the
// provided database.
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{base: repo.NewBase(db)}
}

func (r *reservationRepository) WithTx(tx *gorm.DB) ReservationRepository {
	if tx == nil {
		return r
	}
	return &reservationRepository{base: repo.NewBase(tx)}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.base.DB(ctx).Create(reservation).Error
}

func (r *reservationRepository) FindByEntryID(ctx context.Context, entryID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.base.DB(ctx).
		Where("entry_id = ?", entryID).
		First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reservationRepository) ListExpiredHeld(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.base.DB(ctx).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusHeld, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
