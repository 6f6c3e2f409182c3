package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/internal/repo"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/errors"
)

// Repository manages persistence for wallet accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	ApplyDelta(ctx context.Context, delta BalanceDelta) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// BalanceDelta describes one atomic balance mutation guarded by the account's
// version. Deltas are applied as a compare-and-swap: the update only lands if
// the caller's snapshot version still matches the row.
type BalanceDelta struct {
	AccountID       uuid.UUID
	AvailableDelta  int64
	ReservedDelta   int64
	ExpectedVersion int64
}

type repository struct {
	base repo.Base
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.base.DB(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.base.DB(ctx).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.base.DB(ctx).
		Where("user_id = ?", userID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyDelta mutates an account's balances under the optimistic version
// check. The WHERE clause also guards both balances against going negative,
// so an overdraft can never be written even if the caller's snapshot was
// stale. A zero-row update on an unchanged version means the guard fired;
// otherwise the version moved and the caller must reload and retry.
func (r *repository) ApplyDelta(ctx context.Context, delta BalanceDelta) error {
	res := r.base.DB(ctx).Exec(`
		UPDATE accounts
		SET available_minor = available_minor + ?,
			reserved_minor = reserved_minor + ?,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
			AND available_minor + ? >= 0
			AND reserved_minor + ? >= 0
	`, delta.AvailableDelta, delta.ReservedDelta, delta.AccountID, delta.ExpectedVersion,
		delta.AvailableDelta, delta.ReservedDelta)
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "apply balance delta")
	}
	if res.RowsAffected == 0 {
		account, ferr := r.FindByID(ctx, delta.AccountID)
		if ferr == nil && account.Version == delta.ExpectedVersion {
			return errors.New(errors.CodeInsufficientFunds, "balance would drop below zero")
		}
		return errors.New(errors.CodeVersionConflict, "account version changed during commit")
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.base.DB(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("status", status).Error
}
