package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  available_minor INTEGER NOT NULL DEFAULT 0,
  reserved_minor INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'NGN',
  status TEXT NOT NULL DEFAULT 'active',
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(`DELETE FROM accounts`).Error)
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, available, reserved int64) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		AvailableMinor: available,
		ReservedMinor:  reserved,
		Currency:       enums.CurrencyNGN,
		Status:         enums.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	account := &models.Account{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Currency: enums.CurrencyNGN,
		Status:   enums.AccountStatusActive,
	}
	require.NoError(t, repo.Create(ctx, account))

	byID, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.UserID, byID.UserID)

	byUser, err := repo.FindByUserID(ctx, account.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byUser.ID)
}

func TestRepositoryFindMissingReturnsNotFound(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplyDeltaMutatesBalancesAndBumpsVersion(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 10_000, 0)

	err := repo.ApplyDelta(ctx, BalanceDelta{
		AccountID:       account.ID,
		AvailableDelta:  -2_500,
		ReservedDelta:   2_500,
		ExpectedVersion: 0,
	})
	require.NoError(t, err)

	updated, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7_500), updated.AvailableMinor)
	assert.Equal(t, int64(2_500), updated.ReservedMinor)
	assert.Equal(t, int64(1), updated.Version)
}

func TestApplyDeltaStaleVersionReturnsConflict(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 10_000, 0)

	require.NoError(t, repo.ApplyDelta(ctx, BalanceDelta{
		AccountID:       account.ID,
		AvailableDelta:  -1_000,
		ExpectedVersion: 0,
	}))

	err := repo.ApplyDelta(ctx, BalanceDelta{
		AccountID:       account.ID,
		AvailableDelta:  -1_000,
		ExpectedVersion: 0,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVersionConflict))

	// The stale write must not have landed.
	updated, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), updated.AvailableMinor)
	assert.Equal(t, int64(1), updated.Version)
}

func TestApplyDeltaRefusesOverdraft(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 10_000, 0)

	err := repo.ApplyDelta(ctx, BalanceDelta{
		AccountID:       account.ID,
		AvailableDelta:  -20_000,
		ExpectedVersion: 0,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	updated, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), updated.AvailableMinor)
	assert.Equal(t, int64(0), updated.Version)
}

func TestApplyDeltaRefusesNegativeReserved(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 0, 5_000)

	err := repo.ApplyDelta(ctx, BalanceDelta{
		AccountID:       account.ID,
		ReservedDelta:   -6_000,
		ExpectedVersion: 0,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	updated, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), updated.ReservedMinor)
}

func TestUpdateStatus(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	account := seedAccount(t, db, 0, 0)

	require.NoError(t, repo.UpdateStatus(ctx, account.ID, string(enums.AccountStatusDisabled)))

	updated, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AccountStatusDisabled, updated.Status)
	assert.False(t, updated.IsActive())
}
