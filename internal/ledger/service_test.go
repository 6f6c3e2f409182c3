package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	entries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  direction TEXT NOT NULL,
  category TEXT NOT NULL,
  amount_minor INTEGER NOT NULL,
  currency TEXT NOT NULL,
  counterparty_account_id TEXT,
  correlation_id TEXT,
  idempotency_key TEXT UNIQUE,
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(entries).Error)
	require.NoError(t, db.Exec(`DELETE FROM ledger_entries`).Error)
	return db
}

func newLedgerService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func stringPtr(v string) *string { return &v }

func buildEntry(accountID uuid.UUID, key string) *models.LedgerEntry {
	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Direction:   enums.EntryDirectionCredit,
		Category:    enums.EntryCategoryTopUp,
		AmountMinor: 5_000,
		Currency:    enums.CurrencyNGN,
		Status:      enums.EntryStatusPending,
	}
	if key != "" {
		entry.IdempotencyKey = stringPtr(key)
	}
	return entry
}

func TestAppendWritesEntry(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	entry := buildEntry(uuid.New(), "topup-1")
	stored, created, err := svc.Append(ctx, db, entry)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entry.ID, stored.ID)

	loaded, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.EntryStatusPending, loaded.Status)
}

func TestAppendDuplicateKeyReturnsExisting(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()
	accountID := uuid.New()

	first, created, err := svc.Append(ctx, db, buildEntry(accountID, "dup-key"))
	require.NoError(t, err)
	require.True(t, created)

	retry := buildEntry(accountID, "dup-key")
	retry.AmountMinor = 9_999
	second, created, err := svc.Append(ctx, db, retry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(5_000), second.AmountMinor)
}

func TestAppendValidatesInput(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	_, _, err := svc.Append(ctx, db, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	entry := buildEntry(uuid.New(), "")
	entry.AmountMinor = 0
	_, _, err = svc.Append(ctx, db, entry)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	entry = buildEntry(uuid.New(), "")
	entry.AmountMinor = -100
	_, _, err = svc.Append(ctx, db, entry)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	entry = buildEntry(uuid.New(), "")
	entry.Direction = enums.EntryDirection("sideways")
	_, _, err = svc.Append(ctx, db, entry)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransitionFollowsStateMachine(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	entry := buildEntry(uuid.New(), "")
	_, _, err := svc.Append(ctx, db, entry)
	require.NoError(t, err)

	completed, err := svc.Transition(ctx, db, entry.ID, enums.EntryStatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.EntryStatusCompleted, completed.Status)

	reversed, err := svc.Transition(ctx, db, entry.ID, enums.EntryStatusReversed, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.EntryStatusReversed, reversed.Status)

	// Reversed is terminal.
	_, err = svc.Transition(ctx, db, entry.ID, enums.EntryStatusCompleted, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestTransitionPendingToFailedRecordsReason(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	entry := buildEntry(uuid.New(), "")
	_, _, err := svc.Append(ctx, db, entry)
	require.NoError(t, err)

	failed, err := svc.Transition(ctx, db, entry.ID, enums.EntryStatusFailed, stringPtr("provider declined"))
	require.NoError(t, err)
	assert.Equal(t, enums.EntryStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "provider declined", *failed.FailureReason)

	loaded, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.FailureReason)
	assert.Equal(t, "provider declined", *loaded.FailureReason)
}

func TestTransitionRejectsIllegalJumps(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	entry := buildEntry(uuid.New(), "")
	_, _, err := svc.Append(ctx, db, entry)
	require.NoError(t, err)

	// Pending cannot jump straight to reversed.
	_, err = svc.Transition(ctx, db, entry.ID, enums.EntryStatusReversed, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = svc.Transition(ctx, db, uuid.New(), enums.EntryStatusCompleted, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPagesNewestFirst(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()
	accountID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := buildEntry(accountID, "")
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Create(entry).Error)
	}

	page1, next, err := svc.List(ctx, ListQuery{
		AccountID:  accountID,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotEmpty(t, next)
	assert.True(t, page1[0].CreatedAt.After(page1[1].CreatedAt))

	page2, next2, err := svc.List(ctx, ListQuery{
		AccountID:  accountID,
		Pagination: pagination.Params{Limit: 2, Cursor: next},
	})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotEmpty(t, next2)
	assert.True(t, page1[1].CreatedAt.After(page2[0].CreatedAt))

	page3, next3, err := svc.List(ctx, ListQuery{
		AccountID:  accountID,
		Pagination: pagination.Params{Limit: 2, Cursor: next2},
	})
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Empty(t, next3)
}

func TestListFilters(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()
	accountID := uuid.New()

	topup := buildEntry(accountID, "")
	require.NoError(t, db.Create(topup).Error)

	payout := buildEntry(accountID, "")
	payout.Direction = enums.EntryDirectionDebit
	payout.Category = enums.EntryCategoryPayout
	payout.Status = enums.EntryStatusCompleted
	require.NoError(t, db.Create(payout).Error)

	category := enums.EntryCategoryPayout
	filtered, _, err := svc.List(ctx, ListQuery{
		AccountID: accountID,
		Filter:    ListFilter{Category: &category},
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, payout.ID, filtered[0].ID)

	status := enums.EntryStatusPending
	pending, _, err := svc.List(ctx, ListQuery{
		AccountID: accountID,
		Filter:    ListFilter{Status: &status},
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, topup.ID, pending[0].ID)
}

func TestListRejectsMissingAccount(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)

	_, _, err := svc.List(context.Background(), ListQuery{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListExpiredPending(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	accountID := uuid.New()

	stale := buildEntry(accountID, "")
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Create(stale).Error)

	fresh := buildEntry(accountID, "")
	fresh.CreatedAt = time.Now()
	require.NoError(t, db.Create(fresh).Error)

	done := buildEntry(accountID, "")
	done.CreatedAt = time.Now().Add(-48 * time.Hour)
	done.Status = enums.EntryStatusCompleted
	require.NoError(t, db.Create(done).Error)

	expired, err := repo.ListExpiredPending(ctx, enums.EntryCategoryTopUp, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}

func TestFindByCorrelationIDReturnsBothHalves(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	correlationID := uuid.New()

	debit := buildEntry(uuid.New(), "")
	debit.Direction = enums.EntryDirectionDebit
	debit.Category = enums.EntryCategoryTransfer
	debit.CorrelationID = &correlationID
	require.NoError(t, db.Create(debit).Error)

	credit := buildEntry(uuid.New(), "")
	credit.Category = enums.EntryCategoryTransfer
	credit.CorrelationID = &correlationID
	require.NoError(t, db.Create(credit).Error)

	entries, err := repo.FindByCorrelationID(ctx, correlationID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
