package reconciliation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
)

func setupReconciliationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS unmatched_events (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  reference TEXT NOT NULL,
  payload TEXT,
  received_at DATETIME,
  reviewed_at DATETIME
);`
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(`DELETE FROM unmatched_events`).Error)
	return db
}

type fakeSettler struct {
	topupCalls    int
	withdrawCalls int
	reverseCalls  int
	lastSuccess   bool
	lastReason    string
	result        *transfer.SettlementResult
	err           error
}

func (f *fakeSettler) SettleTopUp(ctx context.Context, entryID uuid.UUID, amount int64, success bool, reason string) (*transfer.SettlementResult, error) {
	f.topupCalls++
	f.lastSuccess = success
	f.lastReason = reason
	return f.result, f.err
}

func (f *fakeSettler) SettleWithdrawal(ctx context.Context, entryID uuid.UUID, success bool, reason string) (*transfer.SettlementResult, error) {
	f.withdrawCalls++
	f.lastSuccess = success
	f.lastReason = reason
	return f.result, f.err
}

func (f *fakeSettler) ReverseWithdrawal(ctx context.Context, entryID uuid.UUID, reason string) (*transfer.SettlementResult, error) {
	f.reverseCalls++
	f.lastSuccess = false
	f.lastReason = reason
	return f.result, f.err
}

func newGateway(t *testing.T, s *fakeSettler, db *gorm.DB) *Gateway {
	t.Helper()
	gw, err := NewGateway(s, NewRepository(db), nil)
	require.NoError(t, err)
	return gw
}

func TestParseWebhookNormalizesKnownEvents(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"abc-123","amount":50000,"gateway_response":"Successful"}}`)
	event, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, enums.ProviderEventChargeSuccess, event.Kind)
	assert.Equal(t, "abc-123", event.Reference)
	assert.Equal(t, int64(50_000), event.AmountMinor)
	assert.Equal(t, "Successful", event.Reason)
	assert.JSONEq(t, string(body), string(event.Raw))
}

func TestParseWebhookRejectsUnknownOrMalformed(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"event":"subscription.create","data":{"reference":"x"}}`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseWebhook([]byte(`{"event":"charge.success","data":{}}`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseWebhook([]byte(`not-json`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestIngestAppliesChargeSuccess(t *testing.T) {
	db := setupReconciliationTestDB(t)
	settler := &fakeSettler{result: &transfer.SettlementResult{Applied: true}}
	gw := newGateway(t, settler, db)

	outcome, err := gw.Ingest(context.Background(), &ProviderEvent{
		Kind:        enums.ProviderEventChargeSuccess,
		Reference:   uuid.NewString(),
		AmountMinor: 1_000,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, 1, settler.topupCalls)
	assert.True(t, settler.lastSuccess)
}

func TestIngestRedeliveryIsDuplicate(t *testing.T) {
	db := setupReconciliationTestDB(t)
	settler := &fakeSettler{result: &transfer.SettlementResult{Applied: false}}
	gw := newGateway(t, settler, db)

	outcome, err := gw.Ingest(context.Background(), &ProviderEvent{
		Kind:      enums.ProviderEventTransferSuccess,
		Reference: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, settler.withdrawCalls)
}

func TestIngestParksUnmatchedEvents(t *testing.T) {
	db := setupReconciliationTestDB(t)
	settler := &fakeSettler{err: pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")}
	gw := newGateway(t, settler, db)

	event := &ProviderEvent{
		Kind:      enums.ProviderEventChargeSuccess,
		Reference: uuid.NewString(),
		Raw:       []byte(`{"event":"charge.success"}`),
	}
	outcome, err := gw.Ingest(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)

	var parked []models.UnmatchedEvent
	require.NoError(t, db.Find(&parked).Error)
	require.Len(t, parked, 1)
	assert.Equal(t, event.Reference, parked[0].Reference)
	assert.Nil(t, parked[0].ReviewedAt)
}

func TestIngestParksNonUUIDReferences(t *testing.T) {
	db := setupReconciliationTestDB(t)
	settler := &fakeSettler{}
	gw := newGateway(t, settler, db)

	outcome, err := gw.Ingest(context.Background(), &ProviderEvent{
		Kind:      enums.ProviderEventChargeSuccess,
		Reference: "not-a-ledger-reference",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)
	assert.Zero(t, settler.topupCalls)
}

func TestIngestMapsFailureKinds(t *testing.T) {
	db := setupReconciliationTestDB(t)
	settler := &fakeSettler{result: &transfer.SettlementResult{Applied: true}}
	gw := newGateway(t, settler, db)

	_, err := gw.Ingest(context.Background(), &ProviderEvent{
		Kind:      enums.ProviderEventTransferReversed,
		Reference: uuid.NewString(),
		Reason:    "bank bounced the credit",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, settler.reverseCalls)
	assert.Zero(t, settler.withdrawCalls)
	assert.Equal(t, "bank bounced the credit", settler.lastReason)

	_, err = gw.Ingest(context.Background(), &ProviderEvent{
		Kind:      enums.ProviderEventTransferFailed,
		Reference: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, settler.withdrawCalls)
	assert.False(t, settler.lastSuccess)

	_, err = gw.Ingest(context.Background(), &ProviderEvent{
		Kind:      enums.ProviderEventChargeFailed,
		Reference: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, "charge failed", settler.lastReason)
}

func TestIngestSurfacesDependencyErrors(t *testing.T) {
	db := setupReconciliationTestDB(t)
	settler := &fakeSettler{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	gw := newGateway(t, settler, db)

	_, err := gw.Ingest(context.Background(), &ProviderEvent{
		Kind:      enums.ProviderEventChargeSuccess,
		Reference: uuid.NewString(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestRepositoryReviewFlow(t *testing.T) {
	db := setupReconciliationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	event := &models.UnmatchedEvent{
		ID:        uuid.New(),
		Kind:      enums.ProviderEventChargeSuccess,
		Reference: "ref-1",
	}
	require.NoError(t, repo.Create(ctx, event))

	unreviewed, err := repo.ListUnreviewed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unreviewed, 1)

	require.NoError(t, repo.MarkReviewed(ctx, event.ID))

	unreviewed, err = repo.ListUnreviewed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unreviewed)
}
