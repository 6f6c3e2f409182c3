package wallet

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/outbox"
	redispkg "github.com/paypadi/wallet-backend/pkg/redis"
)

type fakeWalletRepo struct {
	byID     map[uuid.UUID]*models.Account
	byUser   map[uuid.UUID]*models.Account
	statuses map[uuid.UUID]string
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{
		byID:     make(map[uuid.UUID]*models.Account),
		byUser:   make(map[uuid.UUID]*models.Account),
		statuses: make(map[uuid.UUID]string),
	}
}

func (f *fakeWalletRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeWalletRepo) Create(ctx context.Context, account *models.Account) error {
	f.byID[account.ID] = account
	f.byUser[account.UserID] = account
	return nil
}

func (f *fakeWalletRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeWalletRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	account, ok := f.byUser[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeWalletRepo) ApplyDelta(ctx context.Context, delta BalanceDelta) error {
	account, ok := f.byID[delta.AccountID]
	if !ok || account.Version != delta.ExpectedVersion {
		return pkgerrors.New(pkgerrors.CodeVersionConflict, "account version changed during commit")
	}
	account.AvailableMinor += delta.AvailableDelta
	account.ReservedMinor += delta.ReservedDelta
	account.Version++
	return nil
}

func (f *fakeWalletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if account, ok := f.byID[id]; ok {
		account.Status = enums.AccountStatus(status)
	}
	f.statuses[id] = status
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeCache struct {
	values map[string]string
	dels   []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redispkg.Nil
	}
	return value, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		f.dels = append(f.dels, key)
	}
	return nil
}

func (f *fakeCache) BalanceCacheKey(accountID string) string {
	return "pp:balance:" + accountID
}

func newWalletService(t *testing.T, repo Repository, ob *fakeOutbox, cache *fakeCache) *Service {
	t.Helper()
	params := ServiceParams{
		Repo:            repo,
		Tx:              fakeTxRunner{},
		Outbox:          ob,
		CacheTTL:        30 * time.Second,
		DefaultCurrency: enums.CurrencyNGN,
	}
	if cache != nil {
		params.Cache = cache
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestProvisionCreatesAccountAndEmitsEvent(t *testing.T) {
	repo := newFakeWalletRepo()
	ob := &fakeOutbox{}
	svc := newWalletService(t, repo, ob, nil)
	userID := uuid.New()

	account, err := svc.Provision(context.Background(), userID, enums.CurrencyNGN)
	require.NoError(t, err)
	assert.Equal(t, userID, account.UserID)
	assert.Equal(t, enums.AccountStatusActive, account.Status)

	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventAccountProvisioned, ob.events[0].EventType)
	assert.Equal(t, account.ID, ob.events[0].AggregateID)
}

func TestProvisionIsIdempotentPerUser(t *testing.T) {
	repo := newFakeWalletRepo()
	ob := &fakeOutbox{}
	svc := newWalletService(t, repo, ob, nil)
	userID := uuid.New()

	first, err := svc.Provision(context.Background(), userID, enums.CurrencyNGN)
	require.NoError(t, err)
	second, err := svc.Provision(context.Background(), userID, enums.CurrencyNGN)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, ob.events, 1)
}

func TestProvisionRejectsInvalidInput(t *testing.T) {
	svc := newWalletService(t, newFakeWalletRepo(), &fakeOutbox{}, nil)

	_, err := svc.Provision(context.Background(), uuid.Nil, enums.CurrencyNGN)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Provision(context.Background(), uuid.New(), enums.Currency("XXX"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetBalanceMissesThenServesFromCache(t *testing.T) {
	repo := newFakeWalletRepo()
	cache := newFakeCache()
	svc := newWalletService(t, repo, &fakeOutbox{}, cache)

	account := &models.Account{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		AvailableMinor: 5_000,
		ReservedMinor:  1_000,
		Currency:       enums.CurrencyNGN,
		Status:         enums.AccountStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), account))

	balance, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), balance.AvailableMinor)
	assert.Equal(t, int64(1_000), balance.ReservedMinor)

	// Cache is now warm; mutate the store directly and confirm the stale
	// cached copy is returned until invalidated.
	account.AvailableMinor = 9_999
	cached, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), cached.AvailableMinor)

	svc.InvalidateBalance(context.Background(), account.ID)
	fresh, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9_999), fresh.AvailableMinor)
}

func TestGetBalanceCachePayloadRoundTrips(t *testing.T) {
	repo := newFakeWalletRepo()
	cache := newFakeCache()
	svc := newWalletService(t, repo, &fakeOutbox{}, cache)

	account := &models.Account{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		AvailableMinor: 250,
		Currency:       enums.CurrencyNGN,
		Status:         enums.AccountStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), account))

	_, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)

	raw, ok := cache.values[cache.BalanceCacheKey(account.ID.String())]
	require.True(t, ok)
	var stored Balance
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, account.ID, stored.AccountID)
	assert.Equal(t, int64(250), stored.AvailableMinor)
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	svc := newWalletService(t, newFakeWalletRepo(), &fakeOutbox{}, nil)

	_, err := svc.GetBalance(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetStatusDisablesAccountAndDropsCache(t *testing.T) {
	repo := newFakeWalletRepo()
	cache := newFakeCache()
	svc := newWalletService(t, repo, &fakeOutbox{}, cache)

	account := &models.Account{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Currency: enums.CurrencyNGN,
		Status:   enums.AccountStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), account))
	cache.values[cache.BalanceCacheKey(account.ID.String())] = "{}"

	require.NoError(t, svc.SetStatus(context.Background(), account.ID, enums.AccountStatusDisabled))

	assert.Equal(t, string(enums.AccountStatusDisabled), repo.statuses[account.ID])
	assert.NotContains(t, cache.values, cache.BalanceCacheKey(account.ID.String()))
}

func TestSetStatusRejectsInvalidStatus(t *testing.T) {
	svc := newWalletService(t, newFakeWalletRepo(), &fakeOutbox{}, nil)

	err := svc.SetStatus(context.Background(), uuid.New(), enums.AccountStatus("frozen"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
