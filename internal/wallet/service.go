package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/outbox"
	redispkg "github.com/paypadi/wallet-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type balanceCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	BalanceCacheKey(accountID string) string
}

// Balance is the read model returned for balance queries.
type Balance struct {
	AccountID      uuid.UUID      `json:"account_id"`
	AvailableMinor int64          `json:"available_minor"`
	ReservedMinor  int64          `json:"reserved_minor"`
	Currency       enums.Currency `json:"currency"`
	Version        int64          `json:"version"`
}

// AccountProvisionedEvent is emitted when a wallet account is created.
type AccountProvisionedEvent struct {
	AccountID uuid.UUID      `json:"account_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Currency  enums.Currency `json:"currency"`
}

// ServiceParams groups dependencies for the wallet service.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Outbox          outboxPublisher
	Cache           balanceCache
	CacheTTL        time.Duration
	DefaultCurrency enums.Currency
	Logger          *logger.Logger
}

// Service owns account lifecycle and balance reads. Balance writes go through
// the transfer coordinator, which holds the account locks; this service only
// ever reads balances or touches non-monetary account state.
type Service struct {
	repo            Repository
	tx              txRunner
	outbox          outboxPublisher
	cache           balanceCache
	cacheTTL        time.Duration
	defaultCurrency enums.Currency
	logg            *logger.Logger
}

// NewService builds a wallet service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := params.DefaultCurrency
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	return &Service{
		repo:            params.Repo,
		tx:              params.Tx,
		outbox:          params.Outbox,
		cache:           params.Cache,
		cacheTTL:        params.CacheTTL,
		defaultCurrency: currency,
		logg:            params.Logger,
	}, nil
}

// Provision creates a wallet account for the user if one does not exist yet.
// It is idempotent: a second call returns the existing account.
func (s *Service) Provision(ctx context.Context, userID uuid.UUID, currency enums.Currency) (*models.Account, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	account := &models.Account{
		ID:       uuid.New(),
		UserID:   userID,
		Currency: currency,
		Status:   enums.AccountStatusActive,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, account); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccountProvisioned,
			AggregateType: enums.AggregateAccount,
			AggregateID:   account.ID,
			Version:       1,
			Data: AccountProvisionedEvent{
				AccountID: account.ID,
				UserID:    userID,
				Currency:  currency,
			},
		})
	})
	if err != nil {
		// A concurrent provision for the same user may have won the race.
		if dup, findErr := s.repo.FindByUserID(ctx, userID); findErr == nil {
			return dup, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return account, nil
}

// GetAccount loads an account by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

// GetAccountByUser loads an account by its owning user id.
func (s *Service) GetAccountByUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

// GetBalance returns the account's balances, served from cache when fresh.
// The cached copy can lag a concurrent commit by at most the cache TTL.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}

	if s.cache != nil {
		key := s.cache.BalanceCacheKey(accountID.String())
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached Balance
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if err != redispkg.Nil && s.logg != nil {
			s.logg.Warn(ctx, "balance cache read failed")
		}
	}

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balance := &Balance{
		AccountID:      account.ID,
		AvailableMinor: account.AvailableMinor,
		ReservedMinor:  account.ReservedMinor,
		Currency:       account.Currency,
		Version:        account.Version,
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if encoded, err := json.Marshal(balance); err == nil {
			key := s.cache.BalanceCacheKey(accountID.String())
			if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "balance cache write failed")
			}
		}
	}
	return balance, nil
}

// InvalidateBalance drops the cached balance after a commit touched the
// account. Cache errors are logged, never surfaced: the ledger already
// committed.
func (s *Service) InvalidateBalance(ctx context.Context, accountIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	for _, id := range accountIDs {
		if id == uuid.Nil {
			continue
		}
		if err := s.cache.Del(ctx, s.cache.BalanceCacheKey(id.String())); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "balance cache invalidation failed")
		}
	}
}

// SetStatus activates or disables an account.
func (s *Service) SetStatus(ctx context.Context, accountID uuid.UUID, status enums.AccountStatus) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid account status")
	}
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, accountID, string(status)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account status")
	}
	s.InvalidateBalance(ctx, accountID)
	return nil
}
