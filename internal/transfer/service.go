package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/internal/ledger"
	"github.com/paypadi/wallet-backend/internal/locker"
	"github.com/paypadi/wallet-backend/internal/wallet"
	"github.com/paypadi/wallet-backend/pkg/config"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
	"github.com/paypadi/wallet-backend/pkg/metrics"
	"github.com/paypadi/wallet-backend/pkg/outbox"
	"github.com/paypadi/wallet-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	CreateTransfer(ctx context.Context, req paystack.TransferRequest) (*paystack.TransferResponse, error)
}

type balanceInvalidator interface {
	InvalidateBalance(ctx context.Context, accountIDs ...uuid.UUID)
}

// CoordinatorParams groups dependencies for the transfer coordinator.
type CoordinatorParams struct {
	Wallets      wallet.Repository
	Ledger       *ledger.Service
	Reservations ReservationRepository
	Locks        *locker.AccountLocker
	Tx           txRunner
	Outbox       outboxPublisher
	Gateway      paymentGateway
	Invalidator  balanceInvalidator
	Metrics      *metrics.LedgerMetrics
	Config       config.LedgerConfig
	Logger       *logger.Logger
}

// Coordinator serializes money movement. Every balance mutation happens under
// the account locks, inside one transaction with its journal entries, guarded
// by the account version check. Business rejections that occur after locks
// are held still leave a failed journal entry behind, with no balance change.
type Coordinator struct {
	wallets      wallet.Repository
	ledger       *ledger.Service
	reservations ReservationRepository
	locks        *locker.AccountLocker
	tx           txRunner
	outbox       outboxPublisher
	gateway      paymentGateway
	invalidator  balanceInvalidator
	metrics      *metrics.LedgerMetrics
	cfg          config.LedgerConfig
	logg         *logger.Logger
}

// NewCoordinator builds a transfer coordinator.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("account locker required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Coordinator{
		wallets:      params.Wallets,
		ledger:       params.Ledger,
		reservations: params.Reservations,
		locks:        params.Locks,
		tx:           params.Tx,
		outbox:       params.Outbox,
		gateway:      params.Gateway,
		invalidator:  params.Invalidator,
		metrics:      params.Metrics,
		cfg:          params.Config,
		logg:         params.Logger,
	}, nil
}

func transferKey(ref string) string { return "transfer:" + ref }
func creditKey(ref string) string   { return "transfer:" + ref + ":credit" }
func topupKey(ref string) string    { return "topup:" + ref }
func payoutKey(ref string) string   { return "payout:" + ref }

func holdKey(entryID uuid.UUID, side string) string {
	return "hold:" + entryID.String() + ":" + side
}

func holdReleaseKey(entryID uuid.UUID, side string) string {
	return "hold_release:" + entryID.String() + ":" + side
}

func reversalKey(entryID uuid.UUID) string {
	return "reversal:" + entryID.String()
}

// Transfer moves funds between two wallet accounts atomically. Replays of the
// same client reference return the stored outcome without moving money again.
func (c *Coordinator) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.ClientReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client reference required")
	}
	if input.FromAccountID == uuid.Nil || input.ToAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both account ids required")
	}
	if input.FromAccountID == input.ToAccountID {
		return nil, pkgerrors.New(pkgerrors.CodeSelfTransfer, "sender and recipient must differ")
	}

	if result, err := c.replayTransfer(ctx, input.ClientReference); err != nil {
		return nil, err
	} else if result != nil {
		return result, nil
	}

	lockStart := time.Now()
	release, err := c.locks.Acquire(ctx, input.FromAccountID, input.ToAccountID)
	if err != nil {
		return nil, err
	}
	defer release()
	c.metrics.ObserveLockWait("transfer", time.Since(lockStart))

	var result *TransferResult
	err = c.commitWithRetry(ctx, "transfer", func(ctx context.Context) error {
		from, err := c.loadAccount(ctx, input.FromAccountID)
		if err != nil {
			return err
		}
		to, err := c.loadAccount(ctx, input.ToAccountID)
		if err != nil {
			return err
		}

		if rejection := c.validateTransfer(from, to, input.AmountMinor); rejection != nil {
			return c.rejectTransfer(ctx, input, from.Currency, rejection)
		}

		correlationID := uuid.New()
		commitStart := time.Now()
		err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			debit := &models.LedgerEntry{
				AccountID:             from.ID,
				Direction:             enums.EntryDirectionDebit,
				Category:              enums.EntryCategoryTransfer,
				AmountMinor:           input.AmountMinor,
				Currency:              from.Currency,
				CounterpartyAccountID: &to.ID,
				CorrelationID:         &correlationID,
				IdempotencyKey:        stringPtr(transferKey(input.ClientReference)),
				Status:                enums.EntryStatusCompleted,
			}
			stored, created, err := c.ledger.Append(ctx, tx, debit)
			if err != nil {
				return err
			}
			if !created {
				// A concurrent replay won the race; surface its outcome.
				result = &TransferResult{DebitEntry: stored, Duplicate: true}
				return nil
			}

			credit := &models.LedgerEntry{
				AccountID:             to.ID,
				Direction:             enums.EntryDirectionCredit,
				Category:              enums.EntryCategoryTransfer,
				AmountMinor:           input.AmountMinor,
				Currency:              to.Currency,
				CounterpartyAccountID: &from.ID,
				CorrelationID:         &correlationID,
				IdempotencyKey:        stringPtr(creditKey(input.ClientReference)),
				Status:                enums.EntryStatusCompleted,
			}
			if _, _, err := c.ledger.Append(ctx, tx, credit); err != nil {
				return err
			}

			walletRepo := c.wallets.WithTx(tx)
			if err := walletRepo.ApplyDelta(ctx, wallet.BalanceDelta{
				AccountID:       from.ID,
				AvailableDelta:  -input.AmountMinor,
				ExpectedVersion: from.Version,
			}); err != nil {
				return err
			}
			if err := walletRepo.ApplyDelta(ctx, wallet.BalanceDelta{
				AccountID:       to.ID,
				AvailableDelta:  input.AmountMinor,
				ExpectedVersion: to.Version,
			}); err != nil {
				return err
			}

			result = &TransferResult{DebitEntry: debit, CreditEntry: credit}
			return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTransferCompleted,
				AggregateType: enums.AggregateLedgerEntry,
				AggregateID:   debit.ID,
				Version:       1,
				Actor:         actorRef(input.ActorUserID, from.ID),
				Data: TransferEvent{
					DebitEntryID:  debit.ID,
					CreditEntryID: &credit.ID,
					FromAccountID: from.ID,
					ToAccountID:   to.ID,
					AmountMinor:   input.AmountMinor,
				},
			})
		})
		c.metrics.ObserveCommitDuration("transfer", time.Since(commitStart))
		return err
	})
	if err != nil {
		c.metrics.IncCommit("transfer", commitOutcome(err))
		return nil, err
	}

	c.metrics.IncCommit("transfer", "ok")
	c.invalidate(ctx, input.FromAccountID, input.ToAccountID)
	return result, nil
}

// replayTransfer returns the stored outcome for an already-seen reference.
func (c *Coordinator) replayTransfer(ctx context.Context, ref string) (*TransferResult, error) {
	existing, err := c.ledger.FindByIdempotencyKey(ctx, transferKey(ref))
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := &TransferResult{DebitEntry: existing, Duplicate: true}
	if existing.Status == enums.EntryStatusCompleted && existing.CorrelationID != nil {
		pair, err := c.ledger.Repo().FindByCorrelationID(ctx, *existing.CorrelationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer pair")
		}
		for i := range pair {
			if pair[i].Direction == enums.EntryDirectionCredit {
				result.CreditEntry = &pair[i]
			}
		}
	}
	return result, nil
}

func (c *Coordinator) validateTransfer(from, to *models.Account, amount int64) *pkgerrors.Error {
	if !from.IsActive() {
		return pkgerrors.New(pkgerrors.CodeAccountInactive, "sender account is not active")
	}
	if !to.IsActive() {
		return pkgerrors.New(pkgerrors.CodeAccountInactive, "recipient account is not active")
	}
	if from.Currency != to.Currency {
		return pkgerrors.New(pkgerrors.CodeCurrencyMismatch, "accounts hold different currencies")
	}
	if from.AvailableMinor < amount {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "available balance below transfer amount")
	}
	return nil
}

// rejectTransfer records the failed attempt in the journal without touching
// balances, then surfaces the rejection. The failed entry carries the client
// reference so replays of the same request dedupe against it.
func (c *Coordinator) rejectTransfer(ctx context.Context, input TransferInput, currency enums.Currency, rejection *pkgerrors.Error) error {
	reason := rejection.Message()
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		entry := &models.LedgerEntry{
			AccountID:             input.FromAccountID,
			Direction:             enums.EntryDirectionDebit,
			Category:              enums.EntryCategoryTransfer,
			AmountMinor:           input.AmountMinor,
			Currency:              currency,
			CounterpartyAccountID: &input.ToAccountID,
			IdempotencyKey:        stringPtr(transferKey(input.ClientReference)),
			Status:                enums.EntryStatusFailed,
			FailureReason:         &reason,
		}
		stored, created, err := c.ledger.Append(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !created {
			entry = stored
		}
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferRejected,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.FromAccountID),
			Data: TransferEvent{
				DebitEntryID:  entry.ID,
				FromAccountID: input.FromAccountID,
				ToAccountID:   input.ToAccountID,
				AmountMinor:   input.AmountMinor,
				Reason:        reason,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejected transfer")
	}
	return rejection
}

// TopUp opens a pending credit and hands back the provider checkout URL.
// Nothing lands on the balance until the provider confirms the charge.
func (c *Coordinator) TopUp(ctx context.Context, input TopUpInput) (*TopUpResult, error) {
	if input.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.ClientReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client reference required")
	}
	if input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if c.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	account, err := c.loadAccount(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeAccountInactive, "account is not active")
	}

	if existing, err := c.ledger.FindByIdempotencyKey(ctx, topupKey(input.ClientReference)); err == nil {
		return &TopUpResult{Entry: existing, Duplicate: true}, nil
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	var entry *models.LedgerEntry
	err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		entry = &models.LedgerEntry{
			AccountID:      account.ID,
			Direction:      enums.EntryDirectionCredit,
			Category:       enums.EntryCategoryTopUp,
			AmountMinor:    input.AmountMinor,
			Currency:       account.Currency,
			IdempotencyKey: stringPtr(topupKey(input.ClientReference)),
			Status:         enums.EntryStatusPending,
		}
		stored, created, err := c.ledger.Append(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !created {
			entry = stored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.providerCtx(ctx)
	defer cancel()
	init, err := c.gateway.InitializeTransaction(callCtx, paystack.InitializeRequest{
		Email:       input.Email,
		AmountMinor: input.AmountMinor,
		Reference:   entry.ID.String(),
		Currency:    string(account.Currency),
	})
	if err != nil {
		// Only fail the entry on a definitive refusal. An unknown outcome
		// leaves it pending; a retry replays it and the sweep expires it.
		if pkgerrors.IsCode(err, pkgerrors.CodeProviderRejected) {
			reason := "provider rejected initialization"
			if _, ferr := c.ledger.Transition(ctx, nil, entry.ID, enums.EntryStatusFailed, &reason); ferr != nil && c.logg != nil {
				c.logg.Error(ctx, "failed to mark topup entry failed", ferr)
			}
		}
		return nil, err
	}

	return &TopUpResult{Entry: entry, AuthorizationURL: init.AuthorizationURL}, nil
}

// SettleTopUp applies the provider's verdict on a pending top-up. It is safe
// under at-least-once delivery: a terminal entry makes the call a no-op.
func (c *Coordinator) SettleTopUp(ctx context.Context, entryID uuid.UUID, providerAmountMinor int64, success bool, reason string) (*SettlementResult, error) {
	entry, err := c.ledger.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Category != enums.EntryCategoryTopUp {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entry is not a top-up")
	}
	if entry.Status.IsTerminal() {
		return &SettlementResult{Entry: entry, Applied: false}, nil
	}

	if !success {
		return c.failPendingCredit(ctx, entry, reason, enums.EventTopUpFailed)
	}

	if providerAmountMinor > 0 && providerAmountMinor != entry.AmountMinor {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "provider amount does not match pending entry").
			WithDetails(map[string]any{"expected": entry.AmountMinor, "received": providerAmountMinor})
	}

	lockStart := time.Now()
	release, err := c.locks.Acquire(ctx, entry.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()
	c.metrics.ObserveLockWait("topup_settle", time.Since(lockStart))

	// Re-check under the lock: a concurrent settlement may have reached a
	// terminal state while we waited. That is a duplicate, not an error.
	current, err := c.ledger.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return &SettlementResult{Entry: current, Applied: false}, nil
	}

	err = c.commitWithRetry(ctx, "topup_settle", func(ctx context.Context) error {
		account, err := c.loadAccount(ctx, entry.AccountID)
		if err != nil {
			return err
		}
		return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := c.ledger.Transition(ctx, tx, entry.ID, enums.EntryStatusCompleted, nil); err != nil {
				return err
			}
			if err := c.wallets.WithTx(tx).ApplyDelta(ctx, wallet.BalanceDelta{
				AccountID:       account.ID,
				AvailableDelta:  entry.AmountMinor,
				ExpectedVersion: account.Version,
			}); err != nil {
				return err
			}
			return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTopUpCompleted,
				AggregateType: enums.AggregateLedgerEntry,
				AggregateID:   entry.ID,
				Version:       1,
				Data: SettlementEvent{
					EntryID:     entry.ID,
					AccountID:   account.ID,
					AmountMinor: entry.AmountMinor,
				},
			})
		})
	})
	if err != nil {
		c.metrics.IncCommit("topup_settle", commitOutcome(err))
		return nil, err
	}

	c.metrics.IncCommit("topup_settle", "ok")
	c.invalidate(ctx, entry.AccountID)
	entry.Status = enums.EntryStatusCompleted
	return &SettlementResult{Entry: entry, Applied: true}, nil
}

// ExpireTopUp fails a pending top-up whose confirmation never arrived.
func (c *Coordinator) ExpireTopUp(ctx context.Context, entry *models.LedgerEntry) (*SettlementResult, error) {
	if entry.Status.IsTerminal() {
		return &SettlementResult{Entry: entry, Applied: false}, nil
	}
	return c.failPendingCredit(ctx, entry, "confirmation window elapsed", enums.EventTopUpFailed)
}

func (c *Coordinator) failPendingCredit(ctx context.Context, entry *models.LedgerEntry, reason string, eventType enums.OutboxEventType) (*SettlementResult, error) {
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := c.ledger.Transition(ctx, tx, entry.ID, enums.EntryStatusFailed, &reason); err != nil {
			return err
		}
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Version:       1,
			Data: SettlementEvent{
				EntryID:     entry.ID,
				AccountID:   entry.AccountID,
				AmountMinor: entry.AmountMinor,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
			// Already settled by a concurrent path.
			reloaded, lerr := c.ledger.GetEntry(ctx, entry.ID)
			if lerr == nil {
				return &SettlementResult{Entry: reloaded, Applied: false}, nil
			}
		}
		return nil, err
	}
	entry.Status = enums.EntryStatusFailed
	entry.FailureReason = &reason
	return &SettlementResult{Entry: entry, Applied: true}, nil
}

// Withdraw places a hold and opens a pending payout, then asks the provider
// to move the money. A provider refusal unwinds the hold immediately; a
// provider acceptance leaves settlement to the webhook.
func (c *Coordinator) Withdraw(ctx context.Context, input WithdrawInput) (*WithdrawResult, error) {
	if input.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.ClientReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client reference required")
	}
	if input.RecipientCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient code required")
	}
	if c.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	if existing, err := c.ledger.FindByIdempotencyKey(ctx, payoutKey(input.ClientReference)); err == nil {
		reservation, _ := c.reservations.FindByEntryID(ctx, existing.ID)
		return &WithdrawResult{Entry: existing, Reservation: reservation, Duplicate: true}, nil
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	lockStart := time.Now()
	release, err := c.locks.Acquire(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()
	c.metrics.ObserveLockWait("withdraw", time.Since(lockStart))

	var (
		entry       *models.LedgerEntry
		reservation *models.Reservation
	)
	err = c.commitWithRetry(ctx, "withdraw", func(ctx context.Context) error {
		account, err := c.loadAccount(ctx, input.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive() {
			return c.rejectWithdrawal(ctx, input, account.Currency,
				pkgerrors.New(pkgerrors.CodeAccountInactive, "account is not active"))
		}
		if account.AvailableMinor < input.AmountMinor {
			return c.rejectWithdrawal(ctx, input, account.Currency,
				pkgerrors.New(pkgerrors.CodeInsufficientFunds, "available balance below payout amount"))
		}

		commitStart := time.Now()
		err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			entry = &models.LedgerEntry{
				AccountID:      account.ID,
				Direction:      enums.EntryDirectionDebit,
				Category:       enums.EntryCategoryPayout,
				AmountMinor:    input.AmountMinor,
				Currency:       account.Currency,
				IdempotencyKey: stringPtr(payoutKey(input.ClientReference)),
				Status:         enums.EntryStatusPending,
			}
			stored, created, err := c.ledger.Append(ctx, tx, entry)
			if err != nil {
				return err
			}
			if !created {
				entry = stored
				reservation, _ = c.reservations.WithTx(tx).FindByEntryID(ctx, entry.ID)
				return nil
			}

			reservation = &models.Reservation{
				ID:          uuid.New(),
				AccountID:   account.ID,
				EntryID:     entry.ID,
				AmountMinor: input.AmountMinor,
				Status:      enums.ReservationStatusHeld,
				ExpiresAt:   time.Now().Add(c.holdExpiry()),
			}
			if err := c.reservations.WithTx(tx).Create(ctx, reservation); err != nil {
				return err
			}

			// The hold itself is journaled as a completed debit/credit pair
			// so the move from available to reserved is visible in the ledger.
			if err := c.journalHoldPair(ctx, tx, entry, enums.EntryCategoryHold); err != nil {
				return err
			}

			return c.wallets.WithTx(tx).ApplyDelta(ctx, wallet.BalanceDelta{
				AccountID:       account.ID,
				AvailableDelta:  -input.AmountMinor,
				ReservedDelta:   input.AmountMinor,
				ExpectedVersion: account.Version,
			})
		})
		c.metrics.ObserveCommitDuration("withdraw", time.Since(commitStart))
		return err
	})
	// The lock must never be held across the provider call below.
	release()
	if err != nil {
		c.metrics.IncCommit("withdraw", commitOutcome(err))
		return nil, err
	}

	c.metrics.IncCommit("withdraw", "ok")
	c.invalidate(ctx, input.AccountID)

	callCtx, cancel := c.providerCtx(ctx)
	defer cancel()
	_, err = c.gateway.CreateTransfer(callCtx, paystack.TransferRequest{
		AmountMinor: input.AmountMinor,
		Recipient:   input.RecipientCode,
		Reference:   entry.ID.String(),
		Reason:      input.Narration,
		Currency:    string(entry.Currency),
	})
	if err != nil {
		// Only a definitive refusal unwinds the hold. A timeout or transport
		// failure leaves the provider's outcome unknown, so the entry stays
		// pending for the webhook or the expiry sweep to resolve. Failing it
		// here could mint money if the payout actually executed.
		if pkgerrors.IsCode(err, pkgerrors.CodeProviderRejected) {
			if _, ferr := c.SettleWithdrawal(ctx, entry.ID, false, "provider rejected payout"); ferr != nil && c.logg != nil {
				c.logg.Error(ctx, "failed to unwind rejected payout", ferr)
			}
			return nil, err
		}
		if c.logg != nil {
			c.logg.Warn(ctx, "payout provider call outcome unknown, entry left pending")
		}
		return &WithdrawResult{Entry: entry, Reservation: reservation}, nil
	}

	return &WithdrawResult{Entry: entry, Reservation: reservation}, nil
}

// journalHoldPair writes the balanced debit/credit pair that records a hold
// being placed (category hold) or returned (category hold_release). The pair
// is completed immediately and correlated to the payout entry it secures.
func (c *Coordinator) journalHoldPair(ctx context.Context, tx *gorm.DB, payout *models.LedgerEntry, category enums.EntryCategory) error {
	keyFor := holdKey
	if category == enums.EntryCategoryHoldRelease {
		keyFor = holdReleaseKey
	}
	correlation := payout.ID
	pair := []*models.LedgerEntry{
		{
			AccountID:      payout.AccountID,
			Direction:      enums.EntryDirectionDebit,
			Category:       category,
			AmountMinor:    payout.AmountMinor,
			Currency:       payout.Currency,
			CorrelationID:  &correlation,
			IdempotencyKey: stringPtr(keyFor(payout.ID, "debit")),
			Status:         enums.EntryStatusCompleted,
		},
		{
			AccountID:      payout.AccountID,
			Direction:      enums.EntryDirectionCredit,
			Category:       category,
			AmountMinor:    payout.AmountMinor,
			Currency:       payout.Currency,
			CorrelationID:  &correlation,
			IdempotencyKey: stringPtr(keyFor(payout.ID, "credit")),
			Status:         enums.EntryStatusCompleted,
		},
	}
	for _, he := range pair {
		if _, _, err := c.ledger.Append(ctx, tx, he); err != nil {
			return err
		}
	}
	return nil
}

// rejectWithdrawal journals the refusal without placing a hold.
func (c *Coordinator) rejectWithdrawal(ctx context.Context, input WithdrawInput, currency enums.Currency, rejection *pkgerrors.Error) error {
	reason := rejection.Message()
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		entry := &models.LedgerEntry{
			AccountID:      input.AccountID,
			Direction:      enums.EntryDirectionDebit,
			Category:       enums.EntryCategoryPayout,
			AmountMinor:    input.AmountMinor,
			Currency:       currency,
			IdempotencyKey: stringPtr(payoutKey(input.ClientReference)),
			Status:         enums.EntryStatusFailed,
			FailureReason:  &reason,
		}
		stored, created, err := c.ledger.Append(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !created {
			entry = stored
		}
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalFailed,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.AccountID),
			Data: SettlementEvent{
				EntryID:     entry.ID,
				AccountID:   input.AccountID,
				AmountMinor: input.AmountMinor,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejected withdrawal")
	}
	return rejection
}

// SettleWithdrawal applies the provider's verdict on a pending payout. On
// success the hold is captured; on failure or reversal it flows back to the
// available balance. Terminal entries make the call a no-op.
func (c *Coordinator) SettleWithdrawal(ctx context.Context, entryID uuid.UUID, success bool, reason string) (*SettlementResult, error) {
	entry, err := c.ledger.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Category != enums.EntryCategoryPayout {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entry is not a payout")
	}
	if entry.Status.IsTerminal() {
		return &SettlementResult{Entry: entry, Applied: false}, nil
	}

	reservation, err := c.reservations.FindByEntryID(ctx, entry.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found for payout")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}

	lockStart := time.Now()
	release, err := c.locks.Acquire(ctx, entry.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()
	c.metrics.ObserveLockWait("withdraw_settle", time.Since(lockStart))

	// Re-check under the lock: a concurrent settlement may have reached a
	// terminal state while we waited. That is a duplicate, not an error.
	current, err := c.ledger.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return &SettlementResult{Entry: current, Applied: false}, nil
	}

	targetStatus := enums.EntryStatusCompleted
	reservationTo := enums.ReservationStatusCaptured
	eventType := enums.EventWithdrawalCompleted
	var failureReason *string
	if !success {
		targetStatus = enums.EntryStatusFailed
		reservationTo = enums.ReservationStatusReleased
		eventType = enums.EventWithdrawalFailed
		failureReason = &reason
	}

	err = c.commitWithRetry(ctx, "withdraw_settle", func(ctx context.Context) error {
		account, err := c.loadAccount(ctx, entry.AccountID)
		if err != nil {
			return err
		}
		return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := c.ledger.Transition(ctx, tx, entry.ID, targetStatus, failureReason); err != nil {
				return err
			}
			moved, err := c.reservations.WithTx(tx).TransitionStatus(ctx, reservation.ID, enums.ReservationStatusHeld, reservationTo)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition reservation")
			}
			if !moved {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "reservation already settled")
			}

			delta := wallet.BalanceDelta{
				AccountID:       account.ID,
				ReservedDelta:   -entry.AmountMinor,
				ExpectedVersion: account.Version,
			}
			if !success {
				delta.AvailableDelta = entry.AmountMinor
			}
			if err := c.wallets.WithTx(tx).ApplyDelta(ctx, delta); err != nil {
				return err
			}

			if !success {
				if err := c.journalHoldPair(ctx, tx, entry, enums.EntryCategoryHoldRelease); err != nil {
					return err
				}
			}

			return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     eventType,
				AggregateType: enums.AggregateLedgerEntry,
				AggregateID:   entry.ID,
				Version:       1,
				Data: SettlementEvent{
					EntryID:     entry.ID,
					AccountID:   account.ID,
					AmountMinor: entry.AmountMinor,
					Reason:      reason,
				},
			})
		})
	})
	if err != nil {
		c.metrics.IncCommit("withdraw_settle", commitOutcome(err))
		return nil, err
	}

	c.metrics.IncCommit("withdraw_settle", "ok")
	c.invalidate(ctx, entry.AccountID)
	entry.Status = targetStatus
	entry.FailureReason = failureReason
	return &SettlementResult{Entry: entry, Applied: true}, nil
}

// ReverseWithdrawal handles a provider reversal of a payout. A still-pending
// payout takes the ordinary failure path. A completed payout moves to
// reversed and a compensating credit restores the balance; the original
// entry is never edited. Already reversed or failed payouts are no-ops.
func (c *Coordinator) ReverseWithdrawal(ctx context.Context, entryID uuid.UUID, reason string) (*SettlementResult, error) {
	entry, err := c.ledger.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Category != enums.EntryCategoryPayout {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entry is not a payout")
	}
	if entry.Status == enums.EntryStatusPending {
		return c.SettleWithdrawal(ctx, entryID, false, reason)
	}
	if entry.Status != enums.EntryStatusCompleted {
		return &SettlementResult{Entry: entry, Applied: false}, nil
	}

	lockStart := time.Now()
	release, err := c.locks.Acquire(ctx, entry.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()
	c.metrics.ObserveLockWait("withdraw_reverse", time.Since(lockStart))

	current, err := c.ledger.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.EntryStatusCompleted {
		return &SettlementResult{Entry: current, Applied: false}, nil
	}

	err = c.commitWithRetry(ctx, "withdraw_reverse", func(ctx context.Context) error {
		account, err := c.loadAccount(ctx, entry.AccountID)
		if err != nil {
			return err
		}
		return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := c.ledger.Transition(ctx, tx, entry.ID, enums.EntryStatusReversed, &reason); err != nil {
				return err
			}

			correlation := entry.ID
			compensation := &models.LedgerEntry{
				AccountID:      account.ID,
				Direction:      enums.EntryDirectionCredit,
				Category:       enums.EntryCategoryRefund,
				AmountMinor:    entry.AmountMinor,
				Currency:       entry.Currency,
				CorrelationID:  &correlation,
				IdempotencyKey: stringPtr(reversalKey(entry.ID)),
				Status:         enums.EntryStatusCompleted,
			}
			if _, _, err := c.ledger.Append(ctx, tx, compensation); err != nil {
				return err
			}

			if err := c.wallets.WithTx(tx).ApplyDelta(ctx, wallet.BalanceDelta{
				AccountID:       account.ID,
				AvailableDelta:  entry.AmountMinor,
				ExpectedVersion: account.Version,
			}); err != nil {
				return err
			}

			return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventEntryReversed,
				AggregateType: enums.AggregateLedgerEntry,
				AggregateID:   entry.ID,
				Version:       1,
				Data: SettlementEvent{
					EntryID:     entry.ID,
					AccountID:   account.ID,
					AmountMinor: entry.AmountMinor,
					Reason:      reason,
				},
			})
		})
	})
	if err != nil {
		c.metrics.IncCommit("withdraw_reverse", commitOutcome(err))
		return nil, err
	}

	c.metrics.IncCommit("withdraw_reverse", "ok")
	c.invalidate(ctx, entry.AccountID)
	entry.Status = enums.EntryStatusReversed
	entry.FailureReason = &reason
	return &SettlementResult{Entry: entry, Applied: true}, nil
}

// ReleaseExpiredHold returns an expired hold to the available balance.
func (c *Coordinator) ReleaseExpiredHold(ctx context.Context, reservation *models.Reservation) (*SettlementResult, error) {
	return c.SettleWithdrawal(ctx, reservation.EntryID, false, "hold expired before settlement")
}

// Cancel lets the owner abandon a pending entry. Top-ups simply fail;
// payouts unwind their hold.
func (c *Coordinator) Cancel(ctx context.Context, entryID uuid.UUID, accountID uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := c.ledger.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if accountID != uuid.Nil && entry.AccountID != accountID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "entry does not belong to account")
	}
	if entry.Status != enums.EntryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending entries can be cancelled")
	}

	const reason = "cancelled by user"
	switch entry.Category {
	case enums.EntryCategoryTopUp:
		result, err := c.failPendingCredit(ctx, entry, reason, enums.EventTopUpFailed)
		if err != nil {
			return nil, err
		}
		return result.Entry, nil
	case enums.EntryCategoryPayout:
		result, err := c.SettleWithdrawal(ctx, entry.ID, false, reason)
		if err != nil {
			return nil, err
		}
		return result.Entry, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "entry category cannot be cancelled")
	}
}

func (c *Coordinator) loadAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := c.wallets.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func (c *Coordinator) commitWithRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := c.cfg.CommitMaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	backoff := retry.WithMaxRetries(uint64(attempts), retry.NewFibonacci(5*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeVersionConflict) {
				c.metrics.IncRetry(operation)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (c *Coordinator) invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if c.invalidator != nil {
		c.invalidator.InvalidateBalance(ctx, accountIDs...)
	}
}

// providerCtx bounds outbound provider calls so a slow Paystack response
// cannot pin a request past the configured budget.
func (c *Coordinator) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.ProviderCallBudget > 0 {
		return context.WithTimeout(ctx, c.cfg.ProviderCallBudget)
	}
	return ctx, func() {}
}

func (c *Coordinator) holdExpiry() time.Duration {
	if c.cfg.HoldExpiryWindow > 0 {
		return c.cfg.HoldExpiryWindow
	}
	return 48 * time.Hour
}

func commitOutcome(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeVersionConflict, pkgerrors.CodeLockTimeout:
		return "error"
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return "error"
	default:
		return "rejected"
	}
}

func stringPtr(v string) *string { return &v }

func actorRef(userID, accountID uuid.UUID) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	account := accountID
	return &outbox.ActorRef{UserID: userID, AccountID: &account, Role: "owner"}
}
