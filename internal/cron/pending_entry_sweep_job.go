package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	"github.com/paypadi/wallet-backend/pkg/logger"
)

const (
	defaultTopUpExpiry   = 24 * time.Hour
	defaultSweepBatchTop = 200
)

type expiredEntryLister interface {
	ListExpiredPending(ctx context.Context, category enums.EntryCategory, cutoff time.Time, limit int) ([]models.LedgerEntry, error)
}

type expiredHoldLister interface {
	ListExpiredHeld(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error)
}

type settlementCoordinator interface {
	ExpireTopUp(ctx context.Context, entry *models.LedgerEntry) (*transfer.SettlementResult, error)
	ReleaseExpiredHold(ctx context.Context, reservation *models.Reservation) (*transfer.SettlementResult, error)
}

// PendingEntrySweepJobParams configure the pending entry sweeper.
type PendingEntrySweepJobParams struct {
	Logger       *logger.Logger
	Entries      expiredEntryLister
	Reservations expiredHoldLister
	Coordinator  settlementCoordinator
	TopUpExpiry  time.Duration
	BatchSize    int
}

// NewPendingEntrySweepJob builds the job that fails abandoned top-ups and
// returns expired payout holds to the available balance.
func NewPendingEntrySweepJob(params PendingEntrySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Coordinator == nil {
		return nil, fmt.Errorf("transfer coordinator required")
	}
	expiry := params.TopUpExpiry
	if expiry <= 0 {
		expiry = defaultTopUpExpiry
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchTop
	}
	return &pendingEntrySweepJob{
		logg:         params.Logger,
		entries:      params.Entries,
		reservations: params.Reservations,
		coordinator:  params.Coordinator,
		topupExpiry:  expiry,
		batchSize:    batch,
		now:          time.Now,
	}, nil
}

type pendingEntrySweepJob struct {
	logg         *logger.Logger
	entries      expiredEntryLister
	reservations expiredHoldLister
	coordinator  settlementCoordinator
	topupExpiry  time.Duration
	batchSize    int
	now          func() time.Time
}

func (j *pendingEntrySweepJob) Name() string { return "pending-entry-sweep" }

func (j *pendingEntrySweepJob) Run(ctx context.Context) error {
	var errs error

	expiredTopups, failedTopups, err := j.sweepTopups(ctx)
	errs = multierr.Append(errs, err)

	releasedHolds, failedHolds, err := j.sweepHolds(ctx)
	errs = multierr.Append(errs, err)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"topups_expired": expiredTopups,
		"topups_failed":  failedTopups,
		"holds_released": releasedHolds,
		"holds_failed":   failedHolds,
	})
	j.logg.Info(logCtx, "pending entry sweep complete")
	return errs
}

func (j *pendingEntrySweepJob) sweepTopups(ctx context.Context) (int, int, error) {
	cutoff := j.now().Add(-j.topupExpiry)
	entries, err := j.entries.ListExpiredPending(ctx, enums.EntryCategoryTopUp, cutoff, j.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list expired topups: %w", err)
	}

	var (
		expired int
		failed  int
		errs    error
	)
	for i := range entries {
		result, err := j.coordinator.ExpireTopUp(ctx, &entries[i])
		if err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("expire topup %s: %w", entries[i].ID, err))
			continue
		}
		if result.Applied {
			expired++
		}
	}
	return expired, failed, errs
}

func (j *pendingEntrySweepJob) sweepHolds(ctx context.Context) (int, int, error) {
	reservations, err := j.reservations.ListExpiredHeld(ctx, j.now(), j.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list expired holds: %w", err)
	}

	var (
		released int
		failed   int
		errs     error
	)
	for i := range reservations {
		result, err := j.coordinator.ReleaseExpiredHold(ctx, &reservations[i])
		if err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("release hold %s: %w", reservations[i].ID, err))
			continue
		}
		if result.Applied {
			released++
		}
	}
	return released, failed, errs
}
