package reconciliation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/internal/transfer"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
	"github.com/paypadi/wallet-backend/pkg/logger"
)

// Outcome classifies what an ingested provider event did.
type Outcome string

const (
	// OutcomeApplied means the event settled a pending entry.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the entry was already terminal; nothing moved.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnmatched means no pending entry matched; the event was parked.
	OutcomeUnmatched Outcome = "unmatched"
)

type settler interface {
	SettleTopUp(ctx context.Context, entryID uuid.UUID, providerAmountMinor int64, success bool, reason string) (*transfer.SettlementResult, error)
	SettleWithdrawal(ctx context.Context, entryID uuid.UUID, success bool, reason string) (*transfer.SettlementResult, error)
	ReverseWithdrawal(ctx context.Context, entryID uuid.UUID, reason string) (*transfer.SettlementResult, error)
}

// Gateway absorbs at-least-once provider notifications and converges the
// ledger onto the provider's view. Re-deliveries are no-ops, and events that
// match nothing are parked rather than dropped.
type Gateway struct {
	coordinator settler
	unmatched   Repository
	logg        *logger.Logger
}

// NewGateway builds a reconciliation gateway.
func NewGateway(coordinator settler, unmatched Repository, logg *logger.Logger) (*Gateway, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("transfer coordinator required")
	}
	if unmatched == nil {
		return nil, fmt.Errorf("unmatched event repository required")
	}
	return &Gateway{coordinator: coordinator, unmatched: unmatched, logg: logg}, nil
}

// Ingest applies one normalized provider event to the ledger.
func (g *Gateway) Ingest(ctx context.Context, event *ProviderEvent) (Outcome, error) {
	if event == nil || !event.Kind.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid provider event")
	}

	entryID, err := uuid.Parse(event.Reference)
	if err != nil {
		return g.park(ctx, event)
	}

	var result *transfer.SettlementResult
	switch event.Kind {
	case enums.ProviderEventChargeSuccess:
		result, err = g.coordinator.SettleTopUp(ctx, entryID, event.AmountMinor, true, "")
	case enums.ProviderEventChargeFailed:
		result, err = g.coordinator.SettleTopUp(ctx, entryID, 0, false, failureReason(event, "charge failed"))
	case enums.ProviderEventTransferSuccess:
		result, err = g.coordinator.SettleWithdrawal(ctx, entryID, true, "")
	case enums.ProviderEventTransferFailed:
		result, err = g.coordinator.SettleWithdrawal(ctx, entryID, false, failureReason(event, "transfer failed"))
	case enums.ProviderEventTransferReversed:
		// A reversal can arrive after the payout completed; it then needs a
		// compensating credit, not a failure of the pending entry.
		result, err = g.coordinator.ReverseWithdrawal(ctx, entryID, failureReason(event, "transfer reversed"))
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported provider event kind")
	}

	if err != nil {
		// No matching pending entry, or the event contradicts it: park it
		// for review instead of mutating anything.
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			if g.logg != nil {
				g.logg.Warn(ctx, "provider event matched no pending entry")
			}
			return g.park(ctx, event)
		}
		return "", err
	}

	if !result.Applied {
		return OutcomeDuplicate, nil
	}
	return OutcomeApplied, nil
}

func (g *Gateway) park(ctx context.Context, event *ProviderEvent) (Outcome, error) {
	record := &models.UnmatchedEvent{
		ID:        uuid.New(),
		Kind:      event.Kind,
		Reference: event.Reference,
		Payload:   event.Raw,
	}
	if err := g.unmatched.Create(ctx, record); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "park unmatched event")
	}
	return OutcomeUnmatched, nil
}

func failureReason(event *ProviderEvent, fallback string) string {
	if event.Reason != "" {
		return event.Reason
	}
	return fallback
}
