package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAccount     OutboxAggregateType = "account"
	AggregateLedgerEntry OutboxAggregateType = "ledger_entry"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAccount,
	AggregateLedgerEntry,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventTransferCompleted   OutboxEventType = "transfer_completed"
	EventTransferRejected    OutboxEventType = "transfer_rejected"
	EventTopUpCompleted      OutboxEventType = "topup_completed"
	EventTopUpFailed         OutboxEventType = "topup_failed"
	EventWithdrawalCompleted OutboxEventType = "withdrawal_completed"
	EventWithdrawalFailed    OutboxEventType = "withdrawal_failed"
	EventEntryReversed       OutboxEventType = "entry_reversed"
	EventAccountProvisioned  OutboxEventType = "account_provisioned"
)

var validEventTypes = []OutboxEventType{
	EventTransferCompleted,
	EventTransferRejected,
	EventTopUpCompleted,
	EventTopUpFailed,
	EventWithdrawalCompleted,
	EventWithdrawalFailed,
	EventEntryReversed,
	EventAccountProvisioned,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
