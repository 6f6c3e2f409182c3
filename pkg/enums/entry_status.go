package enums

import "fmt"

// EntryStatus tracks the lifecycle of a ledger entry. Completed, failed, and
// reversed are terminal: no further transition is permitted out of them.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusReversed  EntryStatus = "reversed"
)

var validEntryStatuses = []EntryStatus{
	EntryStatusPending,
	EntryStatusCompleted,
	EntryStatusFailed,
	EntryStatusReversed,
}

// String implements fmt.Stringer.
func (s EntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EntryStatus.
func (s EntryStatus) IsValid() bool {
	for _, candidate := range validEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition out of the status is allowed.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusFailed || s == EntryStatusReversed
}

// ParseEntryStatus converts raw input into an EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, error) {
	for _, candidate := range validEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry status %q", value)
}
