package enums

import "fmt"

// EntryCategory classifies what kind of money movement an entry records.
type EntryCategory string

const (
	EntryCategoryTopUp       EntryCategory = "topup"
	EntryCategoryTransfer    EntryCategory = "transfer"
	EntryCategoryPayout      EntryCategory = "payout"
	EntryCategoryRefund      EntryCategory = "refund"
	EntryCategoryFee         EntryCategory = "fee"
	EntryCategoryAdjustment  EntryCategory = "adjustment"
	EntryCategoryHold        EntryCategory = "hold"
	EntryCategoryHoldRelease EntryCategory = "hold_release"
)

var validEntryCategories = []EntryCategory{
	EntryCategoryTopUp,
	EntryCategoryTransfer,
	EntryCategoryPayout,
	EntryCategoryRefund,
	EntryCategoryFee,
	EntryCategoryAdjustment,
	EntryCategoryHold,
	EntryCategoryHoldRelease,
}

// String implements fmt.Stringer.
func (c EntryCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known EntryCategory.
func (c EntryCategory) IsValid() bool {
	for _, candidate := range validEntryCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseEntryCategory converts raw input into an EntryCategory.
func ParseEntryCategory(value string) (EntryCategory, error) {
	for _, candidate := range validEntryCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry category %q", value)
}
