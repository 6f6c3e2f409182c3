package enums

import "fmt"

// EntryDirection is the side of the books an entry sits on.
type EntryDirection string

const (
	EntryDirectionCredit EntryDirection = "credit"
	EntryDirectionDebit  EntryDirection = "debit"
)

var validEntryDirections = []EntryDirection{
	EntryDirectionCredit,
	EntryDirectionDebit,
}

// String implements fmt.Stringer.
func (d EntryDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a known EntryDirection.
func (d EntryDirection) IsValid() bool {
	for _, candidate := range validEntryDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseEntryDirection converts raw input into an EntryDirection.
func ParseEntryDirection(value string) (EntryDirection, error) {
	for _, candidate := range validEntryDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry direction %q", value)
}
