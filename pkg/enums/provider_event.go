package enums

import "fmt"

// ProviderEventKind is the normalized tag for inbound payment provider events.
// Raw webhook payloads are validated and mapped onto one of these before any
// reconciliation logic runs.
type ProviderEventKind string

const (
	ProviderEventChargeSuccess    ProviderEventKind = "charge_success"
	ProviderEventChargeFailed     ProviderEventKind = "charge_failed"
	ProviderEventTransferSuccess  ProviderEventKind = "transfer_success"
	ProviderEventTransferFailed   ProviderEventKind = "transfer_failed"
	ProviderEventTransferReversed ProviderEventKind = "transfer_reversed"
)

var validProviderEventKinds = []ProviderEventKind{
	ProviderEventChargeSuccess,
	ProviderEventChargeFailed,
	ProviderEventTransferSuccess,
	ProviderEventTransferFailed,
	ProviderEventTransferReversed,
}

// String implements fmt.Stringer.
func (k ProviderEventKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known ProviderEventKind.
func (k ProviderEventKind) IsValid() bool {
	for _, candidate := range validProviderEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseProviderEventKind converts raw input into a ProviderEventKind.
func ParseProviderEventKind(value string) (ProviderEventKind, error) {
	for _, candidate := range validProviderEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider event kind %q", value)
}
