package reconciliation

import (
	"encoding/json"
	"strings"

	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
)

// ProviderEvent is the normalized form of an inbound provider notification.
// Reference carries the ledger entry id the operation was opened with.
type ProviderEvent struct {
	Kind        enums.ProviderEventKind
	Reference   string
	AmountMinor int64
	Reason      string
	Raw         json.RawMessage
}

// paystackEventNames maps Paystack's dotted event names onto the normalized
// kinds the reconciliation gateway understands.
var paystackEventNames = map[string]enums.ProviderEventKind{
	"charge.success":    enums.ProviderEventChargeSuccess,
	"charge.failed":     enums.ProviderEventChargeFailed,
	"transfer.success":  enums.ProviderEventTransferSuccess,
	"transfer.failed":   enums.ProviderEventTransferFailed,
	"transfer.reversed": enums.ProviderEventTransferReversed,
}

// ParseWebhook normalizes a raw Paystack webhook body. Unknown event names
// are rejected before any reconciliation runs.
func ParseWebhook(body []byte) (*ProviderEvent, error) {
	var payload struct {
		Event string `json:"event"`
		Data  struct {
			Reference       string `json:"reference"`
			Amount          int64  `json:"amount"`
			GatewayResponse string `json:"gateway_response"`
			Reason          string `json:"reason"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	kind, ok := paystackEventNames[strings.ToLower(strings.TrimSpace(payload.Event))]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported provider event").
			WithDetails(map[string]any{"event": payload.Event})
	}
	if strings.TrimSpace(payload.Data.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider event missing reference")
	}

	reason := payload.Data.Reason
	if reason == "" {
		reason = payload.Data.GatewayResponse
	}

	return &ProviderEvent{
		Kind:        kind,
		Reference:   payload.Data.Reference,
		AmountMinor: payload.Data.Amount,
		Reason:      reason,
		Raw:         json.RawMessage(body),
	}, nil
}
