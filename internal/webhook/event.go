package webhook

import (
	"encoding/json"

	"reward-payments/internal/domain"
)

// EventKind is the closed set of gateway event variants this service reacts
// to. Anything else parses as EventUnknown and is acknowledged as a no-op so
// that new gateway event types never cause delivery failures upstream.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventChargeSuccess
	EventChargeFailed
	EventTransferSuccess
	EventTransferFailed
)

func (k EventKind) String() string {
	switch k {
	case EventChargeSuccess:
		return "charge.success"
	case EventChargeFailed:
		return "charge.failed"
	case EventTransferSuccess:
		return "transfer.success"
	case EventTransferFailed:
		return "transfer.failed"
	default:
		return "unknown"
	}
}

// TargetStatus maps an event variant to the terminal status it drives a
// transaction toward. ok is false for EventUnknown.
func (k EventKind) TargetStatus() (domain.TransactionStatus, bool) {
	switch k {
	case EventChargeSuccess, EventTransferSuccess:
		return domain.StatusCompleted, true
	case EventChargeFailed, EventTransferFailed:
		return domain.StatusFailed, true
	default:
		return "", false
	}
}

// TransactionKind maps an event variant to the transaction kind it may settle:
// charge events settle payments, transfer events settle withdrawals.
func (k EventKind) TransactionKind() (domain.TransactionKind, bool) {
	switch k {
	case EventChargeSuccess, EventChargeFailed:
		return domain.KindPayment, true
	case EventTransferSuccess, EventTransferFailed:
		return domain.KindWithdrawal, true
	default:
		return "", false
	}
}

// Event is the parsed form of one webhook delivery. It is consumed exactly
// once logically even though the gateway may deliver it more than once.
type Event struct {
	Kind                 EventKind
	RawType              string
	Reference            string
	GatewayTransactionID string
	AmountMinor          int64
	PaidAt               string
	CustomerEmail        string
}

// gatewayID tolerates both numeric and string transaction ids on the wire.
type gatewayID string

func (g *gatewayID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*g = gatewayID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*g = gatewayID(n.String())
	return nil
}

type envelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string    `json:"reference"`
		ID        gatewayID `json:"id"`
		Amount    int64     `json:"amount"`
		PaidAt    string    `json:"paid_at"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// ParseEvent decodes the gateway's JSON envelope. The raw bytes handed in here
// must be the same bytes the signature was verified over.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, err
	}

	kind := EventUnknown
	switch env.Event {
	case "charge.success":
		kind = EventChargeSuccess
	case "charge.failed":
		kind = EventChargeFailed
	case "transfer.success":
		kind = EventTransferSuccess
	case "transfer.failed":
		kind = EventTransferFailed
	}

	return Event{
		Kind:                 kind,
		RawType:              env.Event,
		Reference:            env.Data.Reference,
		GatewayTransactionID: string(env.Data.ID),
		AmountMinor:          env.Data.Amount,
		PaidAt:               env.Data.PaidAt,
		CustomerEmail:        env.Data.Customer.Email,
	}, nil
}
