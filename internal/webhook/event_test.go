package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-payments/internal/domain"
)

func TestParseEventChargeSuccess(t *testing.T) {
	raw := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "R-1",
			"id": "G-9",
			"amount": 50000,
			"paid_at": "2025-01-15T14:30:00Z",
			"customer": {"email": "user@example.com"}
		}
	}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, EventChargeSuccess, ev.Kind)
	assert.Equal(t, "R-1", ev.Reference)
	assert.Equal(t, "G-9", ev.GatewayTransactionID)
	assert.Equal(t, int64(50000), ev.AmountMinor)
	assert.Equal(t, "user@example.com", ev.CustomerEmail)
}

func TestParseEventNumericID(t *testing.T) {
	raw := []byte(`{"event":"charge.success","data":{"reference":"R-2","id":4099260516}}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "4099260516", ev.GatewayTransactionID)
}

func TestParseEventKinds(t *testing.T) {
	cases := []struct {
		event string
		kind  EventKind
	}{
		{"charge.success", EventChargeSuccess},
		{"charge.failed", EventChargeFailed},
		{"transfer.success", EventTransferSuccess},
		{"transfer.failed", EventTransferFailed},
		{"subscription.create", EventUnknown},
		{"invoice.payment_failed", EventUnknown},
		{"", EventUnknown},
	}

	for _, tc := range cases {
		ev, err := ParseEvent([]byte(`{"event":"` + tc.event + `","data":{"reference":"R-1"}}`))
		require.NoError(t, err, tc.event)
		assert.Equal(t, tc.kind, ev.Kind, tc.event)
		assert.Equal(t, tc.event, ev.RawType, tc.event)
	}
}

func TestParseEventMalformedBody(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event": "charge.success", "data":`))
	assert.Error(t, err)
}

func TestTargetStatus(t *testing.T) {
	status, ok := EventChargeSuccess.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, status)

	status, ok = EventTransferFailed.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, domain.StatusFailed, status)

	_, ok = EventUnknown.TargetStatus()
	assert.False(t, ok)
}

func TestTransactionKind(t *testing.T) {
	kind, ok := EventChargeFailed.TransactionKind()
	assert.True(t, ok)
	assert.Equal(t, domain.KindPayment, kind)

	kind, ok = EventTransferSuccess.TransactionKind()
	assert.True(t, ok)
	assert.Equal(t, domain.KindWithdrawal, kind)

	_, ok = EventUnknown.TransactionKind()
	assert.False(t, ok)
}
