package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRecognizedShapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
		kind   EventKind
	}{
		{
			name:   "payment type with nested data id",
			body:   `{"type":"payment","data":{"id":"123"}}`,
			wantID: "123",
			kind:   KindPayment,
		},
		{
			name:   "payment topic with resource url",
			body:   `{"topic":"payment","resource":"https://api.mercadolibre.com/collections/notifications/456"}`,
			wantID: "456",
			kind:   KindPayment,
		},
		{
			name:   "payment.updated action",
			body:   `{"action":"payment.updated","data":{"id":"789"}}`,
			wantID: "789",
			kind:   KindPayment,
		},
		{
			name:   "merchant order webhook variant",
			body:   `{"type":"topic_merchant_order_wh","data":{"id":"321"}}`,
			wantID: "321",
			kind:   KindMerchantOrder,
		},
		{
			name:   "numeric identifier",
			body:   `{"type":"payment","data":{"id":987654}}`,
			wantID: "987654",
			kind:   KindPayment,
		},
		{
			name:   "top-level id when data absent",
			body:   `{"topic":"payment","id":"555"}`,
			wantID: "555",
			kind:   KindPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize([]byte(tt.body))
			assert.True(t, out.Relevant)
			assert.Equal(t, tt.wantID, out.PaymentID)
			assert.Equal(t, tt.kind, out.Kind)
		})
	}
}

func TestNormalizeIgnored(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{
			name:   "unrecognized topic",
			body:   `{"topic":"chargebacks","resource":"https://x/1"}`,
			reason: "unrecognized event kind",
		},
		{
			name:   "plan subscription event",
			body:   `{"type":"subscription_preapproval","data":{"id":"1"}}`,
			reason: "unrecognized event kind",
		},
		{
			name:   "payment event with no identifier anywhere",
			body:   `{"type":"payment"}`,
			reason: "missing identifier",
		},
		{
			name:   "unparseable body",
			body:   `{not json`,
			reason: "unparseable body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize([]byte(tt.body))
			assert.False(t, out.Relevant)
			assert.Equal(t, tt.reason, out.Reason)
		})
	}
}

func TestNormalizeExtractionOrder(t *testing.T) {
	// data.id wins over both the top-level id and the resource url
	out := Normalize([]byte(`{"type":"payment","id":"top","resource":"https://x/res","data":{"id":"nested"}}`))
	assert.True(t, out.Relevant)
	assert.Equal(t, "nested", out.PaymentID)
}

func TestNormalizeResourceTrailingSlash(t *testing.T) {
	out := Normalize([]byte(`{"topic":"payment","resource":"https://api/notifications/42/"}`))
	assert.True(t, out.Relevant)
	assert.Equal(t, "42", out.PaymentID)
}
