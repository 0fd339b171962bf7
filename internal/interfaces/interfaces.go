package interfaces

import (
	"context"

	"github.com/watervendor/dispense-gateway/internal/models"
)

// DispatchLedger is the idempotency ledger: the single source of truth
// for "has this payment already triggered a dispense".
type DispatchLedger interface {
	// MarkDispatched atomically records rec unless an entry for the
	// payment already exists. It returns true when this call won the
	// race; false means some earlier delivery already dispatched.
	MarkDispatched(ctx context.Context, rec models.DispatchRecord) (bool, error)
	// Get returns the existing entry, or nil when none exists.
	Get(ctx context.Context, paymentID string) (*models.DispatchRecord, error)
}

// CommandPublisher sends dispense commands to the broker. Publish fails
// fast when the broker connection is down; reconnection is the
// publisher's own background concern.
type CommandPublisher interface {
	Publish(ctx context.Context, machineID string, volumeML int) error
	IsConnected() bool
}

// PaymentLookup fetches the authoritative payment state from the
// provider.
type PaymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
}

// AuditTrail records pipeline decisions for operators. Implementations
// must never fail the pipeline; recording is best effort.
type AuditTrail interface {
	Record(ctx context.Context, event models.AuditEvent)
}
