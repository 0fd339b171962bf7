package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/watervendor/dispense-gateway/internal/interfaces"
	"github.com/watervendor/dispense-gateway/internal/models"
	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

// Outcome is the terminal state of processing one relevant notification.
type Outcome string

const (
	OutcomeDispatched       Outcome = "dispatched"
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped"
	OutcomeNotApprovedYet   Outcome = "not_approved_yet"
	OutcomeNeverApproved    Outcome = "never_approved"
	OutcomeBadReference     Outcome = "bad_reference"
	OutcomeResolutionFailed Outcome = "resolution_failed"
	OutcomeCommandDropped   Outcome = "command_dropped"
)

// Pipeline resolves a payment id against the provider and, when the
// payment is approved, issues at most one dispense command for it.
type Pipeline struct {
	lookup    interfaces.PaymentLookup
	ledger    interfaces.DispatchLedger
	publisher interfaces.CommandPublisher
	audit     interfaces.AuditTrail
}

func NewPipeline(
	lookup interfaces.PaymentLookup,
	ledger interfaces.DispatchLedger,
	publisher interfaces.CommandPublisher,
	audit interfaces.AuditTrail,
) *Pipeline {
	return &Pipeline{
		lookup:    lookup,
		ledger:    ledger,
		publisher: publisher,
		audit:     audit,
	}
}

// Process runs resolve → guard → publish for one payment id. It never
// returns an error to the webhook path: every failure mode maps to an
// Outcome, is logged here, and the notification is acknowledged upstream
// regardless, so the provider's redelivery stays bounded.
func (p *Pipeline) Process(ctx context.Context, paymentID string) Outcome {
	payment, err := p.lookup.GetPayment(ctx, paymentID)
	if err != nil {
		telemetry.ResolutionFailures.Inc()
		telemetry.Logger.Error("Payment resolution failed",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return p.done(ctx, paymentID, models.MachineRef{}, OutcomeResolutionFailed, err.Error())
	}

	telemetry.PaymentsResolved.WithLabelValues(string(payment.Status)).Inc()

	switch payment.Status {
	case models.StatusApproved:
		// fall through to dispatch
	case models.StatusPending, models.StatusInProcess:
		telemetry.Logger.Info("Payment not approved yet, awaiting next notification",
			zap.String("payment_id", paymentID),
			zap.String("status", string(payment.Status)),
		)
		return p.done(ctx, paymentID, models.MachineRef{}, OutcomeNotApprovedYet, string(payment.Status))
	default:
		if !payment.Status.Terminal() {
			// Unknown status: treat like pending and wait for the
			// provider to send a status we recognize.
			telemetry.Logger.Warn("Unknown payment status",
				zap.String("payment_id", paymentID),
				zap.String("status", string(payment.Status)),
			)
			return p.done(ctx, paymentID, models.MachineRef{}, OutcomeNotApprovedYet, string(payment.Status))
		}
		telemetry.Logger.Info("Payment terminally not approved",
			zap.String("payment_id", paymentID),
			zap.String("status", string(payment.Status)),
		)
		return p.done(ctx, paymentID, models.MachineRef{}, OutcomeNeverApproved, string(payment.Status))
	}

	ref, err := models.ParseMachineRef(payment.ExternalReference)
	if err != nil {
		telemetry.Logger.Error("Approved payment with undecodable external reference",
			zap.String("payment_id", paymentID),
			zap.String("external_reference", payment.ExternalReference),
			zap.Error(err),
		)
		return p.done(ctx, paymentID, models.MachineRef{}, OutcomeBadReference, err.Error())
	}

	won, err := p.ledger.MarkDispatched(ctx, models.DispatchRecord{
		PaymentID:    paymentID,
		MachineID:    ref.MachineID,
		VolumeML:     ref.VolumeML,
		DispatchedAt: time.Now().UTC(),
	})
	if err != nil {
		telemetry.Logger.Error("Ledger check failed, not dispatching",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return p.done(ctx, paymentID, ref, OutcomeResolutionFailed, err.Error())
	}
	if !won {
		telemetry.DuplicatesSkipped.Inc()
		telemetry.Logger.Info("Duplicate notification, payment already dispatched",
			zap.String("payment_id", paymentID),
		)
		return p.done(ctx, paymentID, ref, OutcomeDuplicateSkipped, "")
	}

	if err := p.publisher.Publish(ctx, ref.MachineID, ref.VolumeML); err != nil {
		telemetry.CommandsDropped.Inc()
		telemetry.Logger.Error("Dispense command dropped",
			zap.String("payment_id", paymentID),
			zap.String("machine_id", ref.MachineID),
			zap.Error(err),
		)
		return p.done(ctx, paymentID, ref, OutcomeCommandDropped, err.Error())
	}

	telemetry.CommandsPublished.Inc()
	telemetry.Logger.Info("Payment dispatched",
		zap.String("payment_id", paymentID),
		zap.String("machine_id", ref.MachineID),
		zap.Int("volume_ml", ref.VolumeML),
	)
	return p.done(ctx, paymentID, ref, OutcomeDispatched, "")
}

func (p *Pipeline) done(ctx context.Context, paymentID string, ref models.MachineRef, outcome Outcome, detail string) Outcome {
	p.audit.Record(ctx, models.AuditEvent{
		PaymentID: paymentID,
		MachineID: ref.MachineID,
		VolumeML:  ref.VolumeML,
		Outcome:   string(outcome),
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
	return outcome
}
