package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusInProcess PaymentStatus = "in_process"
	StatusApproved  PaymentStatus = "approved"
	StatusRejected  PaymentStatus = "rejected"
	StatusCancelled PaymentStatus = "cancelled"
	StatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether no further status change is expected for this
// payment. Unknown statuses are treated as non-terminal so a later
// notification can still resolve them.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// PaymentRecord is the authoritative payment state fetched from the
// Mercado Pago payments API.
type PaymentRecord struct {
	ID                string
	Status            PaymentStatus
	ExternalReference string
	PaymentType       string
}

// MachineRef is the decoded external reference: which machine dispenses
// and how much, in milliliters.
type MachineRef struct {
	MachineID string
	VolumeML  int
}

func (r MachineRef) String() string {
	return fmt.Sprintf("%s-%d", r.MachineID, r.VolumeML)
}

// ParseMachineRef decodes an external reference of the form
// "<machineId>-<volumeMilliliters>". The machine identifier may itself
// contain hyphens, so the split happens at the last one.
func ParseMachineRef(ref string) (MachineRef, error) {
	idx := strings.LastIndex(ref, "-")
	if idx <= 0 || idx == len(ref)-1 {
		return MachineRef{}, fmt.Errorf("external reference %q: want <machineId>-<volumeML>", ref)
	}
	volume, err := strconv.Atoi(ref[idx+1:])
	if err != nil {
		return MachineRef{}, fmt.Errorf("external reference %q: volume is not an integer: %w", ref, err)
	}
	if volume <= 0 {
		return MachineRef{}, fmt.Errorf("external reference %q: volume must be positive", ref)
	}
	return MachineRef{MachineID: ref[:idx], VolumeML: volume}, nil
}

// DispatchRecord is one entry in the idempotency ledger: the proof that a
// payment already triggered a dispense command.
type DispatchRecord struct {
	PaymentID    string    `json:"payment_id"`
	MachineID    string    `json:"machine_id"`
	VolumeML     int       `json:"volume_ml"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// WebhookEnvelope covers every notification shape Mercado Pago has sent
// across its protocol versions. Identifier fields use json.Number because
// the provider emits them as either strings or integers.
type WebhookEnvelope struct {
	Type     string      `json:"type"`
	Topic    string      `json:"topic"`
	Action   string      `json:"action"`
	Resource string      `json:"resource"`
	ID       json.Number `json:"id"`
	Data     struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// AuditEvent is the record of one pipeline decision, written to the audit
// trail when one is configured.
type AuditEvent struct {
	PaymentID string    `json:"payment_id"`
	MachineID string    `json:"machine_id,omitempty"`
	VolumeML  int       `json:"volume_ml,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
