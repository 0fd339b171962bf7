// Package ledger provides the dispatch idempotency stores. The in-memory
// store is the default; the Redis store survives restarts at the cost of
// an external dependency.
package ledger

import (
	"context"
	"sync"

	"github.com/watervendor/dispense-gateway/internal/models"
)

// MemoryLedger keeps dispatch records in a mutex-guarded map for the
// process lifetime.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]models.DispatchRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]models.DispatchRecord)}
}

func (l *MemoryLedger) MarkDispatched(_ context.Context, rec models.DispatchRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[rec.PaymentID]; exists {
		return false, nil
	}
	l.records[rec.PaymentID] = rec
	return true, nil
}

func (l *MemoryLedger) Get(_ context.Context, paymentID string) (*models.DispatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, exists := l.records[paymentID]
	if !exists {
		return nil, nil
	}
	return &rec, nil
}
