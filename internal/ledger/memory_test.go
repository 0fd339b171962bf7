package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watervendor/dispense-gateway/internal/models"
)

func record(paymentID string) models.DispatchRecord {
	return models.DispatchRecord{
		PaymentID:    paymentID,
		MachineID:    "maquina01",
		VolumeML:     20000,
		DispatchedAt: time.Now().UTC(),
	}
}

func TestMarkDispatchedFirstWins(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	won, err := l.MarkDispatched(ctx, record("p1"))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = l.MarkDispatched(ctx, record("p1"))
	require.NoError(t, err)
	assert.False(t, won)
}

func TestGet(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	rec, err := l.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = l.MarkDispatched(ctx, record("p1"))
	require.NoError(t, err)

	rec, err = l.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "maquina01", rec.MachineID)
	assert.Equal(t, 20000, rec.VolumeML)
}

func TestIndependentPayments(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		won, err := l.MarkDispatched(ctx, record(id))
		require.NoError(t, err)
		assert.True(t, won)
	}
}

// Concurrent duplicate deliveries for the same payment must produce
// exactly one winner.
func TestMarkDispatchedConcurrent(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	const deliveries = 64
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := l.MarkDispatched(ctx, record("p1"))
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
