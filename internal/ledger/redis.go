package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/watervendor/dispense-gateway/internal/models"
)

// RedisLedger stores dispatch records under dispatch:<paymentId> keys.
// SetNX gives the same check-and-mark atomicity as the in-memory mutex,
// shared across restarts and replicas.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func key(paymentID string) string {
	return fmt.Sprintf("dispatch:%s", paymentID)
}

func (l *RedisLedger) MarkDispatched(ctx context.Context, rec models.DispatchRecord) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	won, err := l.client.SetNX(ctx, key(rec.PaymentID), payload, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return won, nil
}

func (l *RedisLedger) Get(ctx context.Context, paymentID string) (*models.DispatchRecord, error) {
	payload, err := l.client.Get(ctx, key(paymentID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec models.DispatchRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
