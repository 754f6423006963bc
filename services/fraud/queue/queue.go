package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

const (
	queueKey       = "fraud:queue"
	inFlightPrefix = "fraud:inflight:"
)

// Store is the backing list+set primitive the queue needs. It is satisfied
// by database.RedisClient; tests supply an in-memory implementation.
type Store interface {
	RPush(ctx context.Context, key string, value interface{}) error
	LPop(ctx context.Context, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// WorkQueue is a Redis-backed durable FIFO of pending transaction references
// with per-transaction in-flight markers. Delivery is at-least-once: LPOP is
// atomic so two workers never pop the same entry, and the in-flight marker's
// TTL bounds a crashed worker's claim.
type WorkQueue struct {
	store       Store
	maxRetries  int
	inFlightTTL time.Duration
	log         *logger.ZapLogger
}

// NewWorkQueue creates a new work queue
func NewWorkQueue(store Store, cfg models.QueueConfig, log *logger.ZapLogger) *WorkQueue {
	return &WorkQueue{
		store:       store,
		maxRetries:  cfg.MaxRetries,
		inFlightTTL: time.Duration(cfg.InFlightTTLMinutes) * time.Minute,
		log:         log,
	}
}

// Enqueue appends a new entry to the tail of the queue
func (q *WorkQueue) Enqueue(ctx context.Context, txID uuid.UUID, correlationID string) error {
	msg := models.QueueMessage{
		TransactionID: txID,
		CorrelationID: correlationID,
		EnqueuedAt:    time.Now().UnixMilli(),
		RetryCount:    0,
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	if err := q.store.RPush(ctx, queueKey, raw); err != nil {
		return fmt.Errorf("failed to enqueue transaction: %w", err)
	}

	q.log.Info("Transaction enqueued",
		logger.String("transaction_id", txID.String()),
		logger.String("correlation_id", correlationID))
	return nil
}

// Dequeue pops the head entry and marks its transaction as in-flight.
// Returns (nil, nil) when the queue is empty. If the transaction is already
// in flight elsewhere, the entry goes back to the tail unchanged and the
// call reports empty.
func (q *WorkQueue) Dequeue(ctx context.Context) (*models.QueueMessage, error) {
	raw, err := q.store.LPop(ctx, queueKey)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue transaction: %w", err)
	}

	var msg models.QueueMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// A payload that never parses can never be processed; drop it
		q.log.Error("Dropping malformed queue entry", logger.Err(err))
		return nil, nil
	}

	claimed, err := q.store.SetNX(ctx, inFlightKey(msg.TransactionID), msg.CorrelationID, q.inFlightTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mark transaction in-flight: %w", err)
	}
	if !claimed {
		// Duplicate delivery while another worker holds the claim; not a
		// processing failure, so the retry count stays unchanged.
		if err := q.store.RPush(ctx, queueKey, raw); err != nil {
			return nil, fmt.Errorf("failed to return in-flight entry to queue: %w", err)
		}
		return nil, nil
	}

	return &msg, nil
}

// Ack clears the in-flight marker after successful processing
func (q *WorkQueue) Ack(ctx context.Context, txID uuid.UUID) error {
	return q.store.Delete(ctx, inFlightKey(txID))
}

// Requeue returns a failed entry to the tail with an incremented retry
// count, or abandons it once the retry cap is exceeded. The in-flight marker
// is cleared in both paths so the entry can be claimed again.
func (q *WorkQueue) Requeue(ctx context.Context, msg *models.QueueMessage) error {
	if msg.RetryCount >= q.maxRetries {
		q.log.Error("Transaction exceeded max retry attempts, abandoning",
			logger.String("transaction_id", msg.TransactionID.String()),
			logger.String("correlation_id", msg.CorrelationID),
			logger.Int("retry_count", msg.RetryCount))
		return q.store.Delete(ctx, inFlightKey(msg.TransactionID))
	}

	msg.RetryCount++
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	if err := q.store.RPush(ctx, queueKey, raw); err != nil {
		return fmt.Errorf("failed to requeue transaction: %w", err)
	}
	if err := q.store.Delete(ctx, inFlightKey(msg.TransactionID)); err != nil {
		return fmt.Errorf("failed to clear in-flight marker: %w", err)
	}

	q.log.Warn("Transaction requeued for retry",
		logger.String("transaction_id", msg.TransactionID.String()),
		logger.String("correlation_id", msg.CorrelationID),
		logger.Int("retry_count", msg.RetryCount))
	return nil
}

// Size reports the pending queue depth
func (q *WorkQueue) Size(ctx context.Context) (int64, error) {
	return q.store.LLen(ctx, queueKey)
}

func inFlightKey(txID uuid.UUID) string {
	return inFlightPrefix + txID.String()
}
