package models

import (
	"github.com/google/uuid"
)

// QueueMessage is one pending-transaction reference on the work queue.
// It lives from enqueue until acknowledged or abandoned.
type QueueMessage struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	CorrelationID string    `json:"correlation_id"`
	EnqueuedAt    int64     `json:"enqueued_at"`
	RetryCount    int       `json:"retry_count"`
}
