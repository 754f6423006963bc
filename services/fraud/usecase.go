package fraud

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// ErrScorerUnavailable reports that the scoring model is not deployed or not
// reachable. Model-scored rules degrade to "not triggered" on it; it is a
// distinct outcome, not a processing failure.
var ErrScorerUnavailable = errors.New("scoring model unavailable")

// RuleEngine evaluates transactions against the cached rule set
type RuleEngine interface {
	Evaluate(ctx context.Context, tx *models.Transaction) *models.EvaluationResult
	Reload(ctx context.Context) error
}

// Processor runs one transaction through its full processing lifecycle
type Processor interface {
	ProcessTransaction(ctx context.Context, txID uuid.UUID, correlationID string) error
}

// Dispatcher fans an alert out to eligible notification channels.
// Channel failures are isolated and logged, never returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *models.Transaction, result *models.EvaluationResult)
}

// WorkQueue is the durable FIFO of pending transaction references
type WorkQueue interface {
	Enqueue(ctx context.Context, txID uuid.UUID, correlationID string) error
	// Dequeue returns (nil, nil) when the queue is empty
	Dequeue(ctx context.Context) (*models.QueueMessage, error)
	Ack(ctx context.Context, txID uuid.UUID) error
	Requeue(ctx context.Context, msg *models.QueueMessage) error
	Size(ctx context.Context) (int64, error)
}

// Scorer is the external model scoring collaborator. It returns
// ErrScorerUnavailable when the model is not loaded.
type Scorer interface {
	Score(ctx context.Context, features []float64) (float64, error)
}

// ChannelSender delivers one rendered message over one channel kind
type ChannelSender interface {
	Send(ctx context.Context, config *models.NotificationConfig, message string, tx *models.Transaction) error
}

// AlertPublisher publishes alert events for downstream consumers
type AlertPublisher interface {
	PublishAlert(ctx context.Context, tx *models.Transaction, result *models.EvaluationResult) error
}
