package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/metrics"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
)

// Audit step names recorded on the transaction's processing history
const (
	stepProcessingStarted   = "PROCESSING_STARTED"
	stepAlertTriggered      = "ALERT_TRIGGERED"
	stepProcessingCompleted = "PROCESSING_COMPLETED"
	stepProcessingError     = "PROCESSING_ERROR"
)

// TransactionProcessor orchestrates one transaction's lifecycle: load,
// audit, evaluate, branch on the result, notify, persist. The final state
// is persisted exactly once per invocation as an idempotent overwrite, so
// duplicate queue delivery converges on whichever evaluation ran last.
type TransactionProcessor struct {
	txRepo     fraud.TransactionRepo
	engine     fraud.RuleEngine
	dispatcher fraud.Dispatcher
	alerts     fraud.AlertPublisher
	collector  *metrics.Collector
	log        *logger.ZapLogger
}

// NewTransactionProcessor creates a new transaction processor. alerts may be
// nil when no event broker is configured.
func NewTransactionProcessor(
	txRepo fraud.TransactionRepo,
	engine fraud.RuleEngine,
	dispatcher fraud.Dispatcher,
	alerts fraud.AlertPublisher,
	collector *metrics.Collector,
	log *logger.ZapLogger,
) *TransactionProcessor {
	return &TransactionProcessor{
		txRepo:     txRepo,
		engine:     engine,
		dispatcher: dispatcher,
		alerts:     alerts,
		collector:  collector,
		log:        log,
	}
}

// ProcessTransaction runs one transaction through evaluation and persists
// the outcome. Any error propagates to the worker pool so its retry policy
// applies.
func (p *TransactionProcessor) ProcessTransaction(ctx context.Context, txID uuid.UUID, correlationID string) error {
	start := time.Now()
	log := p.log.WithCorrelationID(correlationID)
	log.Info("Starting transaction processing", logger.String("transaction_id", txID.String()))

	tx, err := p.txRepo.GetTransaction(ctx, txID)
	if err != nil {
		p.collector.RecordError()
		return fmt.Errorf("transaction not found: %s: %w", txID, err)
	}
	if tx.CorrelationID == "" {
		tx.CorrelationID = correlationID
	}

	tx.AddProcessingStep(stepProcessingStarted, "Transaction processing started")

	result := p.engine.Evaluate(ctx, tx)

	if result.Alerted {
		tx.Status = models.StatusAlerted
		tx.AlertReasons = result.AlertReasons
		tx.AddProcessingStep(stepAlertTriggered,
			fmt.Sprintf("Alert triggered by %d rules", len(result.TriggeredRules)))
		log.Warn("Transaction alerted",
			logger.String("transaction_id", txID.String()),
			logger.Int("severity", result.MaxSeverity),
			logger.Int("rules", len(result.TriggeredRules)))

		p.dispatcher.Dispatch(ctx, tx, result)
		p.publishAlert(ctx, tx, result)
		p.collector.RecordAlert(result.MaxSeverity)
	} else {
		tx.Status = models.StatusProcessed
		tx.AddProcessingStep(stepProcessingCompleted, "No alerts triggered")
		log.Info("Transaction processed successfully", logger.String("transaction_id", txID.String()))
		p.collector.RecordProcessed()
	}

	if result.MLScore != nil {
		tx.MLScore = result.MLScore
		p.collector.RecordModelScore(*result.MLScore)
	}

	if err := p.txRepo.SaveTransaction(ctx, tx); err != nil {
		p.recordFailure(ctx, txID, err)
		return fmt.Errorf("failed to persist transaction %s: %w", txID, err)
	}

	duration := time.Since(start)
	p.collector.RecordProcessingTime(duration)
	log.Info("Transaction processing completed",
		logger.String("transaction_id", txID.String()),
		logger.String("status", string(tx.Status)),
		logger.Duration("duration", duration))
	return nil
}

// publishAlert emits the alert event to the broker. Best effort; a publish
// failure never fails the transaction.
func (p *TransactionProcessor) publishAlert(ctx context.Context, tx *models.Transaction, result *models.EvaluationResult) {
	if p.alerts == nil {
		return
	}
	if err := p.alerts.PublishAlert(ctx, tx, result); err != nil {
		p.log.Error("Failed to publish alert event",
			logger.String("transaction_id", tx.ID.String()),
			logger.Err(err))
	}
}

// recordFailure appends a best-effort error audit entry. It re-reads the
// stored transaction so a failed in-memory state is not persisted alongside
// the error marker; every step here is guarded against its own failure.
func (p *TransactionProcessor) recordFailure(ctx context.Context, txID uuid.UUID, cause error) {
	p.collector.RecordError()

	tx, err := p.txRepo.GetTransaction(ctx, txID)
	if err != nil {
		p.log.Error("Failed to load transaction for error audit",
			logger.String("transaction_id", txID.String()),
			logger.Err(err))
		return
	}

	tx.AddProcessingStep(stepProcessingError, "Error: "+cause.Error())
	if err := p.txRepo.SaveTransaction(ctx, tx); err != nil {
		p.log.Error("Failed to persist error audit entry",
			logger.String("transaction_id", txID.String()),
			logger.Err(err))
	}
}
