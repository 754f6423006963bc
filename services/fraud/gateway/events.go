package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// alertEvent is the message published for each alerted transaction
type alertEvent struct {
	TransactionID string    `json:"transaction_id"`
	CorrelationID string    `json:"correlation_id"`
	Amount        string    `json:"amount"`
	From          string    `json:"from_account"`
	To            string    `json:"to_account"`
	Type          string    `json:"type"`
	MaxSeverity   int       `json:"max_severity"`
	AlertReasons  []string  `json:"alert_reasons"`
	MLScore       *float64  `json:"ml_score,omitempty"`
	AlertedAt     time.Time `json:"alerted_at"`
}

// AlertEventPublisher publishes alert events to NSQ for downstream consumers
type AlertEventPublisher struct {
	producer *nsq.Producer
	topic    string
	log      *logger.ZapLogger
}

// NewAlertEventPublisher creates a new NSQ alert publisher and verifies
// connectivity to the daemon.
func NewAlertEventPublisher(cfg models.NSQConfig, log *logger.ZapLogger) (*AlertEventPublisher, error) {
	config := nsq.NewConfig()
	producer, err := nsq.NewProducer(cfg.Address, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}

	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}

	return &AlertEventPublisher{
		producer: producer,
		topic:    cfg.AlertTopic,
		log:      log,
	}, nil
}

// PublishAlert sends one alert event to the alert topic
func (p *AlertEventPublisher) PublishAlert(_ context.Context, tx *models.Transaction, result *models.EvaluationResult) error {
	event := alertEvent{
		TransactionID: tx.ID.String(),
		CorrelationID: tx.CorrelationID,
		Amount:        tx.Amount.String(),
		From:          tx.From,
		To:            tx.To,
		Type:          string(tx.Type),
		MaxSeverity:   result.MaxSeverity,
		AlertReasons:  result.AlertReasons,
		MLScore:       result.MLScore,
		AlertedAt:     time.Now(),
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	if err := p.producer.Publish(p.topic, msgBytes); err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.log.Debug("Published alert event",
		logger.String("topic", p.topic),
		logger.String("transaction_id", tx.ID.String()))
	return nil
}

// Stop gracefully stops the producer
func (p *AlertEventPublisher) Stop() {
	p.producer.Stop()
}
