package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/metrics"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
)

// defaultTemplate is used when a channel config carries no template of its own
const defaultTemplate = "FRAUD ALERT [severity {{severity}}]: transaction {{transactionId}} " +
	"({{type}}, amount {{amount}}) from {{from}} to {{to}} at {{timestamp}}. " +
	"Triggered rules: {{triggeredRules}}. Reasons: {{reasons}}. Details: {{detailsUrl}}"

// Dispatcher fans an alert out to every enabled channel whose minimum
// severity the alert meets. Channels are independent; one channel failing
// never suppresses the others, and dispatch itself never fails the
// transaction.
type Dispatcher struct {
	notifRepo      fraud.NotificationRepo
	senders        map[models.NotificationChannel]fraud.ChannelSender
	detailsBaseURL string
	collector      *metrics.Collector
	log            *logger.ZapLogger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(
	notifRepo fraud.NotificationRepo,
	senders map[models.NotificationChannel]fraud.ChannelSender,
	detailsBaseURL string,
	collector *metrics.Collector,
	log *logger.ZapLogger,
) *Dispatcher {
	return &Dispatcher{
		notifRepo:      notifRepo,
		senders:        senders,
		detailsBaseURL: detailsBaseURL,
		collector:      collector,
		log:            log,
	}
}

// Dispatch delivers the alert to all eligible channels and records one
// delivery log row per attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *models.Transaction, result *models.EvaluationResult) {
	log := d.log.WithCorrelationID(tx.CorrelationID)

	configs, err := d.notifRepo.FindEnabledConfigs(ctx)
	if err != nil {
		log.Error("Failed to load notification configs", logger.Err(err))
		return
	}

	for _, cfg := range configs {
		if result.MaxSeverity < cfg.MinSeverity {
			log.Debug("Skipping channel below severity gate",
				logger.String("channel", string(cfg.Channel)),
				logger.Int("min_severity", cfg.MinSeverity),
				logger.Int("severity", result.MaxSeverity))
			continue
		}

		sender, ok := d.senders[cfg.Channel]
		if !ok {
			log.Warn("No sender registered for channel", logger.String("channel", string(cfg.Channel)))
			continue
		}

		message := d.renderMessage(cfg, tx, result)
		err := sender.Send(ctx, cfg, message, tx)
		d.recordAttempt(ctx, cfg, tx, message, err)
	}
}

// recordAttempt persists the delivery log row and counts the outcome
func (d *Dispatcher) recordAttempt(ctx context.Context, cfg *models.NotificationConfig, tx *models.Transaction, message string, sendErr error) {
	log := d.log.WithCorrelationID(tx.CorrelationID)

	entry := &models.NotificationLog{
		TransactionID: tx.ID,
		CorrelationID: tx.CorrelationID,
		Channel:       cfg.Channel,
		Status:        models.NotificationSuccess,
		Message:       message,
		SentAt:        time.Now(),
	}
	if sendErr != nil {
		entry.Status = models.NotificationFailed
		entry.Error = sendErr.Error()
		log.Error("Notification delivery failed",
			logger.String("channel", string(cfg.Channel)),
			logger.Err(sendErr))
	} else {
		log.Info("Notification delivered", logger.String("channel", string(cfg.Channel)))
	}
	d.collector.RecordNotification(string(cfg.Channel), sendErr == nil)

	if err := d.notifRepo.SaveLog(ctx, entry); err != nil {
		log.Error("Failed to persist notification log",
			logger.String("channel", string(cfg.Channel)),
			logger.Err(err))
	}
}

// renderMessage substitutes alert placeholders into the channel's template
func (d *Dispatcher) renderMessage(cfg *models.NotificationConfig, tx *models.Transaction, result *models.EvaluationResult) string {
	template := cfg.MessageTemplate
	if template == "" {
		template = defaultTemplate
	}

	mlScore := "N/A"
	if result.MLScore != nil {
		mlScore = fmt.Sprintf("%.4f", *result.MLScore)
	}

	ruleNames := make([]string, 0, len(result.TriggeredRules))
	for _, rule := range result.TriggeredRules {
		ruleNames = append(ruleNames, rule.Name)
	}

	replacer := strings.NewReplacer(
		"{{transactionId}}", tx.ID.String(),
		"{{correlationId}}", tx.CorrelationID,
		"{{amount}}", tx.Amount.String(),
		"{{from}}", tx.From,
		"{{to}}", tx.To,
		"{{type}}", string(tx.Type),
		"{{timestamp}}", tx.Timestamp.Format(time.RFC3339),
		"{{severity}}", fmt.Sprintf("%d", result.MaxSeverity),
		"{{mlScore}}", mlScore,
		"{{triggeredRules}}", strings.Join(ruleNames, ", "),
		"{{reasons}}", strings.Join(result.AlertReasons, "; "),
		"{{detailsUrl}}", d.detailsBaseURL+"/transactions/"+tx.ID.String(),
	)
	return replacer.Replace(template)
}
