package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// webhookConfig is the channel-specific part of a WEBHOOK notification config
type webhookConfig struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// webhookPayload is the JSON body posted to the configured endpoint
type webhookPayload struct {
	TransactionID string   `json:"transaction_id"`
	CorrelationID string   `json:"correlation_id"`
	Amount        string   `json:"amount"`
	From          string   `json:"from_account"`
	To            string   `json:"to_account"`
	Type          string   `json:"type"`
	Timestamp     string   `json:"timestamp"`
	AlertReasons  []string `json:"alert_reasons"`
	Message       string   `json:"message"`
}

// WebhookSender delivers alert payloads to an arbitrary HTTP endpoint
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender(cfg models.NotifyConfig) *WebhookSender {
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{client: &http.Client{Timeout: timeout}}
}

// Send posts the alert payload to the configured URL
func (s *WebhookSender) Send(ctx context.Context, config *models.NotificationConfig, message string, tx *models.Transaction) error {
	var cfg webhookConfig
	if err := json.Unmarshal(config.Configuration, &cfg); err != nil {
		return fmt.Errorf("invalid webhook channel configuration: %w", err)
	}
	if cfg.URL == "" {
		return fmt.Errorf("webhook channel has no url")
	}

	method := cfg.Method
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodPost, http.MethodPut:
	default:
		return fmt.Errorf("unsupported webhook method: %q", cfg.Method)
	}

	payload, err := json.Marshal(webhookPayload{
		TransactionID: tx.ID.String(),
		CorrelationID: tx.CorrelationID,
		Amount:        tx.Amount.String(),
		From:          tx.From,
		To:            tx.To,
		Type:          string(tx.Type),
		Timestamp:     tx.Timestamp.Format(time.RFC3339),
		AlertReasons:  tx.AlertReasons,
		Message:       message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
