package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

const telegramAPIBase = "https://api.telegram.org"

// telegramConfig is the channel-specific part of a TELEGRAM notification config
type telegramConfig struct {
	ChatID string `json:"chat_id"`
}

// TelegramSender delivers alert messages through the Telegram bot API
type TelegramSender struct {
	cfg     models.NotifyConfig
	client  *http.Client
	apiBase string
}

// NewTelegramSender creates a new Telegram sender
func NewTelegramSender(cfg models.NotifyConfig) *TelegramSender {
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramSender{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		apiBase: telegramAPIBase,
	}
}

// Send posts the rendered message to the configured chat
func (s *TelegramSender) Send(ctx context.Context, config *models.NotificationConfig, message string, _ *models.Transaction) error {
	if !s.cfg.TelegramEnabled || s.cfg.TelegramBotToken == "" {
		return fmt.Errorf("telegram channel is not configured")
	}

	var cfg telegramConfig
	if err := json.Unmarshal(config.Configuration, &cfg); err != nil {
		return fmt.Errorf("invalid telegram channel configuration: %w", err)
	}
	if cfg.ChatID == "" {
		return fmt.Errorf("telegram channel has no chat_id")
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": cfg.ChatID,
		"text":    message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.cfg.TelegramBotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
