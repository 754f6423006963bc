package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// emailConfig is the channel-specific part of an EMAIL notification config
type emailConfig struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
}

// EmailSender delivers alert messages over SMTP
type EmailSender struct {
	cfg models.NotifyConfig
}

// NewEmailSender creates a new SMTP email sender
func NewEmailSender(cfg models.NotifyConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send delivers the rendered message to the configured recipients
func (s *EmailSender) Send(_ context.Context, config *models.NotificationConfig, message string, tx *models.Transaction) error {
	var cfg emailConfig
	if err := json.Unmarshal(config.Configuration, &cfg); err != nil {
		return fmt.Errorf("invalid email channel configuration: %w", err)
	}
	if len(cfg.To) == 0 {
		return fmt.Errorf("email channel has no recipients")
	}

	subject := cfg.Subject
	if subject == "" {
		subject = fmt.Sprintf("Fraud alert: transaction %s", tx.ID)
	}

	body := strings.Join([]string{
		"From: " + s.cfg.SMTPFrom,
		"To: " + strings.Join(cfg.To, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		message,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.SMTPFrom, cfg.To, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
