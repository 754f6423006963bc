package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationChannel identifies a delivery channel kind
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "EMAIL"
	ChannelTelegram NotificationChannel = "TELEGRAM"
	ChannelWebhook  NotificationChannel = "WEBHOOK"
)

// Notification log outcomes
const (
	NotificationSuccess = "SUCCESS"
	NotificationFailed  = "FAILED"
)

// NotificationConfig describes one alert delivery channel. A channel is only
// used when it is enabled and the alert's max severity meets MinSeverity.
type NotificationConfig struct {
	ID              int64               `json:"id"`
	Channel         NotificationChannel `json:"channel"`
	Enabled         bool                `json:"enabled"`
	MinSeverity     int                 `json:"min_severity"`
	Configuration   json.RawMessage     `json:"configuration"`
	MessageTemplate string              `json:"message_template,omitempty"`
}

// NotificationLog records one delivery attempt, success or failure
type NotificationLog struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	CorrelationID string              `json:"correlation_id"`
	Channel       NotificationChannel `json:"channel"`
	Status        string              `json:"status"`
	Message       string              `json:"message,omitempty"`
	Error         string              `json:"error,omitempty"`
	SentAt        time.Time           `json:"sent_at"`
}
