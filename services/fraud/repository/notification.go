package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// NotificationRepo provides access to channel configs and delivery logs
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

type notificationConfigDTO struct {
	ID              int64          `db:"id"`
	Channel         string         `db:"channel"`
	Enabled         bool           `db:"enabled"`
	MinSeverity     int            `db:"min_severity"`
	Configuration   []byte         `db:"configuration"`
	MessageTemplate sql.NullString `db:"message_template"`
}

// FindEnabledConfigs returns every enabled notification channel config
func (r *NotificationRepo) FindEnabledConfigs(ctx context.Context) ([]*models.NotificationConfig, error) {
	query := `
		SELECT id, channel, enabled, min_severity, configuration, message_template
		FROM notification_configs
		WHERE enabled = true
		ORDER BY id ASC
	`

	var dtos []notificationConfigDTO
	if err := r.db.SelectContext(ctx, &dtos, query); err != nil {
		return nil, fmt.Errorf("failed to query notification configs: %w", err)
	}

	configs := make([]*models.NotificationConfig, 0, len(dtos))
	for i := range dtos {
		dto := &dtos[i]
		configs = append(configs, &models.NotificationConfig{
			ID:              dto.ID,
			Channel:         models.NotificationChannel(dto.Channel),
			Enabled:         dto.Enabled,
			MinSeverity:     dto.MinSeverity,
			Configuration:   json.RawMessage(dto.Configuration),
			MessageTemplate: dto.MessageTemplate.String,
		})
	}
	return configs, nil
}

// SaveLog inserts one delivery attempt record
func (r *NotificationRepo) SaveLog(ctx context.Context, entry *models.NotificationLog) error {
	query := `
		INSERT INTO notification_logs (transaction_id, correlation_id, channel, status, message, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.TransactionID,
		entry.CorrelationID,
		string(entry.Channel),
		entry.Status,
		entry.Message,
		entry.Error,
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification log: %w", err)
	}
	return nil
}
