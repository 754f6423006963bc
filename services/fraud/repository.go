package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// TransactionRepo defines the interface for transaction data access operations
type TransactionRepo interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// SaveTransaction persists the full transaction state as an idempotent
	// overwrite; duplicate queue delivery must never append twice.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	FindByAccountAndTimeWindow(ctx context.Context, field models.AccountField, account string, start, end time.Time) ([]*models.Transaction, error)
	CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error)
}

// RuleRepo defines the interface for read-only rule access
type RuleRepo interface {
	FindEnabledOrderByPriority(ctx context.Context) ([]*models.Rule, error)
	ListChangeHistory(ctx context.Context, ruleID int64) ([]*models.RuleChangeHistory, error)
}

// NotificationRepo defines the interface for notification config and log access
type NotificationRepo interface {
	FindEnabledConfigs(ctx context.Context) ([]*models.NotificationConfig, error)
	SaveLog(ctx context.Context, entry *models.NotificationLog) error
}
