package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// RuleRepo provides read access to the persisted rule set
type RuleRepo struct {
	db *sqlx.DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sqlx.DB) *RuleRepo {
	return &RuleRepo{db: db}
}

type ruleDTO struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Description    sql.NullString `db:"description"`
	Type           string         `db:"type"`
	Configuration  []byte         `db:"configuration"`
	Enabled        bool           `db:"enabled"`
	Priority       int            `db:"priority"`
	Severity       int            `db:"severity"`
	CreatedBy      sql.NullString `db:"created_by"`
	ModifiedBy     sql.NullString `db:"modified_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	ExecutionCount int            `db:"execution_count"`
	AlertCount     int            `db:"alert_count"`
}

func (dto *ruleDTO) toModel() *models.Rule {
	return &models.Rule{
		ID:             dto.ID,
		Name:           dto.Name,
		Description:    dto.Description.String,
		Type:           models.RuleType(dto.Type),
		Configuration:  json.RawMessage(dto.Configuration),
		Enabled:        dto.Enabled,
		Priority:       dto.Priority,
		Severity:       dto.Severity,
		CreatedBy:      dto.CreatedBy.String,
		ModifiedBy:     dto.ModifiedBy.String,
		CreatedAt:      dto.CreatedAt,
		UpdatedAt:      dto.UpdatedAt,
		ExecutionCount: dto.ExecutionCount,
		AlertCount:     dto.AlertCount,
	}
}

// FindEnabledOrderByPriority returns all enabled rules in ascending priority
// order, the order the engine evaluates them in.
func (r *RuleRepo) FindEnabledOrderByPriority(ctx context.Context) ([]*models.Rule, error) {
	query := `
		SELECT id, name, description, type, configuration, enabled, priority, severity,
			created_by, modified_by, created_at, updated_at, execution_count, alert_count
		FROM rules
		WHERE enabled = true
		ORDER BY priority ASC
	`

	var dtos []ruleDTO
	if err := r.db.SelectContext(ctx, &dtos, query); err != nil {
		return nil, fmt.Errorf("failed to query enabled rules: %w", err)
	}

	rules := make([]*models.Rule, 0, len(dtos))
	for i := range dtos {
		rules = append(rules, dtos[i].toModel())
	}
	return rules, nil
}

// ListChangeHistory returns the audit trail for one rule, newest first
func (r *RuleRepo) ListChangeHistory(ctx context.Context, ruleID int64) ([]*models.RuleChangeHistory, error) {
	query := `
		SELECT id, rule_id, action, changed_by, old_configuration, new_configuration, changed_at
		FROM rule_change_history
		WHERE rule_id = $1
		ORDER BY changed_at DESC
	`

	type historyDTO struct {
		ID               int64          `db:"id"`
		RuleID           int64          `db:"rule_id"`
		Action           string         `db:"action"`
		ChangedBy        sql.NullString `db:"changed_by"`
		OldConfiguration sql.NullString `db:"old_configuration"`
		NewConfiguration sql.NullString `db:"new_configuration"`
		ChangedAt        time.Time      `db:"changed_at"`
	}

	var dtos []historyDTO
	if err := r.db.SelectContext(ctx, &dtos, query, ruleID); err != nil {
		return nil, fmt.Errorf("failed to query change history for rule %d: %w", ruleID, err)
	}

	entries := make([]*models.RuleChangeHistory, 0, len(dtos))
	for _, dto := range dtos {
		entries = append(entries, &models.RuleChangeHistory{
			ID:               dto.ID,
			RuleID:           dto.RuleID,
			Action:           dto.Action,
			ChangedBy:        dto.ChangedBy.String,
			OldConfiguration: dto.OldConfiguration.String,
			NewConfiguration: dto.NewConfiguration.String,
			ChangedAt:        dto.ChangedAt,
		})
	}
	return entries, nil
}
