package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RuleType identifies which evaluator a rule dispatches to.
// The set is closed; dispatch is a type switch, not reflection.
type RuleType string

const (
	RuleTypeThreshold RuleType = "THRESHOLD"
	RuleTypePattern   RuleType = "PATTERN"
	RuleTypeComposite RuleType = "COMPOSITE"
	RuleTypeModel     RuleType = "MODEL"
)

// Rule is a persisted, typed fraud-detection condition. Rules are created and
// edited by the admin surface; the engine holds a point-in-time cached copy.
type Rule struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Type          RuleType        `json:"type"`
	Configuration json.RawMessage `json:"configuration"`
	Enabled       bool            `json:"enabled"`
	Priority      int             `json:"priority"`
	Severity      int             `json:"severity"`

	CreatedBy      string    `json:"created_by,omitempty"`
	ModifiedBy     string    `json:"modified_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ExecutionCount int       `json:"execution_count"`
	AlertCount     int       `json:"alert_count"`
}

// RuleChangeHistory records one admin mutation of a rule
type RuleChangeHistory struct {
	ID               int64     `json:"id"`
	RuleID           int64     `json:"rule_id"`
	Action           string    `json:"action"`
	ChangedBy        string    `json:"changed_by"`
	OldConfiguration string    `json:"old_configuration,omitempty"`
	NewConfiguration string    `json:"new_configuration,omitempty"`
	ChangedAt        time.Time `json:"changed_at"`
}

// EvaluationResult is the ephemeral outcome of evaluating one transaction
// against the active rule set. Its fields are folded into the transaction;
// the result itself is never persisted.
type EvaluationResult struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	CorrelationID  string    `json:"correlation_id"`
	Alerted        bool      `json:"alerted"`
	TriggeredRules []*Rule   `json:"triggered_rules"`
	AlertReasons   []string  `json:"alert_reasons"`
	MaxSeverity    int       `json:"max_severity"`
	MLScore        *float64  `json:"ml_score,omitempty"`
}
