package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/shopspring/decimal"
)

// thresholdConfig is the typed form of a THRESHOLD rule's configuration.
// Unknown fields in the document are ignored.
type thresholdConfig struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    json.Number `json:"value"`
}

// ThresholdEvaluator compares a single transaction field against a literal
// value using exact decimal comparison, never float epsilon comparison.
type ThresholdEvaluator struct{}

// NewThresholdEvaluator creates a new threshold evaluator
func NewThresholdEvaluator() *ThresholdEvaluator {
	return &ThresholdEvaluator{}
}

// Evaluate reports whether the configured comparison holds
func (e *ThresholdEvaluator) Evaluate(_ context.Context, rule *models.Rule, tx *models.Transaction) (bool, error) {
	var cfg thresholdConfig
	if err := json.Unmarshal(rule.Configuration, &cfg); err != nil {
		return false, fmt.Errorf("invalid threshold configuration: %w", err)
	}

	threshold, err := decimal.NewFromString(cfg.Value.String())
	if err != nil {
		return false, fmt.Errorf("invalid threshold value %q: %w", cfg.Value, err)
	}

	actual, err := fieldValue(tx, cfg.Field)
	if err != nil {
		return false, err
	}

	cmp := actual.Cmp(threshold)
	switch cfg.Operator {
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	default:
		return false, fmt.Errorf("unknown threshold operator: %q", cfg.Operator)
	}
}

func fieldValue(tx *models.Transaction, field string) (decimal.Decimal, error) {
	switch field {
	case "amount":
		return tx.Amount, nil
	case "model_score":
		if tx.MLScore == nil {
			return decimal.Zero, nil
		}
		return decimal.NewFromFloat(*tx.MLScore), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown threshold field: %q", field)
	}
}
