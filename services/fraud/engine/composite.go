package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/shopspring/decimal"
)

// compositeConfig is the typed form of a COMPOSITE rule's configuration
type compositeConfig struct {
	Operator   string               `json:"operator"`
	Conditions []compositeCondition `json:"conditions"`
}

// compositeCondition is one leaf condition. Which fields apply depends on
// Type: amount uses Operator+Value, time_window uses StartHour+EndHour,
// type uses Value, account uses Field+Pattern.
type compositeCondition struct {
	Type      string      `json:"type"`
	Operator  string      `json:"operator,omitempty"`
	Value     interface{} `json:"value,omitempty"`
	StartHour int         `json:"start_hour,omitempty"`
	EndHour   int         `json:"end_hour,omitempty"`
	Field     string      `json:"field,omitempty"`
	Pattern   string      `json:"pattern,omitempty"`
}

// CompositeEvaluator combines leaf conditions with a boolean operator.
// NOT means "no listed condition holds" (a NOR over the list), not negation
// of a single condition.
type CompositeEvaluator struct {
	log *logger.ZapLogger
}

// NewCompositeEvaluator creates a new composite evaluator
func NewCompositeEvaluator(log *logger.ZapLogger) *CompositeEvaluator {
	return &CompositeEvaluator{log: log}
}

// Evaluate reports whether the boolean combination holds
func (e *CompositeEvaluator) Evaluate(_ context.Context, rule *models.Rule, tx *models.Transaction) (bool, error) {
	var cfg compositeConfig
	if err := json.Unmarshal(rule.Configuration, &cfg); err != nil {
		return false, fmt.Errorf("invalid composite configuration: %w", err)
	}
	if len(cfg.Conditions) == 0 {
		return false, fmt.Errorf("composite rule has no conditions")
	}

	switch cfg.Operator {
	case "AND":
		for _, cond := range cfg.Conditions {
			if !e.evaluateCondition(cond, tx) {
				return false, nil
			}
		}
		return true, nil
	case "OR":
		for _, cond := range cfg.Conditions {
			if e.evaluateCondition(cond, tx) {
				return true, nil
			}
		}
		return false, nil
	case "NOT":
		for _, cond := range cfg.Conditions {
			if e.evaluateCondition(cond, tx) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown composite operator: %q", cfg.Operator)
	}
}

func (e *CompositeEvaluator) evaluateCondition(cond compositeCondition, tx *models.Transaction) bool {
	switch cond.Type {
	case "amount":
		return e.evaluateAmount(cond, tx)
	case "time_window":
		return evaluateTimeWindow(cond, tx)
	case "type":
		value, ok := cond.Value.(string)
		return ok && tx.Type == models.TransactionType(value)
	case "account":
		return e.evaluateAccount(cond, tx)
	default:
		e.log.Warn("Unknown composite condition type", logger.String("type", cond.Type))
		return false
	}
}

func (e *CompositeEvaluator) evaluateAmount(cond compositeCondition, tx *models.Transaction) bool {
	value, err := decimal.NewFromString(fmt.Sprintf("%v", cond.Value))
	if err != nil {
		e.log.Warn("Invalid amount condition value", logger.Any("value", cond.Value))
		return false
	}

	cmp := tx.Amount.Cmp(value)
	switch cond.Operator {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case "=":
		return cmp == 0
	default:
		return false
	}
}

// evaluateTimeWindow checks whether the transaction's hour falls inside
// [start_hour, end_hour); a start after the end wraps across midnight.
func evaluateTimeWindow(cond compositeCondition, tx *models.Transaction) bool {
	hour := tx.Timestamp.Hour()
	if cond.StartHour > cond.EndHour {
		return hour >= cond.StartHour || hour < cond.EndHour
	}
	return hour >= cond.StartHour && hour < cond.EndHour
}

func (e *CompositeEvaluator) evaluateAccount(cond compositeCondition, tx *models.Transaction) bool {
	account := tx.From
	if cond.Field == string(models.AccountFieldTo) {
		account = tx.To
	}

	matched, err := regexp.MatchString(cond.Pattern, account)
	if err != nil {
		e.log.Warn("Invalid account condition pattern",
			logger.String("pattern", cond.Pattern),
			logger.Err(err))
		return false
	}
	return matched
}
