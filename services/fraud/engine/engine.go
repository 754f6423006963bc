package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
)

// Evaluator evaluates one rule against one transaction
type Evaluator interface {
	Evaluate(ctx context.Context, rule *models.Rule, tx *models.Transaction) (bool, error)
}

// Engine evaluates transactions against the cached rule set in priority
// order. The rule set is replaced wholesale on Reload; readers always see
// either the old or the new complete list.
type Engine struct {
	ruleRepo fraud.RuleRepo
	log      *logger.ZapLogger

	threshold Evaluator
	pattern   Evaluator
	composite Evaluator
	model     Evaluator

	// rules holds []*models.Rule, swapped atomically on reload
	rules atomic.Value

	shortCircuitSeverity int
}

// NewEngine creates a new rule engine with its evaluator set
func NewEngine(
	ruleRepo fraud.RuleRepo,
	txRepo fraud.TransactionRepo,
	scorer fraud.Scorer,
	engineCfg models.EngineConfig,
	scoringCfg models.ScoringConfig,
	log *logger.ZapLogger,
) *Engine {
	e := &Engine{
		ruleRepo:             ruleRepo,
		log:                  log,
		threshold:            NewThresholdEvaluator(),
		pattern:              NewPatternEvaluator(txRepo, log),
		composite:            NewCompositeEvaluator(log),
		model:                NewModelEvaluator(scorer, scoringCfg.DefaultThreshold, log),
		shortCircuitSeverity: engineCfg.ShortCircuitSeverity,
	}
	e.rules.Store([]*models.Rule{})
	return e
}

// Reload re-reads the enabled rules from storage and swaps the cache.
// Called synchronously by the admin surface after any rule mutation.
func (e *Engine) Reload(ctx context.Context) error {
	rules, err := e.ruleRepo.FindEnabledOrderByPriority(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	e.rules.Store(rules)
	e.log.Info("Rules reloaded", logger.Int("active_rules", len(rules)))
	return nil
}

func (e *Engine) activeRules() []*models.Rule {
	return e.rules.Load().([]*models.Rule)
}

// Evaluate runs the transaction against all cached rules in priority order.
// A rule triggering at or above the short-circuit severity stops evaluation;
// a failing evaluator is logged and treated as not triggered for that rule.
func (e *Engine) Evaluate(ctx context.Context, tx *models.Transaction) *models.EvaluationResult {
	result := &models.EvaluationResult{
		TransactionID:  tx.ID,
		CorrelationID:  tx.CorrelationID,
		TriggeredRules: []*models.Rule{},
		AlertReasons:   []string{},
	}

	rules := e.activeRules()
	log := e.log.WithCorrelationID(tx.CorrelationID)
	log.Debug("Evaluating rules",
		logger.Int("rules", len(rules)),
		logger.String("transaction_id", tx.ID.String()))

	for _, rule := range rules {
		triggered, err := e.evaluateRule(ctx, rule, tx)
		if err != nil {
			log.Error("Error evaluating rule",
				logger.String("rule", rule.Name),
				logger.Err(err))
			continue
		}
		if !triggered {
			continue
		}

		result.TriggeredRules = append(result.TriggeredRules, rule)
		result.AlertReasons = append(result.AlertReasons, fmt.Sprintf(
			"Rule '%s' (type: %s, severity: %d) triggered",
			rule.Name, rule.Type, rule.Severity,
		))
		result.Alerted = true
		if rule.Severity > result.MaxSeverity {
			result.MaxSeverity = rule.Severity
		}

		if rule.Severity >= e.shortCircuitSeverity {
			log.Warn("Critical rule triggered, short-circuiting",
				logger.String("rule", rule.Name),
				logger.Int("severity", rule.Severity))
			break
		}
	}

	if tx.MLScore != nil {
		result.MLScore = tx.MLScore
	}

	log.Info("Transaction evaluation complete",
		logger.Bool("alerted", result.Alerted),
		logger.Int("triggered_rules", len(result.TriggeredRules)))
	return result
}

// evaluateRule dispatches to the evaluator for the rule's type. The type set
// is closed; an unknown type is a malformed rule.
func (e *Engine) evaluateRule(ctx context.Context, rule *models.Rule, tx *models.Transaction) (bool, error) {
	switch rule.Type {
	case models.RuleTypeThreshold:
		return e.threshold.Evaluate(ctx, rule, tx)
	case models.RuleTypePattern:
		return e.pattern.Evaluate(ctx, rule, tx)
	case models.RuleTypeComposite:
		return e.composite.Evaluate(ctx, rule, tx)
	case models.RuleTypeModel:
		return e.model.Evaluate(ctx, rule, tx)
	default:
		return false, fmt.Errorf("unknown rule type: %s", rule.Type)
	}
}
