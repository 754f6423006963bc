package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
)

// modelConfig is the typed form of a MODEL rule's configuration
type modelConfig struct {
	Threshold *float64 `json:"threshold"`
}

// ModelEvaluator scores a transaction through the external model collaborator
// and triggers when the returned probability meets the rule's threshold.
// Scorer unavailability degrades to "not triggered"; it never blocks the
// pipeline.
type ModelEvaluator struct {
	scorer           fraud.Scorer
	defaultThreshold float64
	log              *logger.ZapLogger
}

// NewModelEvaluator creates a new model evaluator
func NewModelEvaluator(scorer fraud.Scorer, defaultThreshold float64, log *logger.ZapLogger) *ModelEvaluator {
	return &ModelEvaluator{
		scorer:           scorer,
		defaultThreshold: defaultThreshold,
		log:              log,
	}
}

// Evaluate scores the transaction and compares against the rule threshold.
// The score is written onto the transaction whenever scoring succeeds.
func (e *ModelEvaluator) Evaluate(ctx context.Context, rule *models.Rule, tx *models.Transaction) (bool, error) {
	var cfg modelConfig
	if err := json.Unmarshal(rule.Configuration, &cfg); err != nil {
		return false, fmt.Errorf("invalid model configuration: %w", err)
	}

	threshold := e.defaultThreshold
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}

	features := ExtractFeatures(tx)
	score, err := e.scorer.Score(ctx, features)
	if errors.Is(err, fraud.ErrScorerUnavailable) {
		e.log.Warn("Scoring model unavailable, skipping model rule",
			logger.String("rule", rule.Name))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scoring failed: %w", err)
	}

	tx.MLScore = &score

	triggered := score >= threshold
	e.log.Debug("Model prediction",
		logger.Float64("score", score),
		logger.Float64("threshold", threshold),
		logger.Bool("triggered", triggered))
	return triggered, nil
}
