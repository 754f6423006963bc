package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
	"github.com/shopspring/decimal"
)

const (
	patternMultipleSmall   = "multiple_small_transactions"
	patternRapidSuccession = "rapid_succession"
)

// patternConfig is the typed form of a PATTERN rule's configuration. Which
// fields apply depends on Type.
type patternConfig struct {
	Type                    string      `json:"type"`
	TimeWindowMinutes       int         `json:"time_window_minutes"`
	TimeWindowSeconds       int         `json:"time_window_seconds"`
	MinTransactions         int         `json:"min_transactions"`
	MaxAmountPerTransaction json.Number `json:"max_amount_per_transaction"`
	AccountField            string      `json:"account_field"`
}

// PatternEvaluator detects behavioral patterns over a trailing time window
// by querying historical transactions from storage. The windowed query
// covers [timestamp-window, timestamp], so the transaction under evaluation
// counts toward its own threshold; it is persisted before evaluation.
type PatternEvaluator struct {
	txRepo fraud.TransactionRepo
	log    *logger.ZapLogger
}

// NewPatternEvaluator creates a new pattern evaluator
func NewPatternEvaluator(txRepo fraud.TransactionRepo, log *logger.ZapLogger) *PatternEvaluator {
	return &PatternEvaluator{txRepo: txRepo, log: log}
}

// Evaluate dispatches to the configured pattern sub-kind
func (e *PatternEvaluator) Evaluate(ctx context.Context, rule *models.Rule, tx *models.Transaction) (bool, error) {
	var cfg patternConfig
	if err := json.Unmarshal(rule.Configuration, &cfg); err != nil {
		return false, fmt.Errorf("invalid pattern configuration: %w", err)
	}

	switch cfg.Type {
	case patternMultipleSmall:
		return e.evaluateMultipleSmall(ctx, cfg, tx)
	case patternRapidSuccession:
		return e.evaluateRapidSuccession(ctx, cfg, tx)
	default:
		return false, fmt.Errorf("unknown pattern type: %q", cfg.Type)
	}
}

// evaluateMultipleSmall triggers when enough transactions at or below the
// amount ceiling occurred on the keyed account within the window.
func (e *PatternEvaluator) evaluateMultipleSmall(ctx context.Context, cfg patternConfig, tx *models.Transaction) (bool, error) {
	if cfg.MinTransactions <= 0 || cfg.TimeWindowMinutes <= 0 {
		return false, fmt.Errorf("pattern %s requires positive min_transactions and time_window_minutes", patternMultipleSmall)
	}

	ceiling, err := decimal.NewFromString(cfg.MaxAmountPerTransaction.String())
	if err != nil {
		return false, fmt.Errorf("invalid max_amount_per_transaction %q: %w", cfg.MaxAmountPerTransaction, err)
	}

	field := models.AccountFieldFrom
	account := tx.From
	if cfg.AccountField == string(models.AccountFieldTo) {
		field = models.AccountFieldTo
		account = tx.To
	}

	windowStart := tx.Timestamp.Add(-time.Duration(cfg.TimeWindowMinutes) * time.Minute)
	recent, err := e.txRepo.FindByAccountAndTimeWindow(ctx, field, account, windowStart, tx.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to query window for account %s: %w", account, err)
	}

	var smallCount int
	for _, t := range recent {
		if t.Amount.LessThanOrEqual(ceiling) {
			smallCount++
		}
	}

	triggered := smallCount >= cfg.MinTransactions
	if triggered {
		e.log.Warn("Pattern detected: multiple small transactions",
			logger.Int("count", smallCount),
			logger.String("account", account),
			logger.Int("window_minutes", cfg.TimeWindowMinutes))
	}
	return triggered, nil
}

// evaluateRapidSuccession triggers purely on transaction count from the
// source account within the window, ignoring amounts.
func (e *PatternEvaluator) evaluateRapidSuccession(ctx context.Context, cfg patternConfig, tx *models.Transaction) (bool, error) {
	if cfg.MinTransactions <= 0 || cfg.TimeWindowSeconds <= 0 {
		return false, fmt.Errorf("pattern %s requires positive min_transactions and time_window_seconds", patternRapidSuccession)
	}

	windowStart := tx.Timestamp.Add(-time.Duration(cfg.TimeWindowSeconds) * time.Second)
	recent, err := e.txRepo.FindByAccountAndTimeWindow(ctx, models.AccountFieldFrom, tx.From, windowStart, tx.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to query window for account %s: %w", tx.From, err)
	}

	triggered := len(recent) >= cfg.MinTransactions
	if triggered {
		e.log.Warn("Pattern detected: rapid succession",
			logger.Int("count", len(recent)),
			logger.String("account", tx.From),
			logger.Int("window_seconds", cfg.TimeWindowSeconds))
	}
	return triggered, nil
}
