package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// fakeTxRepo serves windowed history queries from a fixed slice
type fakeTxRepo struct {
	transactions []*models.Transaction
	err          error
}

func (f *fakeTxRepo) GetTransaction(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	for _, tx := range f.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeTxRepo) SaveTransaction(_ context.Context, _ *models.Transaction) error {
	return nil
}

func (f *fakeTxRepo) FindByAccountAndTimeWindow(_ context.Context, field models.AccountField, account string, start, end time.Time) ([]*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var matched []*models.Transaction
	for _, tx := range f.transactions {
		key := tx.From
		if field == models.AccountFieldTo {
			key = tx.To
		}
		if key != account {
			continue
		}
		if tx.Timestamp.Before(start) || tx.Timestamp.After(end) {
			continue
		}
		matched = append(matched, tx)
	}
	return matched, nil
}

func (f *fakeTxRepo) CountByStatus(_ context.Context, _ models.TransactionStatus) (int64, error) {
	return int64(len(f.transactions)), nil
}

func historyTx(from string, amount string, ts time.Time) *models.Transaction {
	return &models.Transaction{
		ID:        uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		From:      from,
		To:        "ACC-DEST",
		Type:      models.TypeTransfer,
		Timestamp: ts,
		Status:    models.StatusProcessed,
	}
}

func patternRule(config string) *models.Rule {
	return &models.Rule{
		ID:            2,
		Name:          "structuring",
		Type:          models.RuleTypePattern,
		Configuration: json.RawMessage(config),
		Enabled:       true,
		Severity:      4,
	}
}

func TestPatternEvaluator_MultipleSmallTransactions(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeTxRepo{transactions: []*models.Transaction{
		historyTx("ACC-001", "400", base.Add(-50*time.Minute)),
		historyTx("ACC-001", "450", base.Add(-30*time.Minute)),
		historyTx("ACC-001", "300", base.Add(-10*time.Minute)),
		// over the per-transaction ceiling, must not count
		historyTx("ACC-001", "5000", base.Add(-5*time.Minute)),
		// outside the window
		historyTx("ACC-001", "200", base.Add(-2*time.Hour)),
	}}
	evaluator := NewPatternEvaluator(repo, logger.NewNopLogger())

	rule := patternRule(`{"type":"multiple_small_transactions","time_window_minutes":60,"min_transactions":4,"max_amount_per_transaction":500}`)

	// The probe itself is part of the stored history, so three prior small
	// transactions plus the probe meet a threshold of four.
	probe := historyTx("ACC-001", "450", base)
	repo.transactions = append(repo.transactions, probe)

	triggered, err := evaluator.Evaluate(context.Background(), rule, probe)
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestPatternEvaluator_MultipleSmallBelowThreshold(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	probe := historyTx("ACC-001", "450", base)
	repo := &fakeTxRepo{transactions: []*models.Transaction{
		historyTx("ACC-001", "400", base.Add(-30*time.Minute)),
		probe,
	}}
	evaluator := NewPatternEvaluator(repo, logger.NewNopLogger())

	rule := patternRule(`{"type":"multiple_small_transactions","time_window_minutes":60,"min_transactions":4,"max_amount_per_transaction":500}`)

	triggered, err := evaluator.Evaluate(context.Background(), rule, probe)
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestPatternEvaluator_RapidSuccession(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	probe := historyTx("ACC-007", "90000", base)
	repo := &fakeTxRepo{transactions: []*models.Transaction{
		historyTx("ACC-007", "100", base.Add(-40*time.Second)),
		historyTx("ACC-007", "25000", base.Add(-20*time.Second)),
		probe,
	}}
	evaluator := NewPatternEvaluator(repo, logger.NewNopLogger())

	// Amounts are irrelevant to this pattern; only the count matters
	rule := patternRule(`{"type":"rapid_succession","time_window_seconds":60,"min_transactions":3}`)

	triggered, err := evaluator.Evaluate(context.Background(), rule, probe)
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestPatternEvaluator_AccountFieldTo(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	mkIncoming := func(amount string, ts time.Time) *models.Transaction {
		tx := historyTx("ACC-RANDOM", amount, ts)
		tx.To = "ACC-MULE"
		return tx
	}
	probe := mkIncoming("100", base)
	repo := &fakeTxRepo{transactions: []*models.Transaction{
		mkIncoming("150", base.Add(-10*time.Minute)),
		mkIncoming("120", base.Add(-5*time.Minute)),
		probe,
	}}
	evaluator := NewPatternEvaluator(repo, logger.NewNopLogger())

	rule := patternRule(`{"type":"multiple_small_transactions","time_window_minutes":30,"min_transactions":3,"max_amount_per_transaction":200,"account_field":"to"}`)

	triggered, err := evaluator.Evaluate(context.Background(), rule, probe)
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestPatternEvaluator_InvalidConfig(t *testing.T) {
	evaluator := NewPatternEvaluator(&fakeTxRepo{}, logger.NewNopLogger())
	probe := historyTx("ACC-001", "100", time.Now())

	t.Run("unknown pattern type", func(t *testing.T) {
		_, err := evaluator.Evaluate(context.Background(), patternRule(`{"type":"round_amounts"}`), probe)
		assert.Error(t, err)
	})

	t.Run("missing window", func(t *testing.T) {
		_, err := evaluator.Evaluate(context.Background(), patternRule(`{"type":"multiple_small_transactions","min_transactions":3,"max_amount_per_transaction":500}`), probe)
		assert.Error(t, err)
	})
}

func TestPatternEvaluator_RepoErrorPropagates(t *testing.T) {
	repo := &fakeTxRepo{err: errors.New("connection refused")}
	evaluator := NewPatternEvaluator(repo, logger.NewNopLogger())
	probe := historyTx("ACC-001", "100", time.Now())

	rule := patternRule(`{"type":"rapid_succession","time_window_seconds":60,"min_transactions":3}`)
	_, err := evaluator.Evaluate(context.Background(), rule, probe)
	assert.Error(t, err)
}
