package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

func compositeRule(config string) *models.Rule {
	return &models.Rule{
		ID:            3,
		Name:          "night-transfer",
		Type:          models.RuleTypeComposite,
		Configuration: json.RawMessage(config),
		Enabled:       true,
		Severity:      3,
	}
}

func TestCompositeEvaluator_And(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())
	rule := compositeRule(`{
		"operator": "AND",
		"conditions": [
			{"type": "amount", "operator": ">", "value": 10000},
			{"type": "type", "value": "TRANSFER"}
		]
	}`)

	tx := testTransaction("50000")
	triggered, err := evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.True(t, triggered)

	tx.Type = models.TypePayment
	triggered, err = evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCompositeEvaluator_Or(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())
	rule := compositeRule(`{
		"operator": "OR",
		"conditions": [
			{"type": "amount", "operator": ">", "value": 1000000},
			{"type": "account", "field": "to", "pattern": "^OFFSHORE-"}
		]
	}`)

	tx := testTransaction("100")
	tx.To = "OFFSHORE-9931"
	triggered, err := evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.True(t, triggered)

	tx.To = "ACC-002"
	triggered, err = evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCompositeEvaluator_NotIsNorOverConditions(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())
	rule := compositeRule(`{
		"operator": "NOT",
		"conditions": [
			{"type": "amount", "operator": ">", "value": 10000},
			{"type": "type", "value": "WITHDRAWAL"}
		]
	}`)

	// Neither condition holds: NOT triggers
	tx := testTransaction("500")
	triggered, err := evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.True(t, triggered)

	// One of the two conditions holds: NOT must not trigger
	tx.Type = models.TypeWithdrawal
	triggered, err = evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCompositeEvaluator_NotSingleCondition(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())
	rule := compositeRule(`{
		"operator": "NOT",
		"conditions": [{"type": "type", "value": "TRANSFER"}]
	}`)

	tx := testTransaction("100")
	tx.Type = models.TypeDeposit
	triggered, err := evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.True(t, triggered)

	tx.Type = models.TypeTransfer
	triggered, err = evaluator.Evaluate(context.Background(), rule, tx)
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCompositeEvaluator_TimeWindow(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())

	at := func(hour int) *models.Transaction {
		tx := testTransaction("100")
		tx.Timestamp = time.Date(2025, 3, 10, hour, 15, 0, 0, time.UTC)
		return tx
	}

	t.Run("plain window end-exclusive", func(t *testing.T) {
		rule := compositeRule(`{"operator":"AND","conditions":[{"type":"time_window","start_hour":9,"end_hour":17}]}`)

		for hour, want := range map[int]bool{8: false, 9: true, 16: true, 17: false} {
			triggered, err := evaluator.Evaluate(context.Background(), rule, at(hour))
			require.NoError(t, err)
			assert.Equal(t, want, triggered, "hour %d", hour)
		}
	})

	t.Run("window wrapping midnight", func(t *testing.T) {
		rule := compositeRule(`{"operator":"AND","conditions":[{"type":"time_window","start_hour":22,"end_hour":6}]}`)

		for hour, want := range map[int]bool{21: false, 22: true, 23: true, 0: true, 5: true, 6: false, 12: false} {
			triggered, err := evaluator.Evaluate(context.Background(), rule, at(hour))
			require.NoError(t, err)
			assert.Equal(t, want, triggered, "hour %d", hour)
		}
	})
}

func TestCompositeEvaluator_UnknownConditionTypeIsFalse(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())
	rule := compositeRule(`{"operator":"OR","conditions":[{"type":"moon_phase"}]}`)

	triggered, err := evaluator.Evaluate(context.Background(), rule, testTransaction("100"))
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCompositeEvaluator_InvalidConfig(t *testing.T) {
	evaluator := NewCompositeEvaluator(logger.NewNopLogger())
	tx := testTransaction("100")

	t.Run("empty conditions", func(t *testing.T) {
		_, err := evaluator.Evaluate(context.Background(), compositeRule(`{"operator":"AND","conditions":[]}`), tx)
		assert.Error(t, err)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := evaluator.Evaluate(context.Background(), compositeRule(`{"operator":"XOR","conditions":[{"type":"type","value":"TRANSFER"}]}`), tx)
		assert.Error(t, err)
	})
}
