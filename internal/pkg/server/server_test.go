package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
)

func TestShutdownManager_RunsAllFunctions(t *testing.T) {
	sm := NewShutdownManager(logger.NewNopLogger())

	var order []int
	sm.Register(func(context.Context) error {
		order = append(order, 1)
		return nil
	})
	sm.Register(func(context.Context) error {
		order = append(order, 2)
		return nil
	})

	err := sm.Shutdown(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
}

func TestShutdownManager_ContinuesAfterFailure(t *testing.T) {
	sm := NewShutdownManager(logger.NewNopLogger())

	var ran []string
	sm.Register(func(context.Context) error {
		ran = append(ran, "first")
		return errors.New("close failed")
	})
	sm.Register(func(context.Context) error {
		ran = append(ran, "second")
		return nil
	})

	err := sm.Shutdown(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestShutdownManager_Empty(t *testing.T) {
	sm := NewShutdownManager(logger.NewNopLogger())
	assert.NoError(t, sm.Shutdown(context.Background()))
}
