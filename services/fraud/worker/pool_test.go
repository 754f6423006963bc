package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// fakeQueue is a mutex-guarded in-memory queue recording acks and requeues
type fakeQueue struct {
	mu       sync.Mutex
	pending  []*models.QueueMessage
	acked    []uuid.UUID
	requeued []*models.QueueMessage
}

func (q *fakeQueue) Enqueue(_ context.Context, txID uuid.UUID, correlationID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, &models.QueueMessage{TransactionID: txID, CorrelationID: correlationID})
	return nil
}

func (q *fakeQueue) Dequeue(_ context.Context) (*models.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

func (q *fakeQueue) Ack(_ context.Context, txID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, txID)
	return nil
}

func (q *fakeQueue) Requeue(_ context.Context, msg *models.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeued = append(q.requeued, msg)
	return nil
}

func (q *fakeQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.pending)), nil
}

func (q *fakeQueue) ackCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

func (q *fakeQueue) requeueCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requeued)
}

// fakeProcessor fails or panics on designated transaction IDs
type fakeProcessor struct {
	mu        sync.Mutex
	processed []uuid.UUID
	failOn    map[uuid.UUID]bool
	panicOn   map[uuid.UUID]bool
}

func (p *fakeProcessor) ProcessTransaction(_ context.Context, txID uuid.UUID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOn[txID] {
		panic("evaluator blew up")
	}
	if p.failOn[txID] {
		return errors.New("processing failed")
	}
	p.processed = append(p.processed, txID)
	return nil
}

func (p *fakeProcessor) processedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func poolConfig(workers int) models.QueueConfig {
	return models.QueueConfig{Workers: workers, PollIntervalMs: 5}
}

func TestPool_ProcessesAndAcks(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProcessor{}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, uuid.New(), "corr"))
	}

	pool := NewPool(q, p, poolConfig(3), logger.NewNopLogger())
	pool.Start()
	defer pool.Stop(time.Second)

	waitFor(t, func() bool { return q.ackCount() == 5 })
	assert.Equal(t, 5, p.processedCount())
	assert.Zero(t, q.requeueCount())
}

func TestPool_RequeuesOnProcessingError(t *testing.T) {
	q := &fakeQueue{}
	failing := uuid.New()
	p := &fakeProcessor{failOn: map[uuid.UUID]bool{failing: true}}
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, failing, "corr-fail"))
	require.NoError(t, q.Enqueue(ctx, uuid.New(), "corr-ok"))

	pool := NewPool(q, p, poolConfig(1), logger.NewNopLogger())
	pool.Start()
	defer pool.Stop(time.Second)

	waitFor(t, func() bool { return q.requeueCount() == 1 && q.ackCount() == 1 })
	assert.Equal(t, failing, q.requeued[0].TransactionID)
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	q := &fakeQueue{}
	panicking := uuid.New()
	p := &fakeProcessor{panicOn: map[uuid.UUID]bool{panicking: true}}
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, panicking, "corr-panic"))
	require.NoError(t, q.Enqueue(ctx, uuid.New(), "corr-after"))

	pool := NewPool(q, p, poolConfig(1), logger.NewNopLogger())
	pool.Start()
	defer pool.Stop(time.Second)

	// The panicking entry is requeued and the same worker keeps going
	waitFor(t, func() bool { return q.requeueCount() == 1 && q.ackCount() == 1 })
}

func TestPool_StopWaitsForWorkers(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProcessor{}

	pool := NewPool(q, p, poolConfig(4), logger.NewNopLogger())
	pool.Start()

	done := make(chan struct{})
	go func() {
		pool.Stop(2 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("pool did not stop within grace period")
	}
}
