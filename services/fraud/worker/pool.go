package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
)

// Pool drains the work queue with a fixed number of workers. Workers share
// no mutable state beyond the queue itself; its atomic dequeue is the only
// synchronization point.
type Pool struct {
	queue        fraud.WorkQueue
	processor    fraud.Processor
	workers      int
	pollInterval time.Duration
	log          *logger.ZapLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a new worker pool
func NewPool(queue fraud.WorkQueue, processor fraud.Processor, cfg models.QueueConfig, log *logger.ZapLogger) *Pool {
	return &Pool{
		queue:        queue,
		processor:    processor,
		workers:      cfg.Workers,
		pollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		log:          log,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.log.Info("Starting queue workers", logger.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, workerID int) {
	defer p.wg.Done()
	p.log.Info("Queue worker started", logger.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Queue worker stopped", logger.Int("worker_id", workerID))
			return
		default:
		}

		msg, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info("Queue worker stopped", logger.Int("worker_id", workerID))
				return
			}
			// Transient infra error; back off before polling again
			p.log.Error("Worker failed to dequeue",
				logger.Int("worker_id", workerID),
				logger.Err(err))
			p.sleep(ctx, time.Second)
			continue
		}
		if msg == nil {
			p.sleep(ctx, p.pollInterval)
			continue
		}

		if err := p.process(ctx, msg); err != nil {
			p.log.Error("Worker failed to process transaction",
				logger.Int("worker_id", workerID),
				logger.String("transaction_id", msg.TransactionID.String()),
				logger.String("correlation_id", msg.CorrelationID),
				logger.Err(err))
			if err := p.queue.Requeue(ctx, msg); err != nil {
				p.log.Error("Failed to requeue transaction", logger.Err(err))
			}
			continue
		}

		if err := p.queue.Ack(ctx, msg.TransactionID); err != nil {
			p.log.Error("Failed to ack transaction",
				logger.String("transaction_id", msg.TransactionID.String()),
				logger.Err(err))
		}
	}
}

// process invokes the processor, converting a panic into an error so no
// per-transaction failure can crash a worker.
func (p *Pool) process(ctx context.Context, msg *models.QueueMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during transaction processing: %v", r)
		}
	}()
	return p.processor.ProcessTransaction(ctx, msg.TransactionID, msg.CorrelationID)
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Stop signals all workers to finish their current unit of work and waits up
// to the grace period before giving up on them.
func (p *Pool) Stop(grace time.Duration) {
	p.log.Info("Stopping queue workers")
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("All queue workers stopped")
	case <-time.After(grace):
		p.log.Warn("Queue workers did not stop within grace period",
			logger.Duration("grace", grace))
	}
}
