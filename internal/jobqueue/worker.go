package jobqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Handler func(ctx context.Context, job Job) error

type WorkerConfig struct {
	Workers       int
	LeaseDuration time.Duration
	PollInterval  time.Duration
	// Permanent classifies handler errors; permanent failures dead-letter
	// instead of requeueing.
	Permanent func(error) bool
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.Permanent == nil {
		c.Permanent = func(error) bool { return false }
	}
	return c
}

// WorkerPool drains the queue with a fixed set of workers, routing jobs
// to handlers by kind. Claiming blocks only the claiming worker; a job
// whose kind has no handler is dead-lettered.
type WorkerPool struct {
	queue    *Queue
	cfg      WorkerConfig
	handlers map[string]Handler
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewWorkerPool(queue *Queue, cfg WorkerConfig, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		queue:    queue,
		cfg:      cfg.withDefaults(),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// RegisterHandler binds a job kind to its handler. Must be called
// before Start.
func (p *WorkerPool) RegisterHandler(kind string, handler Handler) {
	p.handlers[kind] = handler
}

func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	childCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.run(childCtx, workerID)
		}()
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()

	p.logger.Info("worker pool started", zap.Int("workers", p.cfg.Workers))
}

func (p *WorkerPool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.started = false
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		p.logger.Warn("timeout stopping worker pool")
	}
}

func (p *WorkerPool) run(ctx context.Context, workerID string) {
	for {
		job := p.queue.ClaimNext(ctx, workerID, p.cfg.LeaseDuration)
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.PollInterval):
			}
			continue
		}
		p.process(ctx, workerID, *job)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID string, job Job) {
	handler, ok := p.handlers[job.Kind]
	if !ok {
		err := fmt.Errorf("no handler for job kind %q", job.Kind)
		p.logger.Error("job unroutable", zap.String("job_id", job.ID.String()), zap.Error(err))
		if failErr := p.queue.Fail(ctx, job.ID, workerID, true, err); failErr != nil {
			p.logger.Error("failed to dead-letter job", zap.String("job_id", job.ID.String()), zap.Error(failErr))
		}
		return
	}

	if err := handler(ctx, job); err != nil {
		permanent := p.cfg.Permanent(err)
		p.logger.Warn("job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", job.Kind),
			zap.Int("attempts", job.Attempts),
			zap.Bool("permanent", permanent),
			zap.Error(err))
		if failErr := p.queue.Fail(ctx, job.ID, workerID, permanent, err); failErr != nil {
			p.logger.Error("failed to record job failure", zap.String("job_id", job.ID.String()), zap.Error(failErr))
		}
		return
	}

	if err := p.queue.Complete(ctx, job.ID, workerID); err != nil {
		p.logger.Error("failed to complete job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
