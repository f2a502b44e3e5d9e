// Package jobqueue implements a lease-based queue for deferred work.
// A claimed job is exclusively owned until its lease expires; expired
// leases become reclaimable by any worker, which makes job execution
// crash-safe at the cost of at-least-once semantics.
package jobqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusLeased  Status = "leased"
	StatusDone    Status = "done"
	StatusDead    Status = "dead"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrNotLeaseHolder = errors.New("job not leased by this worker")
)

type Job struct {
	ID          uuid.UUID
	TenantID    domain.TenantID
	Kind        string
	Payload     []byte
	Status      Status
	Attempts    int
	EnqueuedAt  time.Time
	NotBefore   time.Time
	LeasedBy    string
	LeaseExpiry time.Time
	LastError   string
}

type Config struct {
	MaxAttempts int
	// Backoff is the base delay before a transiently failed job becomes
	// claimable again; it doubles per attempt up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
	return c
}

type Queue struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	jobs  map[uuid.UUID]*Job
	order []uuid.UUID // enqueue order, a fairness heuristic only
}

func New(cfg Config, logger *zap.Logger) *Queue {
	return &Queue{
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
		jobs:   make(map[uuid.UUID]*Job),
	}
}

// Enqueue registers a job and returns immediately; it never blocks the
// caller and never fails the triggering operation.
func (q *Queue) Enqueue(ctx context.Context, tenant domain.TenantID, kind string, payload []byte) uuid.UUID {
	job := &Job{
		ID:         uuid.New(),
		TenantID:   tenant,
		Kind:       kind,
		Payload:    payload,
		Status:     StatusPending,
		EnqueuedAt: q.now(),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	q.mu.Unlock()

	q.logger.Debug("queue enqueue", zap.String("job_id", job.ID.String()), zap.String("kind", kind))
	return job.ID
}

// ClaimNext atomically leases the oldest claimable job for workerID.
// Two concurrent claims never return the same job. Returns nil when
// nothing is claimable.
func (q *Queue) ClaimNext(ctx context.Context, workerID string, leaseDuration time.Duration) *Job {
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.reclaimExpiredLocked(now)

	for _, id := range q.order {
		job, ok := q.jobs[id]
		if !ok || job.Status != StatusPending || now.Before(job.NotBefore) {
			continue
		}
		job.Status = StatusLeased
		job.Attempts++
		job.LeasedBy = workerID
		job.LeaseExpiry = now.Add(leaseDuration)
		claimed := *job
		q.logger.Debug("queue claim",
			zap.String("job_id", job.ID.String()),
			zap.String("worker_id", workerID),
			zap.Int("attempts", job.Attempts))
		return &claimed
	}
	return nil
}

// Complete marks a leased job done. Only the lease holder may complete it.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID, workerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.leasedByLocked(id, workerID)
	if err != nil {
		return err
	}
	job.Status = StatusDone
	job.LeasedBy = ""
	q.logger.Debug("queue complete", zap.String("job_id", id.String()))
	return nil
}

// Fail records a failure. Transient failures requeue with backoff until
// the attempt budget runs out; permanent failures dead-letter immediately.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, workerID string, permanent bool, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.leasedByLocked(id, workerID)
	if err != nil {
		return err
	}
	if cause != nil {
		job.LastError = cause.Error()
	}
	job.LeasedBy = ""

	if permanent || job.Attempts >= q.cfg.MaxAttempts {
		job.Status = StatusDead
		q.logger.Warn("queue dead-letter",
			zap.String("job_id", id.String()),
			zap.String("kind", job.Kind),
			zap.Int("attempts", job.Attempts),
			zap.Bool("permanent", permanent),
			zap.String("cause", job.LastError))
		return nil
	}

	job.Status = StatusPending
	job.NotBefore = q.now().Add(q.backoff(job.Attempts))
	q.logger.Debug("queue requeue",
		zap.String("job_id", id.String()),
		zap.Int("attempts", job.Attempts),
		zap.Time("not_before", job.NotBefore))
	return nil
}

// Get returns a snapshot of one job.
func (q *Queue) Get(id uuid.UUID) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// DeadLetters returns jobs awaiting manual intervention.
func (q *Queue) DeadLetters() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dead []Job
	for _, id := range q.order {
		if job, ok := q.jobs[id]; ok && job.Status == StatusDead {
			dead = append(dead, *job)
		}
	}
	return dead
}

func (q *Queue) leasedByLocked(id uuid.UUID, workerID string) (*Job, error) {
	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != StatusLeased || job.LeasedBy != workerID {
		return nil, ErrNotLeaseHolder
	}
	return job, nil
}

func (q *Queue) reclaimExpiredLocked(now time.Time) {
	for _, job := range q.jobs {
		if job.Status != StatusLeased || now.Before(job.LeaseExpiry) {
			continue
		}
		if job.Attempts >= q.cfg.MaxAttempts {
			job.Status = StatusDead
			job.LeasedBy = ""
			q.logger.Warn("queue dead-letter after lease expiry",
				zap.String("job_id", job.ID.String()),
				zap.Int("attempts", job.Attempts))
			continue
		}
		job.Status = StatusPending
		job.LeasedBy = ""
		q.logger.Debug("queue lease expired", zap.String("job_id", job.ID.String()))
	}
}

func (q *Queue) backoff(attempts int) time.Duration {
	delay := q.cfg.Backoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= q.cfg.MaxBackoff {
			return q.cfg.MaxBackoff
		}
	}
	return delay
}
