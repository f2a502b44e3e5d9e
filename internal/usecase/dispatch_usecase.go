package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leobui/alertflow/internal/delivery/channel"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/leobui/alertflow/internal/jobqueue"
	"go.uber.org/zap"
)

const (
	JobKindDispatch   = "dispatch"
	JobKindEnrichment = "enrichment"
)

// Dispatcher executes delivery with a durable audit trail:
//
//  1. write an ATTEMPTED DeliveryRecord before any external call;
//  2. invoke the channel adapter under a hard timeout;
//  3. finalize the same record exactly once with the outcome.
//
// If step 1 fails the external call is never made. If the process dies
// between 1 and 3, ReconcileStale picks the record up later. The
// occurrence key dedupes across at-least-once job execution, yielding
// effectively-once delivery.
type Dispatcher struct {
	deliveries domain.DeliveryRepository
	adapters   *channel.Registry
	registry   *RuleRegistry
	queue      Enqueuer
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewDispatcher(deliveries domain.DeliveryRepository, adapters *channel.Registry, registry *RuleRegistry, queue Enqueuer, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		deliveries: deliveries,
		adapters:   adapters,
		registry:   registry,
		queue:      queue,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, payload domain.DispatchPayload) error {
	if err := domain.RequireTenant(payload.TenantID); err != nil {
		d.logger.Warn("dispatch rejected, no tenant context",
			zap.String("occurrence", payload.Occurrence.String()))
		return err
	}

	latest, err := d.deliveries.LatestByOccurrence(ctx, payload.TenantID, payload.Occurrence)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if latest != nil {
		if latest.Status.Delivered() {
			d.logger.Debug("dispatch deduplicated",
				zap.String("occurrence", payload.Occurrence.String()),
				zap.String("status", string(latest.Status)))
			return nil
		}
		if latest.Status == domain.DeliveryAttempted {
			// In flight elsewhere, or a crash the recovery sweep has not
			// reconciled yet. Either way, do not send again now.
			d.logger.Debug("dispatch skipped, attempt in flight",
				zap.String("occurrence", payload.Occurrence.String()))
			return nil
		}
		if latest.Status == domain.DeliveryFailedPermanent {
			d.logger.Debug("dispatch skipped, permanently failed occurrence",
				zap.String("occurrence", payload.Occurrence.String()))
			return nil
		}
	}

	record := &domain.DeliveryRecord{
		TenantID:    payload.TenantID,
		Occurrence:  payload.Occurrence,
		Status:      domain.DeliveryAttempted,
		AttemptedAt: d.now(),
	}
	if err := d.deliveries.Create(ctx, record); err != nil {
		return fmt.Errorf("record delivery intent: %w", err)
	}

	adapter, ok := d.adapters.Get(payload.Channel)
	if !ok {
		cause := &channel.PermanentError{Err: fmt.Errorf("unsupported channel %q", payload.Channel)}
		d.finalize(ctx, record, domain.DeliveryFailedPermanent, cause.Error())
		return cause
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	response, err := adapter.Send(sendCtx, payload)
	if err != nil {
		var perm *channel.PermanentError
		if errors.As(err, &perm) {
			d.finalize(ctx, record, domain.DeliveryFailedPermanent, err.Error())
			return err
		}
		d.finalize(ctx, record, domain.DeliveryFailed, err.Error())
		return err
	}

	d.finalize(ctx, record, domain.DeliverySent, response)
	d.logger.Info("dispatch sent",
		zap.String("occurrence", payload.Occurrence.String()),
		zap.String("channel", string(payload.Channel)))

	if err := d.registry.MarkTriggered(ctx, payload.TenantID, payload.Occurrence.SourceID); err != nil && !errors.Is(err, ErrRuleNotFound) {
		d.logger.Warn("failed to mark rule triggered",
			zap.String("rule_id", payload.Occurrence.SourceID),
			zap.Error(err))
	}

	d.recordEngagement(ctx, payload)
	return nil
}

// HandleJob adapts Dispatch to the worker pool.
func (d *Dispatcher) HandleJob(ctx context.Context, job jobqueue.Job) error {
	var payload domain.DispatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return &channel.PermanentError{Err: fmt.Errorf("decode dispatch payload: %w", err)}
	}
	return d.Dispatch(ctx, payload)
}

// ReconcileStale converts ATTEMPTED records older than the cutoff into
// FAILED. The next qualifying occurrence may retry as a new row; nothing
// is resent without passing the dedupe check first.
func (d *Dispatcher) ReconcileStale(ctx context.Context, tenant domain.TenantID, olderThan time.Duration) (int, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return 0, err
	}

	cutoff := d.now().Add(-olderThan)
	stale, err := d.deliveries.ListStaleAttempts(ctx, tenant, cutoff)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, record := range stale {
		if err := d.deliveries.Finalize(ctx, tenant, record.ID, domain.DeliveryFailed, "reconciled after crash", d.now()); err != nil {
			d.logger.Warn("failed to reconcile stale attempt",
				zap.Int64("delivery_id", record.ID),
				zap.Error(err))
			continue
		}
		reconciled++
	}
	if reconciled > 0 {
		d.logger.Info("stale delivery attempts reconciled",
			zap.String("tenant_id", tenant.String()),
			zap.Int("count", reconciled))
	}
	return reconciled, nil
}

func (d *Dispatcher) finalize(ctx context.Context, record *domain.DeliveryRecord, status domain.DeliveryStatus, response string) {
	if err := d.deliveries.Finalize(ctx, record.TenantID, record.ID, status, response, d.now()); err != nil {
		d.logger.Error("failed to finalize delivery record",
			zap.Int64("delivery_id", record.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// recordEngagement feeds the delivery back into the profile's rolling
// history through the enrichment consumer.
func (d *Dispatcher) recordEngagement(ctx context.Context, payload domain.DispatchPayload) {
	enrichment := EnrichmentPayload{
		ProfileID: payload.ProfileID,
		Events: []domain.BehavioralEvent{{
			EventType:  "notification_sent",
			EntityType: "occurrence",
			EntityID:   payload.Occurrence.String(),
			OccurredAt: d.now(),
		}},
	}
	body, err := json.Marshal(enrichment)
	if err != nil {
		d.logger.Error("failed to encode enrichment payload", zap.Error(err))
		return
	}
	d.queue.Enqueue(ctx, payload.TenantID, JobKindEnrichment, body)
}
