package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leobui/alertflow/internal/delivery/channel"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/leobui/alertflow/internal/jobqueue"
	"go.uber.org/zap"
)

// EnrichmentPayload appends behavioral events to a profile's rolling
// history. The tenant travels on the job itself.
type EnrichmentPayload struct {
	ProfileID string                   `json:"profile_id"`
	Events    []domain.BehavioralEvent `json:"events"`
}

// Enricher is the second queue consumer next to the dispatcher; both
// share the one lease primitive.
type Enricher struct {
	profiles domain.ProfileRepository
	logger   *zap.Logger
}

func NewEnricher(profiles domain.ProfileRepository, logger *zap.Logger) *Enricher {
	return &Enricher{profiles: profiles, logger: logger}
}

func (e *Enricher) HandleJob(ctx context.Context, job jobqueue.Job) error {
	var payload EnrichmentPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return &channel.PermanentError{Err: fmt.Errorf("decode enrichment payload: %w", err)}
	}

	err := e.profiles.AppendHistory(ctx, job.TenantID, payload.ProfileID, payload.Events)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryShrink) || errors.Is(err, domain.ErrNotFound) {
			return &channel.PermanentError{Err: err}
		}
		return err
	}

	e.logger.Debug("profile history enriched",
		zap.String("profile_id", payload.ProfileID),
		zap.Int("events", len(payload.Events)))
	return nil
}
