package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

// NewsEvent is one news item entering the targeting path.
type NewsEvent struct {
	EventKey       string
	Headline       string
	RelatedSymbols []string
	// Sentiment in [-1, 1]; its magnitude becomes the Impacts edge weight.
	Sentiment float64
}

// NewsIngestor projects news events into the relationship graph and
// fans out notifications to every affected profile through the same
// queue and dispatch path as price alerts.
type NewsIngestor struct {
	graph       domain.GraphStore
	instruments domain.InstrumentRepository
	profiles    domain.ProfileRepository
	targeting   *GraphTargeting
	queue       Enqueuer
	// minWeight is the default inclusion threshold for targeting.
	minWeight float64
	logger    *zap.Logger
}

func NewNewsIngestor(graph domain.GraphStore, instruments domain.InstrumentRepository, profiles domain.ProfileRepository, targeting *GraphTargeting, queue Enqueuer, minWeight float64, logger *zap.Logger) *NewsIngestor {
	return &NewsIngestor{
		graph:       graph,
		instruments: instruments,
		profiles:    profiles,
		targeting:   targeting,
		queue:       queue,
		minWeight:   minWeight,
		logger:      logger,
	}
}

// Process upserts the event and its impacted sectors into the graph,
// resolves affected profiles and enqueues one dispatch job per
// consented channel. The occurrence key is (event, profile, channel),
// so reprocessing the same event cannot notify anyone twice.
func (n *NewsIngestor) Process(ctx context.Context, tenant domain.TenantID, event NewsEvent) ([]string, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(event.EventKey) == "" {
		return nil, errors.New("event key is required")
	}

	eventRef := domain.NodeRef{Kind: domain.NodeEvent, Key: event.EventKey}
	if err := n.graph.UpsertNode(ctx, domain.GraphNode{
		TenantID: tenant,
		Ref:      eventRef,
		Label:    event.Headline,
	}); err != nil {
		return nil, err
	}

	weight := math.Abs(event.Sentiment)
	for _, symbol := range event.RelatedSymbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		instrument, err := n.instruments.GetBySymbol(ctx, tenant, symbol)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				n.logger.Debug("news symbol has no instrument", zap.String("symbol", symbol))
				continue
			}
			return nil, err
		}
		if instrument.Sector == "" {
			continue
		}

		assetRef := domain.NodeRef{Kind: domain.NodeAsset, Key: symbol}
		sectorRef := domain.NodeRef{Kind: domain.NodeSector, Key: instrument.Sector}
		if err := n.graph.UpsertNode(ctx, domain.GraphNode{TenantID: tenant, Ref: assetRef, Label: instrument.Name}); err != nil {
			return nil, err
		}
		if err := n.graph.UpsertNode(ctx, domain.GraphNode{TenantID: tenant, Ref: sectorRef, Label: instrument.Sector}); err != nil {
			return nil, err
		}
		if err := n.graph.UpsertEdge(ctx, domain.GraphEdge{
			TenantID: tenant,
			Kind:     domain.EdgeBelongsTo,
			From:     assetRef,
			To:       sectorRef,
			Weight:   1,
		}); err != nil {
			return nil, err
		}
		if err := n.graph.UpsertEdge(ctx, domain.GraphEdge{
			TenantID: tenant,
			Kind:     domain.EdgeImpacts,
			From:     eventRef,
			To:       sectorRef,
			Weight:   weight,
		}); err != nil {
			return nil, err
		}
	}

	profileIDs, err := n.targeting.AffectedProfiles(ctx, tenant, eventRef, n.minWeight)
	if err != nil {
		return nil, err
	}

	content := fmt.Sprintf("News: %s", event.Headline)
	for _, profileID := range profileIDs {
		profile, err := n.profiles.Get(ctx, tenant, profileID)
		if err != nil {
			n.logger.Warn("affected profile not found",
				zap.String("profile_id", profileID),
				zap.Error(err))
			continue
		}
		for _, ch := range profile.Channels {
			payload := domain.DispatchPayload{
				TenantID: tenant,
				Occurrence: domain.OccurrenceKey{
					SourceID:  event.EventKey,
					ProfileID: profileID,
					Channel:   ch,
				},
				ProfileID:       profileID,
				Channel:         ch,
				Destination:     destinationFor(ch, profile),
				RenderedContent: content,
			}
			body, err := json.Marshal(payload)
			if err != nil {
				n.logger.Error("failed to encode dispatch payload", zap.Error(err))
				continue
			}
			n.queue.Enqueue(ctx, tenant, JobKindDispatch, body)
		}
	}

	n.logger.Info("news event processed",
		zap.String("event_key", event.EventKey),
		zap.Int("affected_profiles", len(profileIDs)))
	return profileIDs, nil
}
