package usecase

import (
	"context"
	"sort"

	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

// GraphTargeting resolves "who is affected" for non-price triggers by
// walking Event -Impacts-> Sector <-BelongsTo- Asset <-Holds- User.
// The walk is fixed at three hops and keeps a visited set per level, so
// it terminates even if the graph unexpectedly contains a cycle.
type GraphTargeting struct {
	graph  domain.GraphStore
	logger *zap.Logger
}

func NewGraphTargeting(graph domain.GraphStore, logger *zap.Logger) *GraphTargeting {
	return &GraphTargeting{graph: graph, logger: logger}
}

// AffectedProfiles returns the deduplicated profile IDs reachable from
// the event node. Edges below minWeight are excluded; pass 0 to accept
// every edge. An event with no outgoing Impacts edges yields an empty
// result.
func (t *GraphTargeting) AffectedProfiles(ctx context.Context, tenant domain.TenantID, event domain.NodeRef, minWeight float64) ([]string, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	impacts, err := t.graph.OutEdges(ctx, tenant, event, domain.EdgeImpacts)
	if err != nil {
		return nil, err
	}

	sectors := make(map[domain.NodeRef]struct{})
	for _, edge := range impacts {
		if edge.Weight < minWeight {
			continue
		}
		sectors[edge.To] = struct{}{}
	}

	assets := make(map[domain.NodeRef]struct{})
	users := make(map[string]struct{})
	for sector := range sectors {
		belongs, err := t.graph.InEdges(ctx, tenant, sector, domain.EdgeBelongsTo)
		if err != nil {
			return nil, err
		}
		for _, edge := range belongs {
			if edge.Weight < minWeight {
				continue
			}
			assets[edge.From] = struct{}{}
		}

		// Users following the impacted sector directly count as affected.
		if err := t.collectUsers(ctx, tenant, sector, domain.EdgeFollows, minWeight, users); err != nil {
			return nil, err
		}
	}

	for asset := range assets {
		if err := t.collectUsers(ctx, tenant, asset, domain.EdgeHolds, minWeight, users); err != nil {
			return nil, err
		}
		if err := t.collectUsers(ctx, tenant, asset, domain.EdgeFollows, minWeight, users); err != nil {
			return nil, err
		}
	}

	result := make([]string, 0, len(users))
	for user := range users {
		result = append(result, user)
	}
	sort.Strings(result)

	t.logger.Debug("targeting resolved",
		zap.String("event", event.Key),
		zap.Int("sectors", len(sectors)),
		zap.Int("assets", len(assets)),
		zap.Int("profiles", len(result)))
	return result, nil
}

func (t *GraphTargeting) collectUsers(ctx context.Context, tenant domain.TenantID, target domain.NodeRef, kind domain.EdgeKind, minWeight float64, users map[string]struct{}) error {
	edges, err := t.graph.InEdges(ctx, tenant, target, kind)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		if edge.Weight < minWeight || edge.From.Kind != domain.NodeUser {
			continue
		}
		users[edge.From.Key] = struct{}{}
	}
	return nil
}
