package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/leobui/alertflow/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedEdge(t *testing.T, store *graph.Store, tenant domain.TenantID, kind domain.EdgeKind, from, to domain.NodeRef, weight float64) {
	t.Helper()
	require.NoError(t, store.UpsertEdge(context.Background(), domain.GraphEdge{
		TenantID: tenant, Kind: kind, From: from, To: to, Weight: weight,
	}))
}

func TestAffectedProfilesDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := graph.NewStore()
	tenant := uuid.New()
	targeting := NewGraphTargeting(store, zap.NewNop())

	event := domain.NodeRef{Kind: domain.NodeEvent, Key: "evt-1"}
	tech := domain.NodeRef{Kind: domain.NodeSector, Key: "Tech"}
	aapl := domain.NodeRef{Kind: domain.NodeAsset, Key: "AAPL"}
	msft := domain.NodeRef{Kind: domain.NodeAsset, Key: "MSFT"}
	alice := domain.NodeRef{Kind: domain.NodeUser, Key: "alice"}
	bob := domain.NodeRef{Kind: domain.NodeUser, Key: "bob"}

	seedEdge(t, store, tenant, domain.EdgeImpacts, event, tech, 0.9)
	seedEdge(t, store, tenant, domain.EdgeBelongsTo, aapl, tech, 1)
	seedEdge(t, store, tenant, domain.EdgeBelongsTo, msft, tech, 1)
	// Alice is reachable through two assets; she must appear exactly once.
	seedEdge(t, store, tenant, domain.EdgeHolds, alice, aapl, 1)
	seedEdge(t, store, tenant, domain.EdgeHolds, alice, msft, 1)
	seedEdge(t, store, tenant, domain.EdgeHolds, bob, msft, 1)

	profiles, err := targeting.AffectedProfiles(ctx, tenant, event, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, profiles)
}

func TestAffectedProfilesMinWeight(t *testing.T) {
	ctx := context.Background()
	store := graph.NewStore()
	tenant := uuid.New()
	targeting := NewGraphTargeting(store, zap.NewNop())

	event := domain.NodeRef{Kind: domain.NodeEvent, Key: "evt-1"}
	tech := domain.NodeRef{Kind: domain.NodeSector, Key: "Tech"}
	energy := domain.NodeRef{Kind: domain.NodeSector, Key: "Energy"}
	aapl := domain.NodeRef{Kind: domain.NodeAsset, Key: "AAPL"}
	xom := domain.NodeRef{Kind: domain.NodeAsset, Key: "XOM"}
	alice := domain.NodeRef{Kind: domain.NodeUser, Key: "alice"}
	carol := domain.NodeRef{Kind: domain.NodeUser, Key: "carol"}

	seedEdge(t, store, tenant, domain.EdgeImpacts, event, tech, 0.9)
	seedEdge(t, store, tenant, domain.EdgeImpacts, event, energy, 0.05) // below threshold
	seedEdge(t, store, tenant, domain.EdgeBelongsTo, aapl, tech, 1)
	seedEdge(t, store, tenant, domain.EdgeBelongsTo, xom, energy, 1)
	seedEdge(t, store, tenant, domain.EdgeHolds, alice, aapl, 1)
	seedEdge(t, store, tenant, domain.EdgeHolds, carol, xom, 1)

	profiles, err := targeting.AffectedProfiles(ctx, tenant, event, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, profiles, "weakly impacted sector is excluded")
}

func TestAffectedProfilesIncludesFollowers(t *testing.T) {
	ctx := context.Background()
	store := graph.NewStore()
	tenant := uuid.New()
	targeting := NewGraphTargeting(store, zap.NewNop())

	event := domain.NodeRef{Kind: domain.NodeEvent, Key: "evt-1"}
	tech := domain.NodeRef{Kind: domain.NodeSector, Key: "Tech"}
	aapl := domain.NodeRef{Kind: domain.NodeAsset, Key: "AAPL"}
	dana := domain.NodeRef{Kind: domain.NodeUser, Key: "dana"}
	erin := domain.NodeRef{Kind: domain.NodeUser, Key: "erin"}

	seedEdge(t, store, tenant, domain.EdgeImpacts, event, tech, 0.9)
	seedEdge(t, store, tenant, domain.EdgeBelongsTo, aapl, tech, 1)
	seedEdge(t, store, tenant, domain.EdgeFollows, dana, aapl, 1)
	seedEdge(t, store, tenant, domain.EdgeFollows, erin, tech, 1)

	profiles, err := targeting.AffectedProfiles(ctx, tenant, event, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"dana", "erin"}, profiles)
}

func TestAffectedProfilesNoImpacts(t *testing.T) {
	ctx := context.Background()
	store := graph.NewStore()
	tenant := uuid.New()
	targeting := NewGraphTargeting(store, zap.NewNop())

	event := domain.NodeRef{Kind: domain.NodeEvent, Key: "evt-lonely"}
	profiles, err := targeting.AffectedProfiles(ctx, tenant, event, 0)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestAffectedProfilesRequiresTenant(t *testing.T) {
	targeting := NewGraphTargeting(graph.NewStore(), zap.NewNop())

	_, err := targeting.AffectedProfiles(context.Background(), uuid.Nil,
		domain.NodeRef{Kind: domain.NodeEvent, Key: "evt-1"}, 0)
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
}
