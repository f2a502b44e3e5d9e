package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leobui/alertflow/internal/domain"
	"github.com/leobui/alertflow/internal/graph"
	"github.com/leobui/alertflow/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type newsFixture struct {
	env         *testEnv
	store       *graph.Store
	instruments *memory.InstrumentRepository
	ingestor    *NewsIngestor
}

func newNewsFixture(t *testing.T, minWeight float64) *newsFixture {
	t.Helper()
	env := newTestEnv(t)
	store := graph.NewStore()
	instruments := memory.NewInstrumentRepository()
	targeting := NewGraphTargeting(store, env.logger)
	ingestor := NewNewsIngestor(store, instruments, env.profiles, targeting, env.queue, minWeight, env.logger)
	return &newsFixture{env: env, store: store, instruments: instruments, ingestor: ingestor}
}

func (f *newsFixture) addInstrument(t *testing.T, symbol, sector string) {
	t.Helper()
	require.NoError(t, f.instruments.Upsert(context.Background(), f.env.tenant, &domain.Instrument{
		Symbol: symbol, Name: symbol + " Inc", Type: "stock", Sector: sector,
	}))
}

func (f *newsFixture) addHolder(t *testing.T, profileID, symbol string) {
	t.Helper()
	require.NoError(t, f.store.UpsertEdge(context.Background(), domain.GraphEdge{
		TenantID: f.env.tenant,
		Kind:     domain.EdgeHolds,
		From:     domain.NodeRef{Kind: domain.NodeUser, Key: profileID},
		To:       domain.NodeRef{Kind: domain.NodeAsset, Key: symbol},
		Weight:   1,
	}))
}

func TestNewsEventFansOutToHolders(t *testing.T) {
	ctx := context.Background()
	f := newNewsFixture(t, 0.1)
	f.env.addProfile(t, "alice", domain.ChannelEmail, domain.ChannelWebPush)
	f.addInstrument(t, "AAPL", "Tech")
	f.addHolder(t, "alice", "AAPL")

	affected, err := f.ingestor.Process(ctx, f.env.tenant, NewsEvent{
		EventKey:       "evt-chip-shortage",
		Headline:       "Chip shortage hits consumer electronics",
		RelatedSymbols: []string{"aapl"},
		Sentiment:      -0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, affected)

	jobs := f.env.queue.ofKind(JobKindDispatch)
	require.Len(t, jobs, 2, "one job per consented channel")
	for _, job := range jobs {
		var payload domain.DispatchPayload
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, "evt-chip-shortage", payload.Occurrence.SourceID)
		assert.Equal(t, "alice", payload.ProfileID)
		assert.Contains(t, payload.RenderedContent, "Chip shortage")
	}
}

func TestNewsEventWeakSentimentExcluded(t *testing.T) {
	ctx := context.Background()
	f := newNewsFixture(t, 0.5)
	f.env.addProfile(t, "alice", domain.ChannelEmail)
	f.addInstrument(t, "AAPL", "Tech")
	f.addHolder(t, "alice", "AAPL")

	affected, err := f.ingestor.Process(ctx, f.env.tenant, NewsEvent{
		EventKey:       "evt-minor",
		Headline:       "Minor supplier news",
		RelatedSymbols: []string{"AAPL"},
		Sentiment:      0.2,
	})
	require.NoError(t, err)
	assert.Empty(t, affected, "impact weight below the threshold targets nobody")
	assert.Empty(t, f.env.queue.all())
}

func TestNewsEventUnknownSymbolSkipped(t *testing.T) {
	ctx := context.Background()
	f := newNewsFixture(t, 0.1)

	affected, err := f.ingestor.Process(ctx, f.env.tenant, NewsEvent{
		EventKey:       "evt-1",
		Headline:       "Something happened",
		RelatedSymbols: []string{"UNLISTED"},
		Sentiment:      0.9,
	})
	require.NoError(t, err, "unknown symbols are skipped, not fatal")
	assert.Empty(t, affected)
}

func TestNewsEventReprocessingIsStable(t *testing.T) {
	ctx := context.Background()
	f := newNewsFixture(t, 0.1)
	f.env.addProfile(t, "alice", domain.ChannelEmail)
	f.addInstrument(t, "AAPL", "Tech")
	f.addHolder(t, "alice", "AAPL")

	event := NewsEvent{
		EventKey:       "evt-1",
		Headline:       "Earnings beat",
		RelatedSymbols: []string{"AAPL"},
		Sentiment:      0.9,
	}

	first, err := f.ingestor.Process(ctx, f.env.tenant, event)
	require.NoError(t, err)
	second, err := f.ingestor.Process(ctx, f.env.tenant, event)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// graph edges merged, not duplicated
	impacts, err := f.store.OutEdges(ctx, f.env.tenant,
		domain.NodeRef{Kind: domain.NodeEvent, Key: "evt-1"}, domain.EdgeImpacts)
	require.NoError(t, err)
	assert.Len(t, impacts, 1)
}

func TestNewsEventRequiresKey(t *testing.T) {
	f := newNewsFixture(t, 0.1)

	_, err := f.ingestor.Process(context.Background(), f.env.tenant, NewsEvent{Headline: "no key"})
	assert.Error(t, err)
}
