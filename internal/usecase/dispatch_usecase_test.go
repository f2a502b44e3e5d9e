package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leobui/alertflow/internal/delivery/channel"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	mu       sync.Mutex
	calls    []domain.DispatchPayload
	response string
	err      error
}

func (a *fakeAdapter) Send(ctx context.Context, payload domain.DispatchPayload) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, payload)
	return a.response, a.err
}

func (a *fakeAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type dispatchFixture struct {
	env        *testEnv
	adapter    *fakeAdapter
	registry   *RuleRegistry
	dispatcher *Dispatcher
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	env := newTestEnv(t)
	env.addProfile(t, "profile-1", domain.ChannelEmail)

	adapter := &fakeAdapter{response: `{"message_id":"abc"}`}
	adapters := channel.NewRegistry()
	adapters.Register(domain.ChannelEmail, adapter)

	registry := NewRuleRegistry(env.rules, env.profiles, env.logger)
	dispatcher := NewDispatcher(env.deliveries, adapters, registry, env.queue, time.Second, env.logger)

	return &dispatchFixture{env: env, adapter: adapter, registry: registry, dispatcher: dispatcher}
}

func (f *dispatchFixture) payload(sourceID string) domain.DispatchPayload {
	return domain.DispatchPayload{
		TenantID: f.env.tenant,
		Occurrence: domain.OccurrenceKey{
			SourceID:  sourceID,
			ProfileID: "profile-1",
			Channel:   domain.ChannelEmail,
		},
		ProfileID:       "profile-1",
		Channel:         domain.ChannelEmail,
		Destination:     "profile-1@example.com",
		RenderedContent: "AAPL > 150: observed 155",
	}
}

func TestDispatchEffectivelyOnce(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	require.NoError(t, f.dispatcher.Dispatch(ctx, f.payload("rule-1")))
	require.NoError(t, f.dispatcher.Dispatch(ctx, f.payload("rule-1")))

	assert.Equal(t, 1, f.adapter.callCount(), "redelivery of the same occurrence must not send twice")

	records := f.env.deliveries.All(f.env.tenant)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DeliverySent, records[0].Status)
	assert.Equal(t, `{"message_id":"abc"}`, records[0].ProviderResponse)
	require.NotNil(t, records[0].CompletedAt)

	// engagement feedback goes out once as well
	assert.Len(t, f.env.queue.ofKind(JobKindEnrichment), 1)
}

func TestDispatchMarksOnceRuleTriggered(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	id, err := f.registry.Register(ctx, f.env.tenant, "profile-1", "AAPL", "PRICE_TARGET",
		domain.RuleSourceUserManual, domain.FrequencyOnce, above(150))
	require.NoError(t, err)

	require.NoError(t, f.dispatcher.Dispatch(ctx, f.payload(id)))

	rule, err := f.env.rules.GetByID(ctx, f.env.tenant, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RuleTriggered, rule.Status)
}

func TestDispatchTransientFailureRetriesAsNewRecord(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	f.adapter.err = errors.New("smtp timeout")
	err := f.dispatcher.Dispatch(ctx, f.payload("rule-1"))
	require.Error(t, err)

	records := f.env.deliveries.All(f.env.tenant)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DeliveryFailed, records[0].Status)

	// a FAILED occurrence is retryable; the retry is a new row
	f.adapter.err = nil
	require.NoError(t, f.dispatcher.Dispatch(ctx, f.payload("rule-1")))

	records = f.env.deliveries.All(f.env.tenant)
	require.Len(t, records, 2)
	assert.Equal(t, domain.DeliveryFailed, records[0].Status)
	assert.Equal(t, domain.DeliverySent, records[1].Status)
	assert.Equal(t, 2, f.adapter.callCount())
}

func TestDispatchPermanentFailureStops(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	f.adapter.err = &channel.PermanentError{Err: errors.New("mailbox does not exist")}
	err := f.dispatcher.Dispatch(ctx, f.payload("rule-1"))
	var perm *channel.PermanentError
	require.ErrorAs(t, err, &perm)

	records := f.env.deliveries.All(f.env.tenant)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DeliveryFailedPermanent, records[0].Status)

	// the occurrence is finished; redelivery does not call the adapter
	f.adapter.err = nil
	require.NoError(t, f.dispatcher.Dispatch(ctx, f.payload("rule-1")))
	assert.Equal(t, 1, f.adapter.callCount())
	assert.Len(t, f.env.deliveries.All(f.env.tenant), 1)
}

func TestDispatchUnsupportedChannel(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	payload := f.payload("rule-1")
	payload.Channel = domain.ChannelWebPush
	payload.Occurrence.Channel = domain.ChannelWebPush

	err := f.dispatcher.Dispatch(ctx, payload)
	var perm *channel.PermanentError
	require.ErrorAs(t, err, &perm)

	records := f.env.deliveries.All(f.env.tenant)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DeliveryFailedPermanent, records[0].Status)
	assert.Equal(t, 0, f.adapter.callCount())
}

func TestDispatchSkipsInFlightAttempt(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	payload := f.payload("rule-1")
	require.NoError(t, f.env.deliveries.Create(ctx, &domain.DeliveryRecord{
		TenantID:    f.env.tenant,
		Occurrence:  payload.Occurrence,
		Status:      domain.DeliveryAttempted,
		AttemptedAt: time.Now(),
	}))

	require.NoError(t, f.dispatcher.Dispatch(ctx, payload))
	assert.Equal(t, 0, f.adapter.callCount(), "an in-flight attempt blocks concurrent sends")
	assert.Len(t, f.env.deliveries.All(f.env.tenant), 1)
}

func TestReconcileStale(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)

	stale := f.payload("rule-old").Occurrence
	fresh := f.payload("rule-new").Occurrence

	require.NoError(t, f.env.deliveries.Create(ctx, &domain.DeliveryRecord{
		TenantID:    f.env.tenant,
		Occurrence:  stale,
		Status:      domain.DeliveryAttempted,
		AttemptedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, f.env.deliveries.Create(ctx, &domain.DeliveryRecord{
		TenantID:    f.env.tenant,
		Occurrence:  fresh,
		Status:      domain.DeliveryAttempted,
		AttemptedAt: time.Now(),
	}))

	count, err := f.dispatcher.ReconcileStale(ctx, f.env.tenant, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records := f.env.deliveries.All(f.env.tenant)
	require.Len(t, records, 2)
	assert.Equal(t, domain.DeliveryFailed, records[0].Status)
	assert.Equal(t, "reconciled after crash", records[0].ProviderResponse)
	assert.Equal(t, domain.DeliveryAttempted, records[1].Status, "recent attempts are left alone")

	// after reconciliation the occurrence is retryable
	require.NoError(t, f.dispatcher.Dispatch(ctx, domain.DispatchPayload{
		TenantID:        f.env.tenant,
		Occurrence:      stale,
		ProfileID:       stale.ProfileID,
		Channel:         stale.Channel,
		Destination:     "profile-1@example.com",
		RenderedContent: "retry",
	}))
	assert.Equal(t, 1, f.adapter.callCount())
}
