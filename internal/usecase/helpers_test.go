package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/leobui/alertflow/internal/infra/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// enqueuedJob captures one Enqueue call for inspection.
type enqueuedJob struct {
	TenantID domain.TenantID
	Kind     string
	Payload  []byte
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueuedJob
}

func (q *fakeQueue) Enqueue(ctx context.Context, tenant domain.TenantID, kind string, payload []byte) uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, enqueuedJob{TenantID: tenant, Kind: kind, Payload: payload})
	return uuid.New()
}

func (q *fakeQueue) all() []enqueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueuedJob(nil), q.jobs...)
}

func (q *fakeQueue) ofKind(kind string) []enqueuedJob {
	var jobs []enqueuedJob
	for _, job := range q.all() {
		if job.Kind == kind {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

type testEnv struct {
	tenant     domain.TenantID
	tenants    *memory.TenantRepository
	profiles   *memory.ProfileRepository
	rules      *memory.RuleRepository
	deliveries *memory.DeliveryRepository
	queue      *fakeQueue
	logger     *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tenants:    memory.NewTenantRepository(),
		profiles:   memory.NewProfileRepository(),
		rules:      memory.NewRuleRepository(),
		deliveries: memory.NewDeliveryRepository(),
		queue:      &fakeQueue{},
		logger:     zap.NewNop(),
	}

	tenant := &domain.Tenant{ID: uuid.New(), Name: "acme", Status: domain.TenantActive}
	require.NoError(t, env.tenants.Create(context.Background(), tenant))
	env.tenant = tenant.ID
	return env
}

func (env *testEnv) addProfile(t *testing.T, profileID string, channels ...domain.Channel) {
	t.Helper()
	require.NoError(t, env.profiles.Upsert(context.Background(), env.tenant, &domain.Profile{
		ProfileID: profileID,
		Email:     profileID + "@example.com",
		Channels:  channels,
	}))
}
