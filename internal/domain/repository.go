package domain

import (
	"context"
	"time"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, id TenantID) (*Tenant, error)
	ListActive(ctx context.Context) ([]Tenant, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, tenant TenantID, profileID string) (*Profile, error)
	Upsert(ctx context.Context, tenant TenantID, profile *Profile) error
	// AppendHistory grows the profile's rolling history. Implementations
	// must reject updates that would shrink it.
	AppendHistory(ctx context.Context, tenant TenantID, profileID string, events []BehavioralEvent) error
}

type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, tenant TenantID, id RuleID) (*Rule, error)
	ListByProfile(ctx context.Context, tenant TenantID, profileID string) ([]Rule, error)
	ListActiveBySymbol(ctx context.Context, tenant TenantID, symbol string) ([]Rule, error)
	UpdateStatus(ctx context.Context, tenant TenantID, id RuleID, status RuleStatus) error
}

type InstrumentRepository interface {
	Upsert(ctx context.Context, tenant TenantID, instrument *Instrument) error
	GetBySymbol(ctx context.Context, tenant TenantID, symbol string) (*Instrument, error)
}

// MarketStateStore holds the latest known value per symbol. Snapshots are
// global; tenant scoping applies to the entities that reference them.
type MarketStateStore interface {
	Set(ctx context.Context, state MarketState) error
	Get(ctx context.Context, symbol string) (*MarketState, error)
}

type GraphStore interface {
	UpsertNode(ctx context.Context, node GraphNode) error
	UpsertEdge(ctx context.Context, edge GraphEdge) error
	// OutEdges returns edges of the given kind leaving from.
	OutEdges(ctx context.Context, tenant TenantID, from NodeRef, kind EdgeKind) ([]GraphEdge, error)
	// InEdges returns edges of the given kind arriving at to.
	InEdges(ctx context.Context, tenant TenantID, to NodeRef, kind EdgeKind) ([]GraphEdge, error)
}

type DeliveryRepository interface {
	// Create persists the durable-intent record before the external call.
	Create(ctx context.Context, record *DeliveryRecord) error
	// Finalize sets the final status and provider response exactly once.
	Finalize(ctx context.Context, tenant TenantID, id int64, status DeliveryStatus, providerResponse string, completedAt time.Time) error
	// LatestByOccurrence returns the most recent record for the dedupe key.
	LatestByOccurrence(ctx context.Context, tenant TenantID, key OccurrenceKey) (*DeliveryRecord, error)
	// ListStaleAttempts returns ATTEMPTED records older than the cutoff,
	// for the crash-recovery sweep.
	ListStaleAttempts(ctx context.Context, tenant TenantID, olderThan time.Time) ([]DeliveryRecord, error)
}
