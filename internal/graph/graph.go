// Package graph provides an in-memory typed relationship graph with
// merge-by-natural-key upserts. Traversal is read-only and safe to run
// in parallel across queries.
package graph

import (
	"context"
	"sync"
	"time"

	"github.com/leobui/alertflow/internal/domain"
)

type edgeKey struct {
	kind  domain.EdgeKind
	other domain.NodeRef
}

type nodeEntry struct {
	node domain.GraphNode
	out  map[edgeKey]*domain.GraphEdge
	in   map[edgeKey]*domain.GraphEdge
}

type Store struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]map[domain.NodeRef]*nodeEntry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		tenants: make(map[domain.TenantID]map[domain.NodeRef]*nodeEntry),
		now:     time.Now,
	}
}

func (s *Store) UpsertNode(ctx context.Context, node domain.GraphNode) error {
	if err := domain.RequireTenant(node.TenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entryLocked(node.TenantID, node.Ref)
	now := s.now()
	if entry.node.CreatedAt.IsZero() {
		node.CreatedAt = now
	} else {
		node.CreatedAt = entry.node.CreatedAt
	}
	node.UpdatedAt = now
	entry.node = node
	return nil
}

func (s *Store) UpsertEdge(ctx context.Context, edge domain.GraphEdge) error {
	if err := domain.RequireTenant(edge.TenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.entryLocked(edge.TenantID, edge.From)
	to := s.entryLocked(edge.TenantID, edge.To)

	now := s.now()
	outKey := edgeKey{kind: edge.Kind, other: edge.To}
	if existing, ok := from.out[outKey]; ok {
		existing.Weight = edge.Weight
		existing.UpdatedAt = now
		return nil
	}

	edge.CreatedAt = now
	edge.UpdatedAt = now
	stored := edge
	from.out[outKey] = &stored
	to.in[edgeKey{kind: edge.Kind, other: edge.From}] = &stored
	return nil
}

func (s *Store) OutEdges(ctx context.Context, tenant domain.TenantID, from domain.NodeRef, kind domain.EdgeKind) ([]domain.GraphEdge, error) {
	return s.edges(tenant, from, kind, true)
}

func (s *Store) InEdges(ctx context.Context, tenant domain.TenantID, to domain.NodeRef, kind domain.EdgeKind) ([]domain.GraphEdge, error) {
	return s.edges(tenant, to, kind, false)
}

func (s *Store) edges(tenant domain.TenantID, ref domain.NodeRef, kind domain.EdgeKind, outgoing bool) ([]domain.GraphEdge, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, ok := s.tenants[tenant]
	if !ok {
		return nil, nil
	}
	entry, ok := nodes[ref]
	if !ok {
		return nil, nil
	}

	source := entry.in
	if outgoing {
		source = entry.out
	}
	var result []domain.GraphEdge
	for key, edge := range source {
		if key.kind == kind {
			result = append(result, *edge)
		}
	}
	return result, nil
}

func (s *Store) entryLocked(tenant domain.TenantID, ref domain.NodeRef) *nodeEntry {
	nodes, ok := s.tenants[tenant]
	if !ok {
		nodes = make(map[domain.NodeRef]*nodeEntry)
		s.tenants[tenant] = nodes
	}
	entry, ok := nodes[ref]
	if !ok {
		entry = &nodeEntry{
			node: domain.GraphNode{TenantID: tenant, Ref: ref},
			out:  make(map[edgeKey]*domain.GraphEdge),
			in:   make(map[edgeKey]*domain.GraphEdge),
		}
		nodes[ref] = entry
	}
	return entry
}
