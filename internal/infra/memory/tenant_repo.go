// Package memory provides in-memory repository implementations used by
// tests and by dev mode when no database is configured. They enforce
// the same tenant scoping and append-only guarantees as the gorm
// repositories.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leobui/alertflow/internal/domain"
)

type TenantRepository struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]domain.Tenant
}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{tenants: make(map[domain.TenantID]domain.Tenant)}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	r.tenants[tenant.ID] = *tenant
	return nil
}

func (r *TenantRepository) Get(ctx context.Context, id domain.TenantID) (*domain.Tenant, error) {
	if err := domain.RequireTenant(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tenant, nil
}

func (r *TenantRepository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tenants []domain.Tenant
	for _, tenant := range r.tenants {
		if tenant.Status == domain.TenantActive {
			tenants = append(tenants, tenant)
		}
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].CreatedAt.Before(tenants[j].CreatedAt) })
	return tenants, nil
}
