package memory

import (
	"context"
	"sync"
	"time"

	"github.com/leobui/alertflow/internal/domain"
)

type instrumentKey struct {
	tenant domain.TenantID
	symbol string
}

type InstrumentRepository struct {
	mu          sync.RWMutex
	nextID      int64
	instruments map[instrumentKey]domain.Instrument
}

func NewInstrumentRepository() *InstrumentRepository {
	return &InstrumentRepository{instruments: make(map[instrumentKey]domain.Instrument)}
}

func (r *InstrumentRepository) Upsert(ctx context.Context, tenant domain.TenantID, instrument *domain.Instrument) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := instrumentKey{tenant: tenant, symbol: instrument.Symbol}
	now := time.Now()
	if existing, ok := r.instruments[key]; ok {
		instrument.ID = existing.ID
		instrument.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		instrument.ID = r.nextID
		instrument.CreatedAt = now
	}
	instrument.UpdatedAt = now
	tenantID := tenant
	instrument.TenantID = &tenantID
	r.instruments[key] = *instrument
	return nil
}

func (r *InstrumentRepository) GetBySymbol(ctx context.Context, tenant domain.TenantID, symbol string) (*domain.Instrument, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	instrument, ok := r.instruments[instrumentKey{tenant: tenant, symbol: symbol}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &instrument, nil
}
