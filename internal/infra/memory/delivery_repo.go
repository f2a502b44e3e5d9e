package memory

import (
	"context"
	"sync"
	"time"

	"github.com/leobui/alertflow/internal/domain"
)

type DeliveryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records []domain.DeliveryRecord
}

func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{}
}

func (r *DeliveryRepository) Create(ctx context.Context, record *domain.DeliveryRecord) error {
	if err := domain.RequireTenant(record.TenantID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	r.records = append(r.records, *record)
	return nil
}

func (r *DeliveryRepository) Finalize(ctx context.Context, tenant domain.TenantID, id int64, status domain.DeliveryStatus, providerResponse string, completedAt time.Time) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		record := &r.records[i]
		if record.ID != id || record.TenantID != tenant {
			continue
		}
		// Finalize is one-shot: records past ATTEMPTED stay as written.
		if record.Status != domain.DeliveryAttempted {
			return domain.ErrNotFound
		}
		record.Status = status
		record.ProviderResponse = providerResponse
		done := completedAt
		record.CompletedAt = &done
		return nil
	}
	return domain.ErrNotFound
}

func (r *DeliveryRepository) LatestByOccurrence(ctx context.Context, tenant domain.TenantID, key domain.OccurrenceKey) (*domain.DeliveryRecord, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if record.TenantID == tenant && record.Occurrence == key {
			return &record, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *DeliveryRepository) ListStaleAttempts(ctx context.Context, tenant domain.TenantID, olderThan time.Time) ([]domain.DeliveryRecord, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []domain.DeliveryRecord
	for _, record := range r.records {
		if record.TenantID == tenant && record.Status == domain.DeliveryAttempted && record.AttemptedAt.Before(olderThan) {
			stale = append(stale, record)
		}
	}
	return stale, nil
}

// All returns a copy of every record for one tenant, oldest first.
func (r *DeliveryRepository) All(tenant domain.TenantID) []domain.DeliveryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.DeliveryRecord
	for _, record := range r.records {
		if record.TenantID == tenant {
			records = append(records, record)
		}
	}
	return records
}
