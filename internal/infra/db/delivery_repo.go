package db

import (
	"context"
	"time"

	"github.com/leobui/alertflow/internal/domain"
	"gorm.io/gorm"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, record *domain.DeliveryRecord) error {
	if err := domain.RequireTenant(record.TenantID); err != nil {
		return err
	}
	model := mapDeliveryToModel(*record)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	record.ID = model.ID
	return nil
}

// Finalize updates a record from ATTEMPTED to its final status exactly
// once. A second finalize attempt finds no matching row and fails, which
// keeps the audit trail append-only.
func (r *DeliveryRepository) Finalize(ctx context.Context, tenant domain.TenantID, id int64, status domain.DeliveryStatus, providerResponse string, completedAt time.Time) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&deliveryModel{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenant, string(domain.DeliveryAttempted)).
		Updates(map[string]interface{}{
			"status":            string(status),
			"provider_response": providerResponse,
			"completed_at":      completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DeliveryRepository) LatestByOccurrence(ctx context.Context, tenant domain.TenantID, key domain.OccurrenceKey) (*domain.DeliveryRecord, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var model deliveryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_id = ? AND profile_id = ? AND channel = ?",
			tenant, key.SourceID, key.ProfileID, string(key.Channel)).
		Order("id DESC").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	record := mapDeliveryToDomain(model)
	return &record, nil
}

func (r *DeliveryRepository) ListStaleAttempts(ctx context.Context, tenant domain.TenantID, olderThan time.Time) ([]domain.DeliveryRecord, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var models []deliveryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND attempted_at < ?",
			tenant, string(domain.DeliveryAttempted), olderThan).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]domain.DeliveryRecord, 0, len(models))
	for _, model := range models {
		records = append(records, mapDeliveryToDomain(model))
	}
	return records, nil
}

func mapDeliveryToDomain(model deliveryModel) domain.DeliveryRecord {
	return domain.DeliveryRecord{
		ID:       model.ID,
		TenantID: model.TenantID,
		Occurrence: domain.OccurrenceKey{
			SourceID:  model.SourceID,
			ProfileID: model.ProfileID,
			Channel:   domain.Channel(model.Channel),
		},
		Status:           domain.DeliveryStatus(model.Status),
		ProviderResponse: model.ProviderResponse,
		AttemptedAt:      model.AttemptedAt,
		CompletedAt:      model.CompletedAt,
	}
}

func mapDeliveryToModel(record domain.DeliveryRecord) deliveryModel {
	return deliveryModel{
		ID:               record.ID,
		TenantID:         record.TenantID,
		SourceID:         record.Occurrence.SourceID,
		ProfileID:        record.Occurrence.ProfileID,
		Channel:          string(record.Occurrence.Channel),
		Status:           string(record.Status),
		ProviderResponse: record.ProviderResponse,
		AttemptedAt:      record.AttemptedAt,
		CompletedAt:      record.CompletedAt,
	}
}
