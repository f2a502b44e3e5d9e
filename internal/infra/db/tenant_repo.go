package db

import (
	"context"

	"github.com/leobui/alertflow/internal/domain"
	"gorm.io/gorm"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	model := tenantModel{
		ID:     tenant.ID,
		Name:   tenant.Name,
		Status: string(tenant.Status),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	tenant.CreatedAt = model.CreatedAt
	tenant.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *TenantRepository) Get(ctx context.Context, id domain.TenantID) (*domain.Tenant, error) {
	if err := domain.RequireTenant(id); err != nil {
		return nil, err
	}
	var model tenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	tenant := mapTenantToDomain(model)
	return &tenant, nil
}

func (r *TenantRepository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	var models []tenantModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.TenantActive)).
		Order("created_at").
		Find(&models).Error; err != nil {
		return nil, err
	}
	tenants := make([]domain.Tenant, 0, len(models))
	for _, model := range models {
		tenants = append(tenants, mapTenantToDomain(model))
	}
	return tenants, nil
}

func mapTenantToDomain(model tenantModel) domain.Tenant {
	return domain.Tenant{
		ID:        model.ID,
		Name:      model.Name,
		Status:    domain.TenantStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
